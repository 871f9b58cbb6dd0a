// Package service contains the application's use-case layer. It coordinates
// domain objects, stores, and background task dispatch while keeping
// transport and persistence details out of the business logic.
package service
