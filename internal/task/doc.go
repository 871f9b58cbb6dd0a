// Package task manages background job queuing, processing, and lifecycle.
// It provides mechanisms for asynchronous execution of the guideline
// processing pipeline, ensuring it doesn't block HTTP request handling,
// retrying failed attempts up to a fixed bound, and recovering queued work
// after application restarts.
package task
