// Package api implements the HTTP transport layer: request decoding and
// validation, response shaping, and the mapping from service errors to
// status codes. Handlers stay thin and delegate all business logic to the
// service layer.
package api
