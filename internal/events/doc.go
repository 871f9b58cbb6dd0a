// Package events decouples job submission from background task creation.
// The submission path emits a TaskRequestEvent; handlers registered for the
// event's task type turn it into queued work.
package events
