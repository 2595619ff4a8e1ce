// Package notifications pushes job and bootstrap events to ntfy.
//
// The service is a no-op unless an ntfy topic URL is configured. Completed
// jobs reach it through the dispatcher's Recorder hook, so a failed push is
// logged by the dispatcher and never affects the job itself.
package notifications
