// Package dispatch runs download jobs one at a time.
//
// Submit places a Job on a bounded FIFO queue and suspends the caller while
// the queue is full. A single worker goroutine waits on the readiness Gate
// (the bootstrap sequencer), then dequeues jobs in submission order and hands
// each one to the Executor. The worker never retries and never stops because
// a job failed; every finished job is published on the Notifier as an
// Outcome and, when configured, written to a Recorder.
//
// The Notifier replaces a shared "a job finished" flag with a generation
// counter. Each Waiter remembers the last generation it observed, so it
// resolves once per completion it has not yet seen and never twice for the
// same one.
package dispatch
