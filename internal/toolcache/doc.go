// Package toolcache turns an absent or untrusted youtube-dl executable into a
// verified local artifact.
//
// A Descriptor names the remote URL, the cache path and the reference SHA-256
// for the current platform. The Fetcher streams the executable into the cache
// while publishing byte counts on a Tracker, the verifier checks the digest
// (and optionally a detached OpenPGP signature), and the Sequencer runs the
// whole NotStarted → Fetching → Verifying → Ready/Failed state machine under a
// file lock so concurrent processes never write the same cache path.
//
// The Sequencer doubles as the readiness gate for the job dispatcher: Wait
// blocks until the executable is trusted or bootstrap has failed.
package toolcache
