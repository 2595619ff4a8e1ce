// Package history keeps a SQLite ledger of finished download jobs.
//
// The dispatcher writes one row per Outcome through Store.Record, which makes
// failures visible after the interactive session has ended ("ytdlg history").
// The ledger is diagnostic only: nothing is replayed from it on startup.
package history
