// Package preflight provides readiness checks for the filesystem paths and
// remote endpoints ytdlg depends on.
//
// The fetcher calls FreeBytes before streaming the tool into the cache so a
// nearly full disk fails early instead of leaving a truncated partial file.
// The CLI "ytdlg doctor" command runs RunAll and renders every Result.
package preflight
