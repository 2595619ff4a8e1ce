// Package main hosts the ytdlg CLI entrypoint and command graph.
//
// Run without arguments on a terminal, ytdlg opens the interactive session:
// it bootstraps the cached youtube-dl executable, asks for a URL, lists the
// available formats and queues the chosen one. The subcommands expose the
// same pieces to scripts: bootstrap, info, get, history, doctor and config.
//
// Commands build an app.App for the duration of one invocation and close it
// before returning, so nothing outlives the process except the cache, the log
// file and the history ledger.
package main
