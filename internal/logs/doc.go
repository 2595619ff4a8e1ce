// Package logs reads the ytdlg log file for the `ytdlg logs` command.
//
// Tail returns the last lines of the file or the lines after a saved offset,
// optionally waiting for new lines to arrive. A line filter narrows the
// output to one job; it understands both the console and the JSON format.
package logs
