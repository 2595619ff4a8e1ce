// Package ytdl wraps the cached youtube-dl executable.
//
// Client builds the command lines for manifest queries (--dump-json) and
// format downloads (-f <id> <url> [-o <dest>]) and runs them through a Runner,
// which tests replace with a stub. Manifest decodes the tool's JSON output
// permissively: known keys land in typed fields, anything else is kept in
// Extra so newer tool versions never break decoding.
package ytdl
