//go:build windows && amd64

package toolcache

import _ "embed"

//go:embed sums/youtube-dl.exe.sum
var embeddedSum string
