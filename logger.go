package astitsfilt

import "github.com/asticode/go-astikit"

// Default logger of filters and demuxers created without a logger option
var (
	hasLogger bool
	logger    = astikit.AdaptStdLogger(nil)
)

// SetLogger sets the default logger of filters and demuxers created afterwards
func SetLogger(l astikit.StdLogger) {
	hasLogger = l != nil
	logger = astikit.AdaptStdLogger(l)
}
