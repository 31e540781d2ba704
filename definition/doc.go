// Package definition reconciles remote item definitions with local folders.
//
// Detector reports the parts whose local copy differs from the remote
// payload, Writer writes a definition's parts into a folder and Reader builds
// a definition from a folder. All three only handle InlineBase64 parts and
// resolve part paths through SafeJoin, so a part can never address a file
// outside its destination folder.
package definition

import "github.com/hupe1980/fabricsync/logging"

// Options configures Detector, Writer and Reader.
type Options struct {
	// Logger (defaults to NoOp logger if nil)
	Logger logging.Logger
}

func buildOptions(optFns []func(o *Options)) Options {
	opts := Options{Logger: logging.NoOpLogger{}}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return opts
}
