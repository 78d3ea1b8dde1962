package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// Setup failures. Fatal, initialization is aborted.
	ErrNoSuitableDevice     = errors.New("no physical device supports both graphics and presentation to the window")
	ErrNoMatchingMemoryType = errors.New("no memory type matches the requested properties")
	ErrShaderLoad           = errors.New("unable to load shader blob")
)
