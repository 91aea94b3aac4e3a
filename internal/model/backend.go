package model

import (
	"errors"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/params"
)

var (
	// ErrNotReady is returned by Process before a successful Load.
	ErrNotReady = errors.New("model: not loaded")

	// ErrMissingPath is returned by Load when params carry no model location.
	ErrMissingPath = errors.New("model: params missing modelPath/url")
)

// Backend is the opaque transform capability behind a handle. Implementations
// own their model resources; the handle owns serialization and state.
type Backend interface {
	// Load reads the model at path and returns its card. Load may be called
	// again after a failure, or to switch models.
	Load(path string, p params.Params) (Card, error)

	// Process transforms buf in place. sampleRate is the rate of buf's
	// content; backends resample to their native rate internally and convert
	// back before returning. The output shape must equal the input shape.
	Process(buf *audio.Buffer, sampleRate int, p params.Params) error

	// Close releases model resources.
	Close() error
}
