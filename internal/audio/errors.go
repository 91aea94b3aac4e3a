package audio

import "errors"

var (
	// ErrClosed is returned by reads against a closed reader.
	ErrClosed = errors.New("audio: reader is closed")

	// ErrChannelMismatch is returned when a destination's channel count does
	// not match the reader's.
	ErrChannelMismatch = errors.New("audio: destination channel count mismatch")

	// ErrUnsupportedFormat is returned for files with an unknown extension.
	ErrUnsupportedFormat = errors.New("audio: unsupported format")
)
