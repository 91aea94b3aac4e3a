// Package engine implements the audio-modification lifecycle and the
// real-time playback rendering pipeline: per-region modifications that run a
// shared inference model over whole sources off-thread, and a renderer that
// serves resampled, mixed sample blocks back to the host without blocking on
// the control domain.
package engine

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/nazmulnnb/harp/internal/audio"
)

// Source is one piece of recorded audio registered with the document. It
// carries immutable metadata and can open any number of independent readers;
// each modification and each renderer holds its own.
type Source struct {
	id         string
	name       string
	sampleRate int
	channels   int
	frames     int64
	open       func() (audio.Reader, error)
}

// NewFileSource registers an audio file as a source. The file is opened once
// to capture metadata; display name comes from tags where available.
func NewFileSource(path string) (*Source, error) {
	r, err := audio.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening source %s: %w", path, err)
	}
	src := &Source{
		id:         uuid.NewString(),
		name:       audio.SourceName(path),
		sampleRate: r.SampleRate(),
		channels:   r.Channels(),
		frames:     r.NumFrames(),
		open:       func() (audio.Reader, error) { return audio.OpenFile(path) },
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return src, nil
}

// NewBufferSource registers an in-memory buffer as a source.
func NewBufferSource(name string, buf *audio.Buffer) *Source {
	return &Source{
		id:         uuid.NewString(),
		name:       name,
		sampleRate: buf.SampleRate(),
		channels:   buf.Channels(),
		frames:     int64(buf.Frames()),
		open:       func() (audio.Reader, error) { return audio.NewBufferReader(buf), nil },
	}
}

// ID returns the source's persistent identifier.
func (s *Source) ID() string { return s.id }

// Name returns the display name.
func (s *Source) Name() string { return s.name }

// SampleRate returns the source rate in Hz.
func (s *Source) SampleRate() int { return s.sampleRate }

// Channels returns the channel count.
func (s *Source) Channels() int { return s.channels }

// NumFrames returns the total frame count.
func (s *Source) NumFrames() int64 { return s.frames }

// OpenReader opens a fresh independent reader over the source audio.
func (s *Source) OpenReader() (audio.Reader, error) { return s.open() }
