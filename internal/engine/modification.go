package engine

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/model"
	"github.com/nazmulnnb/harp/internal/params"
)

// Modification holds the per-region processed state for one source: the
// transformed audio produced by the model, plus the flags that decide what
// the renderer plays back.
//
// Processing happens on the caller's thread; the result is published through
// a single atomic pointer swap so the audio thread can pick it up without
// locks. A render racing a swap sees either the previous buffer or the new
// one, never a torn state.
type Modification struct {
	id         string
	source     *Source
	reader     audio.Reader
	sampleRate int
	sourceName string
	model      *model.Handle

	modified   atomic.Pointer[audio.Buffer]
	isModified atomic.Bool
	dimmed     atomic.Bool
	generation atomic.Int64

	onContentChanged func(*Modification)
}

// NewModification creates a modification over src, retaining a reference on
// the shared model handle. When cloneFrom is non-nil only metadata carries
// over; the processed buffer and the modified flag always start clean.
func NewModification(src *Source, h *model.Handle, cloneFrom *Modification) (*Modification, error) {
	r, err := src.OpenReader()
	if err != nil {
		return nil, fmt.Errorf("modification reader: %w", err)
	}
	m := &Modification{
		id:         uuid.NewString(),
		source:     src,
		reader:     r,
		sampleRate: src.SampleRate(),
		sourceName: src.Name(),
		model:      h,
	}
	h.Retain()
	if cloneFrom != nil {
		m.sourceName = cloneFrom.sourceName
		m.sampleRate = cloneFrom.sampleRate
		m.dimmed.Store(cloneFrom.dimmed.Load())
	}
	return m, nil
}

// ID returns the modification's persistent identifier.
func (m *Modification) ID() string { return m.id }

// Source returns the source this modification was created for.
func (m *Modification) Source() *Source { return m.source }

// SourceName returns the display name captured at creation time.
func (m *Modification) SourceName() string { return m.sourceName }

// SampleRate returns the source rate the modification was created at.
func (m *Modification) SampleRate() int { return m.sampleRate }

// IsModified reports whether a processed buffer has been published.
func (m *Modification) IsModified() bool { return m.isModified.Load() }

// IsDimmed reports whether playback is forced back to the original audio.
func (m *Modification) IsDimmed() bool { return m.dimmed.Load() }

// SetDimmed toggles the processed audio in and out of playback without
// touching the buffer itself.
func (m *Modification) SetDimmed(dimmed bool) {
	if m.dimmed.Swap(dimmed) == dimmed {
		return
	}
	m.notifyContentChanged()
}

// ModifiedBuffer returns the last published processed buffer, or nil when
// nothing has been processed yet. Safe to call from the audio thread.
func (m *Modification) ModifiedBuffer() *audio.Buffer { return m.modified.Load() }

// Generation returns a counter that increments on every published process
// result; thumbnail caches use it to detect stale renders.
func (m *Modification) Generation() int64 { return m.generation.Load() }

// Load forwards a model load request to the shared handle. Returns false
// without mutating anything when the request is rejected.
func (m *Modification) Load(p params.Params) bool {
	return m.model.Load(p)
}

// Process runs the loaded model over the whole source and publishes the
// result. Any failure, including a panicking backend, leaves the previously
// published buffer and flags untouched. Returns false when nothing changed.
func (m *Modification) Process(p params.Params) bool {
	if !m.model.Ready() {
		log.Debug().Str("modification", m.id).Msg("process skipped, no model loaded")
		return false
	}
	if m.reader == nil {
		log.Error().Str("modification", m.id).Msg("process skipped, source reader closed")
		return false
	}
	buf, err := audio.ReadAll(m.reader)
	if err != nil {
		log.Error().Err(err).Str("source", m.sourceName).Msg("reading source for processing")
		return false
	}
	if err := m.runModel(buf, p); err != nil {
		log.Error().Err(err).Str("source", m.sourceName).Msg("model processing failed")
		return false
	}
	m.modified.Store(buf)
	m.isModified.Store(true)
	m.generation.Add(1)
	log.Info().
		Str("source", m.sourceName).
		Int("frames", buf.Frames()).
		Msg("modification processed")
	m.notifyContentChanged()
	return true
}

// runModel isolates the backend call so a panic inside the model cannot
// corrupt the published state.
func (m *Modification) runModel(buf *audio.Buffer, p params.Params) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("model panicked: %v", r)
		}
	}()
	return m.model.Process(buf, m.sampleRate, p)
}

// Close releases the source reader and the model reference. The published
// buffer stays readable until the last holder drops it.
func (m *Modification) Close() error {
	m.model.Release()
	if m.reader == nil {
		return nil
	}
	err := m.reader.Close()
	m.reader = nil
	return err
}

func (m *Modification) notifyContentChanged() {
	if m.onContentChanged != nil {
		m.onContentChanged(m)
	}
}
