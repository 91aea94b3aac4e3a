package model

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/params"
)

// State is the handle's lifecycle position.
type State uint8

const (
	StateUnloaded State = iota
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unloaded"
	}
}

// Observer receives the model card after each successful load.
type Observer func(Card)

// Handle is the shared, reference-counted front of one inference model.
// The internal mutex serializes Load and Process across every sharer; it is
// never taken on the real-time playback path.
type Handle struct {
	mu        sync.Mutex
	backend   Backend
	state     State
	card      Card
	observers []Observer
	refs      int
}

// NewHandle wraps backend with an initial reference count of one.
func NewHandle(backend Backend) *Handle {
	return &Handle{backend: backend, refs: 1}
}

// Retain adds a reference and returns the handle for chaining.
func (h *Handle) Retain() *Handle {
	h.mu.Lock()
	h.refs++
	h.mu.Unlock()
	return h
}

// Release drops a reference; the last release closes the backend.
func (h *Handle) Release() {
	h.mu.Lock()
	h.refs--
	closing := h.refs == 0
	h.mu.Unlock()

	if closing {
		if err := h.backend.Close(); err != nil {
			log.Warn().Err(err).Msg("model backend close")
		}
	}
}

// Subscribe registers an observer for future successful loads.
func (h *Handle) Subscribe(fn Observer) {
	h.mu.Lock()
	h.observers = append(h.observers, fn)
	h.mu.Unlock()
}

// Load resolves the model location from params ("modelPath", with "url" as a
// legacy alias) and loads it. A failed load leaves the handle retryable in
// StateFailed; a successful one transitions to StateLoaded and notifies
// observers with the new card.
func (h *Handle) Load(p params.Params) bool {
	path, ok := p.FirstString("modelPath", "url")
	if !ok {
		log.Error().Err(ErrMissingPath).Msg("model load")
		return false
	}

	h.mu.Lock()
	card, err := h.backend.Load(path, p)
	if err != nil {
		h.state = StateFailed
		h.mu.Unlock()
		log.Error().Err(err).Str("path", path).Msg("model load failed")
		return false
	}
	h.state = StateLoaded
	h.card = card
	observers := make([]Observer, len(h.observers))
	copy(observers, h.observers)
	h.mu.Unlock()

	log.Info().
		Str("name", card.Name).
		Str("author", card.Author).
		Int("sample_rate", card.SampleRate).
		Msg("model loaded")

	for _, fn := range observers {
		fn(card)
	}
	return true
}

// Ready reports whether the model has been loaded.
func (h *Handle) Ready() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state == StateLoaded
}

// State returns the current lifecycle state.
func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Card returns the current model card; ok is false before the first
// successful load.
func (h *Handle) Card() (Card, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.card, h.state == StateLoaded
}

// Process runs the transform over buf in place, holding the handle lock for
// the whole call so concurrent sharers are serialized.
func (h *Handle) Process(buf *audio.Buffer, sampleRate int, p params.Params) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.state != StateLoaded {
		return ErrNotReady
	}
	return h.backend.Process(buf, sampleRate, p)
}
