package engine

import (
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/model"
	"github.com/nazmulnnb/harp/internal/params"
)

// ErrUnknownID is returned when a document lookup misses.
var ErrUnknownID = errors.New("engine: unknown id")

// ContentChange describes one modification whose audible content changed,
// either by processing or by a dim toggle, along with every region that
// plays it.
type ContentChange struct {
	ModificationID string
	RegionIDs      []string
}

// ContentListener receives content-change notifications on the thread that
// triggered the change.
type ContentListener func(ContentChange)

// Document owns the object graph: sources, the modifications built on them,
// the regions placing modifications on the timeline, and the shared model
// handle every modification retains. All document mutation goes through the
// control domain; only modification state crosses into the audio thread.
type Document struct {
	mu        sync.Mutex
	model     *model.Handle
	sources   map[string]*Source
	mods      map[string]*Modification
	regions   map[string]*Region
	listeners []ContentListener
}

// NewDocument creates an empty document sharing h across all modifications.
// The document takes its own reference on the handle.
func NewDocument(h *model.Handle) *Document {
	h.Retain()
	return &Document{
		model:   h,
		sources: make(map[string]*Source),
		mods:    make(map[string]*Modification),
		regions: make(map[string]*Region),
	}
}

// Model returns the shared model handle.
func (d *Document) Model() *model.Handle { return d.model }

// Subscribe registers a listener for content changes. Listeners registered
// after a change see only later changes.
func (d *Document) Subscribe(fn ContentListener) {
	d.mu.Lock()
	d.listeners = append(d.listeners, fn)
	d.mu.Unlock()
}

// AddFileSource registers an audio file and returns the new source.
func (d *Document) AddFileSource(path string) (*Source, error) {
	src, err := NewFileSource(path)
	if err != nil {
		return nil, err
	}
	d.mu.Lock()
	d.sources[src.ID()] = src
	d.mu.Unlock()
	log.Info().Str("source", src.Name()).Int("sampleRate", src.SampleRate()).
		Int64("frames", src.NumFrames()).Msg("source added")
	return src, nil
}

// AddBufferSource registers an in-memory buffer and returns the new source.
func (d *Document) AddBufferSource(name string, buf *audio.Buffer) *Source {
	src := NewBufferSource(name, buf)
	d.mu.Lock()
	d.sources[src.ID()] = src
	d.mu.Unlock()
	return src
}

// CreateModification builds a modification over src. When cloneFrom is
// non-nil the new modification starts from the clone's metadata but with no
// processed audio.
func (d *Document) CreateModification(src *Source, cloneFrom *Modification) (*Modification, error) {
	m, err := NewModification(src, d.model, cloneFrom)
	if err != nil {
		return nil, err
	}
	m.onContentChanged = d.notifyContentChanged
	d.mu.Lock()
	d.mods[m.ID()] = m
	d.mu.Unlock()
	return m, nil
}

// CreateRegion places a window of m on the playback timeline.
func (d *Document) CreateRegion(m *Modification, startInPlayback, duration, startInModification float64) *Region {
	r := NewRegion(m, startInPlayback, duration, startInModification)
	d.mu.Lock()
	d.regions[r.ID()] = r
	d.mu.Unlock()
	return r
}

// Modification returns the modification with the given id.
func (d *Document) Modification(id string) (*Modification, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	m, ok := d.mods[id]
	if !ok {
		return nil, ErrUnknownID
	}
	return m, nil
}

// Modifications returns all modifications in the document.
func (d *Document) Modifications() []*Modification {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]*Modification, 0, len(d.mods))
	for _, m := range d.mods {
		out = append(out, m)
	}
	return out
}

// RemoveRegion drops the region with the given id.
func (d *Document) RemoveRegion(id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.regions[id]; !ok {
		return ErrUnknownID
	}
	delete(d.regions, id)
	return nil
}

// RemoveModification closes and drops a modification and every region that
// plays it.
func (d *Document) RemoveModification(id string) error {
	d.mu.Lock()
	m, ok := d.mods[id]
	if !ok {
		d.mu.Unlock()
		return ErrUnknownID
	}
	delete(d.mods, id)
	for rid, r := range d.regions {
		if r.Modification() == m {
			delete(d.regions, rid)
		}
	}
	d.mu.Unlock()
	return m.Close()
}

// ExecuteLoad loads the shared model. One call serves every modification in
// the document.
func (d *Document) ExecuteLoad(p params.Params) bool {
	return d.model.Load(p)
}

// ExecuteProcess runs the loaded model over every modification in the
// document, continuing past per-modification failures. Returns the number
// of modifications that published new audio.
func (d *Document) ExecuteProcess(p params.Params) int {
	processed := 0
	for _, m := range d.Modifications() {
		if m.Process(p) {
			processed++
		}
	}
	return processed
}

// Close closes all modifications and releases the document's model
// reference. Regions and sources need no teardown.
func (d *Document) Close() error {
	d.mu.Lock()
	mods := make([]*Modification, 0, len(d.mods))
	for _, m := range d.mods {
		mods = append(mods, m)
	}
	d.mods = make(map[string]*Modification)
	d.regions = make(map[string]*Region)
	d.mu.Unlock()
	var first error
	for _, m := range mods {
		if err := m.Close(); err != nil && first == nil {
			first = err
		}
	}
	d.model.Release()
	return first
}

func (d *Document) notifyContentChanged(m *Modification) {
	d.mu.Lock()
	change := ContentChange{ModificationID: m.ID()}
	for id, r := range d.regions {
		if r.Modification() == m {
			change.RegionIDs = append(change.RegionIDs, id)
		}
	}
	listeners := make([]ContentListener, len(d.listeners))
	copy(listeners, d.listeners)
	d.mu.Unlock()
	for _, fn := range listeners {
		fn(change)
	}
}
