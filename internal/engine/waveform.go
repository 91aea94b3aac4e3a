package engine

import (
	"sync"

	"github.com/nazmulnnb/harp/internal/audio"
)

// Peak is the min/max sample pair of one thumbnail bucket, mono-mixed.
type Peak struct {
	Min float32
	Max float32
}

// Thumbnail is a fixed-resolution waveform overview of a modification's
// audible audio.
type Thumbnail struct {
	SourceName string
	SampleRate int
	Peaks      []Peak
}

type waveformKey struct {
	modID      string
	generation int64
	dimmed     bool
	buckets    int
}

// WaveformCache memoizes thumbnails per modification. Entries are keyed on
// the modification's content generation and dim state, so a reprocess or a
// dim toggle yields a fresh render while repeated draws hit the cache.
type WaveformCache struct {
	mu      sync.Mutex
	entries map[waveformKey]*Thumbnail
}

// NewWaveformCache returns an empty cache.
func NewWaveformCache() *WaveformCache {
	return &WaveformCache{entries: make(map[waveformKey]*Thumbnail)}
}

// Thumbnail returns the overview of what m currently plays: the processed
// audio when published and not dimmed, the original source otherwise.
func (c *WaveformCache) Thumbnail(m *Modification, buckets int) (*Thumbnail, error) {
	key := waveformKey{
		modID:      m.ID(),
		generation: m.Generation(),
		dimmed:     m.IsDimmed(),
		buckets:    buckets,
	}
	c.mu.Lock()
	if t, ok := c.entries[key]; ok {
		c.mu.Unlock()
		return t, nil
	}
	c.mu.Unlock()

	buf, err := audibleBuffer(m)
	if err != nil {
		return nil, err
	}
	t := renderThumbnail(m.SourceName(), buf, buckets)

	c.mu.Lock()
	// Entries for superseded generations can never get another hit.
	for k := range c.entries {
		if k.modID == key.modID && k.generation != key.generation {
			delete(c.entries, k)
		}
	}
	c.entries[key] = t
	c.mu.Unlock()
	return t, nil
}

// Invalidate drops every cached entry for the given modification.
func (c *WaveformCache) Invalidate(modID string) {
	c.mu.Lock()
	for k := range c.entries {
		if k.modID == modID {
			delete(c.entries, k)
		}
	}
	c.mu.Unlock()
}

func audibleBuffer(m *Modification) (*audio.Buffer, error) {
	if m.IsModified() && !m.IsDimmed() {
		if buf := m.ModifiedBuffer(); buf != nil {
			return buf, nil
		}
	}
	r, err := m.Source().OpenReader()
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return audio.ReadAll(r)
}

// renderThumbnail mono-mixes the buffer and folds it into min/max buckets.
func renderThumbnail(name string, buf *audio.Buffer, buckets int) *Thumbnail {
	if buckets < 1 {
		buckets = 1
	}
	t := &Thumbnail{
		SourceName: name,
		SampleRate: buf.SampleRate(),
		Peaks:      make([]Peak, buckets),
	}
	frames := buf.Frames()
	channels := buf.Channels()
	if frames == 0 || channels == 0 {
		return t
	}
	perBucket := float64(frames) / float64(buckets)
	for b := 0; b < buckets; b++ {
		start := int(float64(b) * perBucket)
		end := int(float64(b+1) * perBucket)
		if end <= start {
			end = start + 1
		}
		if end > frames {
			end = frames
		}
		p := Peak{Min: 1, Max: -1}
		for i := start; i < end; i++ {
			var mixed float32
			for ch := 0; ch < channels; ch++ {
				mixed += buf.Channel(ch)[i]
			}
			mixed /= float32(channels)
			if mixed < p.Min {
				p.Min = mixed
			}
			if mixed > p.Max {
				p.Max = mixed
			}
		}
		if p.Min > p.Max {
			p.Min, p.Max = 0, 0
		}
		t.Peaks[b] = p
	}
	return t
}
