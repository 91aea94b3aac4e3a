package engine

import (
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/nazmulnnb/harp/internal/audio"
)

// ModifiedSource is the capability the renderer needs from a modification to
// decide what to play: processed audio when it exists and is not dimmed,
// the original source otherwise.
type ModifiedSource interface {
	IsModified() bool
	IsDimmed() bool
	ModifiedBuffer() *audio.Buffer
	Source() *Source
}

// sourceState is the per-source playback state built during PrepareToPlay so
// ProcessBlock never allocates.
type sourceState struct {
	srcRate   int
	reader    audio.Reader
	modReader audio.BufferReader
	resampler *audio.Resampler
	mix       [][]float32
}

// Renderer serves sample blocks for the regions assigned to it. The host
// contract is the plugin one: PrepareToPlay, ProcessBlock and
// ReleaseResources are never called concurrently, and regions are only added
// or removed while playback is stopped. Within that contract ProcessBlock
// takes no locks and performs no allocation.
type Renderer struct {
	sampleRate  int
	maxBlock    int
	channels    int
	nonRealtime bool
	prepared    bool

	regions []*Region
	sources map[*Source]*sourceState
}

// NewRenderer returns an unprepared renderer with no regions.
func NewRenderer() *Renderer {
	return &Renderer{sources: make(map[*Source]*sourceState)}
}

// AddRegion assigns a region to the renderer. If the renderer is prepared
// the playback state for the region's source is built immediately.
func (re *Renderer) AddRegion(r *Region) error {
	re.regions = append(re.regions, r)
	if !re.prepared {
		return nil
	}
	return re.ensureSource(r.Modification().Source())
}

// RemoveRegion drops the region with the given id. Source state stays
// prepared; other regions may still use it.
func (re *Renderer) RemoveRegion(id string) {
	for i, r := range re.regions {
		if r.ID() == id {
			re.regions = append(re.regions[:i], re.regions[i+1:]...)
			return
		}
	}
}

// Regions returns the regions currently assigned to the renderer.
func (re *Renderer) Regions() []*Region { return re.regions }

// Prepared reports whether playback resources are allocated.
func (re *Renderer) Prepared() bool { return re.prepared }

// PrepareToPlay allocates the playback state: one reader, resampler and mix
// scratch per distinct source. Safe to call again with changed parameters;
// per-source state is rebuilt only when the rate, block size or channel
// count no longer matches.
func (re *Renderer) PrepareToPlay(sampleRate, maxBlockFrames, channels int, nonRealtime bool) error {
	if sampleRate <= 0 || maxBlockFrames <= 0 || channels <= 0 {
		return fmt.Errorf("invalid playback setup %d Hz, %d frames, %d channels", sampleRate, maxBlockFrames, channels)
	}
	re.sampleRate = sampleRate
	re.maxBlock = maxBlockFrames
	re.channels = channels
	re.nonRealtime = nonRealtime
	re.prepared = true
	for _, r := range re.regions {
		if err := re.ensureSource(r.Modification().Source()); err != nil {
			re.ReleaseResources()
			return err
		}
	}
	log.Debug().
		Int("sampleRate", sampleRate).
		Int("maxBlock", maxBlockFrames).
		Int("channels", channels).
		Bool("nonRealtime", nonRealtime).
		Int("sources", len(re.sources)).
		Msg("renderer prepared")
	return nil
}

func (re *Renderer) ensureSource(src *Source) error {
	if st, ok := re.sources[src]; ok {
		if st.resampler.Matches(src.SampleRate(), re.sampleRate, src.Channels(), re.maxBlock) {
			return nil
		}
		st.reader.Close()
		delete(re.sources, src)
	}
	r, err := src.OpenReader()
	if err != nil {
		return fmt.Errorf("preparing source %s: %w", src.Name(), err)
	}
	mix := make([][]float32, src.Channels())
	for ch := range mix {
		mix[ch] = make([]float32, re.maxBlock)
	}
	re.sources[src] = &sourceState{
		srcRate:   src.SampleRate(),
		reader:    r,
		resampler: audio.NewResampler(src.SampleRate(), re.sampleRate, src.Channels(), re.maxBlock),
		mix:       mix,
	}
	return nil
}

// ReleaseResources drops all playback state. Regions stay assigned.
func (re *Renderer) ReleaseResources() {
	for src, st := range re.sources {
		if err := st.reader.Close(); err != nil {
			log.Warn().Err(err).Str("source", src.Name()).Msg("closing playback reader")
		}
	}
	re.sources = make(map[*Source]*sourceState)
	re.prepared = false
}

// ProcessBlock fills out with the mix of all regions overlapping the block
// starting at playhead. The output is always fully written; on any failure
// the affected span is silence and the return value is false. With playing
// false or no overlapping regions the block is silence and the call
// succeeds.
func (re *Renderer) ProcessBlock(out [][]float32, playhead int64, playing bool) bool {
	if len(out) == 0 {
		return false
	}
	n := len(out[0])
	for ch := range out {
		clear(out[ch][:n])
	}
	if !re.prepared || len(out) != re.channels || n > re.maxBlock {
		return false
	}
	if !playing {
		return true
	}
	ok := true
	for _, r := range re.regions {
		start, end, hit := r.overlap(re.sampleRate, playhead, playhead+int64(n))
		if !hit {
			continue
		}
		st := re.sources[r.Modification().Source()]
		if st == nil {
			ok = false
			continue
		}
		reader := selectReader(r.Modification(), st)
		regionStart, _ := r.frameBounds(re.sampleRate)
		srcSec := float64(start-regionStart)/float64(re.sampleRate) + r.StartInModificationTime()
		srcPos := srcSec * float64(st.srcRate)
		dstOff := int(start - playhead)
		frames := int(end - start)
		for ch := range st.mix {
			clear(st.mix[ch][dstOff : dstOff+frames])
		}
		if err := st.resampler.Render(reader, srcPos, st.mix, dstOff, frames); err != nil {
			ok = false
			continue
		}
		for ch := range out {
			seg := st.mix[ch%len(st.mix)][dstOff : dstOff+frames]
			dst := out[ch][dstOff : dstOff+frames]
			for i, v := range seg {
				dst[i] += v
			}
		}
	}
	return ok
}

// selectReader picks processed audio when it is published and audible,
// falling back to the original source otherwise. The processed buffer is
// read through a pointer that may be swapped concurrently by a process call;
// either the old or the new buffer plays, both are coherent.
func selectReader(m ModifiedSource, st *sourceState) audio.Reader {
	if m.IsModified() && !m.IsDimmed() {
		if buf := m.ModifiedBuffer(); buf != nil {
			st.modReader.Reset(buf)
			return &st.modReader
		}
	}
	return st.reader
}
