package engine

import (
	"math"

	"github.com/google/uuid"
)

// Region places a window of a modification's audio on the host playback
// timeline. All times are in seconds; frame positions are derived at the
// renderer's sample rate so region boundaries stay stable when the host
// changes rates.
type Region struct {
	id                  string
	mod                 *Modification
	startInPlayback     float64
	duration            float64
	startInModification float64
}

// NewRegion creates a region playing mod starting at startInPlayback on the
// host timeline, for duration seconds, reading the modification's audio from
// startInModification onward.
func NewRegion(mod *Modification, startInPlayback, duration, startInModification float64) *Region {
	return &Region{
		id:                  uuid.NewString(),
		mod:                 mod,
		startInPlayback:     startInPlayback,
		duration:            duration,
		startInModification: startInModification,
	}
}

// ID returns the region's persistent identifier.
func (r *Region) ID() string { return r.id }

// Modification returns the modification this region plays.
func (r *Region) Modification() *Modification { return r.mod }

// StartInPlaybackTime returns the region start on the host timeline, seconds.
func (r *Region) StartInPlaybackTime() float64 { return r.startInPlayback }

// DurationInPlaybackTime returns the region length in seconds.
func (r *Region) DurationInPlaybackTime() float64 { return r.duration }

// EndInPlaybackTime returns the region end on the host timeline, seconds.
func (r *Region) EndInPlaybackTime() float64 { return r.startInPlayback + r.duration }

// StartInModificationTime returns the offset into the modification's audio
// at which the region starts, seconds.
func (r *Region) StartInModificationTime() float64 { return r.startInModification }

// frameBounds returns the region's [start, end) frame window at the given
// host sample rate.
func (r *Region) frameBounds(sampleRate int) (start, end int64) {
	start = int64(math.Round(r.startInPlayback * float64(sampleRate)))
	end = start + int64(math.Round(r.duration*float64(sampleRate)))
	return start, end
}

// overlap intersects the region with the block [blockStart, blockEnd) at the
// host rate. ok is false when they do not intersect.
func (r *Region) overlap(sampleRate int, blockStart, blockEnd int64) (start, end int64, ok bool) {
	rs, re := r.frameBounds(sampleRate)
	start = max(blockStart, rs)
	end = min(blockEnd, re)
	return start, end, start < end
}
