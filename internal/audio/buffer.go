// Package audio provides the sample buffer, source reader, and resampling
// primitives shared by the modification lifecycle and the playback renderer.
// Samples are de-interleaved float32 in [-1, 1]; positions are frame counts.
package audio

// Buffer holds de-interleaved float32 samples for one audio clip.
type Buffer struct {
	data       [][]float32
	sampleRate int
}

// NewBuffer allocates a zeroed buffer of channels x frames at sampleRate.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	if channels < 1 {
		channels = 1
	}
	if frames < 0 {
		frames = 0
	}
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return &Buffer{data: data, sampleRate: sampleRate}
}

// Channels returns the channel count.
func (b *Buffer) Channels() int { return len(b.data) }

// Frames returns the per-channel sample count.
func (b *Buffer) Frames() int {
	if len(b.data) == 0 {
		return 0
	}
	return len(b.data[0])
}

// SampleRate returns the buffer's sample rate in Hz.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// Channel returns the sample slice for one channel. The slice aliases the
// buffer's storage; writes are visible to all holders of the buffer.
func (b *Buffer) Channel(ch int) []float32 { return b.data[ch] }

// Clone returns a deep copy.
func (b *Buffer) Clone() *Buffer {
	out := NewBuffer(b.Channels(), b.Frames(), b.sampleRate)
	for ch := range b.data {
		copy(out.data[ch], b.data[ch])
	}
	return out
}

// Clear zeroes every sample in place.
func (b *Buffer) Clear() {
	for ch := range b.data {
		s := b.data[ch]
		for i := range s {
			s[i] = 0
		}
	}
}

// Peak returns the largest absolute sample value across all channels.
func (b *Buffer) Peak() float32 {
	var peak float32
	for ch := range b.data {
		for _, s := range b.data[ch] {
			if s < 0 {
				s = -s
			}
			if s > peak {
				peak = s
			}
		}
	}
	return peak
}
