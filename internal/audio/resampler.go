package audio

import (
	"fmt"
	"math"
)

// Resampler maps frames from a source-rate Reader onto a destination-rate
// grid using linear interpolation. One Resampler serves one source; all
// scratch space is allocated at construction so Render stays allocation-free
// on the real-time path.
type Resampler struct {
	srcRate  int
	dstRate  int
	channels int
	ratio    float64 // source frames advanced per destination frame
	scratch  [][]float32
	maxSpan  int
}

// NewResampler sizes scratch for blocks of up to maxDstFrames output frames.
func NewResampler(srcRate, dstRate, channels, maxDstFrames int) *Resampler {
	ratio := float64(srcRate) / float64(dstRate)
	// One extra frame on each side for interpolation at the span edges.
	maxSpan := int(math.Ceil(ratio*float64(maxDstFrames))) + 2
	scratch := make([][]float32, channels)
	for ch := range scratch {
		scratch[ch] = make([]float32, maxSpan)
	}
	return &Resampler{
		srcRate:  srcRate,
		dstRate:  dstRate,
		channels: channels,
		ratio:    ratio,
		maxSpan:  maxSpan,
		scratch:  scratch,
	}
}

// SourceRate returns the configured source rate in Hz.
func (rs *Resampler) SourceRate() int { return rs.srcRate }

// Matches reports whether the resampler fits the given configuration.
func (rs *Resampler) Matches(srcRate, dstRate, channels, maxDstFrames int) bool {
	return rs.srcRate == srcRate && rs.dstRate == dstRate &&
		rs.channels == channels &&
		int(math.Ceil(rs.ratio*float64(maxDstFrames)))+2 <= rs.maxSpan
}

// Render adds frames interpolated from r into dst[ch][dstOff:dstOff+frames],
// where destination frame i samples source position srcPos + i*ratio.
// Positions outside the source contribute silence.
func (rs *Resampler) Render(r Reader, srcPos float64, dst [][]float32, dstOff, frames int) error {
	if len(dst) != rs.channels {
		return ErrChannelMismatch
	}
	if frames <= 0 {
		return nil
	}

	spanStart := int64(math.Floor(srcPos))
	spanLen := int(math.Floor(srcPos+rs.ratio*float64(frames-1))) - int(spanStart) + 2
	if spanLen > rs.maxSpan {
		return fmt.Errorf("resampler span %d exceeds prepared capacity %d", spanLen, rs.maxSpan)
	}

	span := rs.scratch
	for ch := range span {
		span[ch] = rs.scratch[ch][:spanLen]
	}
	if _, err := r.ReadAt(span, spanStart, spanLen); err != nil {
		return err
	}

	// Positions are computed per frame by multiplication, matching the span
	// bound above; an accumulating pos += ratio drifts and can step past it.
	base := srcPos - float64(spanStart)
	for i := 0; i < frames; i++ {
		pos := base + float64(i)*rs.ratio
		idx := int(pos)
		if idx > spanLen-2 {
			idx = spanLen - 2
		}
		frac := float32(pos - float64(idx))
		for ch := 0; ch < rs.channels; ch++ {
			s0 := span[ch][idx]
			s1 := span[ch][idx+1]
			dst[ch][dstOff+i] += s0 + frac*(s1-s0)
		}
	}
	return nil
}

// ResampleBuffer converts an in-memory buffer to dstRate. Offline only; the
// result is freshly allocated and the input is left untouched.
func ResampleBuffer(buf *Buffer, dstRate int) *Buffer {
	if buf.SampleRate() == dstRate || buf.SampleRate() <= 0 {
		out := buf.Clone()
		out.sampleRate = dstRate
		return out
	}

	frames := int(math.Round(float64(buf.Frames()) * float64(dstRate) / float64(buf.SampleRate())))
	out := NewBuffer(buf.Channels(), frames, dstRate)

	const block = 4096
	rs := NewResampler(buf.SampleRate(), dstRate, buf.Channels(), block)
	reader := NewBufferReader(buf)
	ratio := float64(buf.SampleRate()) / float64(dstRate)

	dst := make([][]float32, out.Channels())
	for off := 0; off < frames; off += block {
		n := block
		if remain := frames - off; n > remain {
			n = remain
		}
		for ch := range dst {
			dst[ch] = out.Channel(ch)[off : off+n]
		}
		// Render never fails for a buffer-backed reader sized within block.
		_ = rs.Render(reader, float64(off)*ratio, dst, 0, n)
	}
	return out
}
