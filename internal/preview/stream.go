package preview

import (
	"io"

	"github.com/rs/zerolog/log"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/engine"
)

const streamBlockFrames = 512

// RendererStream adapts a prepared renderer into a signed 16-bit
// little-endian interleaved byte stream, pulling blocks on demand so a
// preview starts without rendering the whole timeline up front.
type RendererStream struct {
	re       *engine.Renderer
	channels int
	frame    int64
	end      int64
	block    [][]float32
	pending  []byte
	failed   bool
}

// NewRendererStream streams the renderer's timeline from startFrame to the
// end of its last region. The renderer must stay prepared, with a block size
// of at least 512 frames, for the life of the stream.
func NewRendererStream(re *engine.Renderer, sampleRate, channels int, startFrame int64) *RendererStream {
	var end int64
	for _, r := range re.Regions() {
		frames := int64(r.EndInPlaybackTime() * float64(sampleRate))
		if frames > end {
			end = frames
		}
	}
	block := make([][]float32, channels)
	for ch := range block {
		block[ch] = make([]float32, streamBlockFrames)
	}
	return &RendererStream{re: re, channels: channels, frame: startFrame, end: end, block: block}
}

func (s *RendererStream) Read(b []byte) (int, error) {
	if len(s.pending) == 0 {
		if s.frame >= s.end {
			return 0, io.EOF
		}
		n := streamBlockFrames
		if remain := s.end - s.frame; remain < int64(n) {
			n = int(remain)
		}
		for ch := range s.block {
			s.block[ch] = s.block[ch][:n]
		}
		if !s.re.ProcessBlock(s.block, s.frame, true) && !s.failed {
			// Failed blocks stream as silence; say so once, not per block.
			s.failed = true
			log.Warn().Int64("frame", s.frame).Msg("preview render failing, streaming silence")
		}
		s.frame += int64(n)
		s.pending = encodeS16LE(s.block, n)
		for ch := range s.block {
			s.block[ch] = s.block[ch][:cap(s.block[ch])]
		}
	}
	n := copy(b, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// BufferStream serves an in-memory buffer as a signed 16-bit little-endian
// interleaved byte stream.
type BufferStream struct {
	reader  *audio.BufferReader
	scratch [][]float32
	frame   int64
	total   int64
	pending []byte
}

// NewBufferStream streams buf from the beginning.
func NewBufferStream(buf *audio.Buffer) *BufferStream {
	scratch := make([][]float32, buf.Channels())
	for ch := range scratch {
		scratch[ch] = make([]float32, streamBlockFrames)
	}
	return &BufferStream{
		reader:  audio.NewBufferReader(buf),
		scratch: scratch,
		total:   int64(buf.Frames()),
	}
}

func (s *BufferStream) Read(b []byte) (int, error) {
	if len(s.pending) == 0 {
		if s.frame >= s.total {
			return 0, io.EOF
		}
		n := streamBlockFrames
		if remain := s.total - s.frame; remain < int64(n) {
			n = int(remain)
		}
		if _, err := s.reader.ReadAt(s.scratch, s.frame, n); err != nil {
			return 0, err
		}
		s.frame += int64(n)
		s.pending = encodeS16LE(s.scratch, n)
	}
	n := copy(b, s.pending)
	s.pending = s.pending[n:]
	return n, nil
}

// encodeS16LE interleaves frames and quantizes to signed 16-bit
// little-endian, clipping out-of-range samples.
func encodeS16LE(block [][]float32, frames int) []byte {
	channels := len(block)
	out := make([]byte, frames*channels*2)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			v := block[ch][i]
			if v > 1 {
				v = 1
			} else if v < -1 {
				v = -1
			}
			s := int16(v * 32767)
			idx := (i*channels + ch) * 2
			out[idx] = byte(s)
			out[idx+1] = byte(s >> 8)
		}
	}
	return out
}
