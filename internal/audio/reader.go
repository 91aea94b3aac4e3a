package audio

import (
	"fmt"
	"io"
	"sync"
)

// Reader provides frame-addressed access to the samples of one audio source.
// Implementations are safe for a single reader goroutine; the playback path
// and the processing path each hold their own Reader over a source.
type Reader interface {
	// Channels returns the source channel count.
	Channels() int
	// SampleRate returns the source sample rate in Hz.
	SampleRate() int
	// NumFrames returns the total frame count.
	NumFrames() int64
	// ReadAt fills dst[ch][:n] with up to n frames starting at frame.
	// Frames past the end of the source read as silence; the returned count
	// is the number of frames containing real source data.
	ReadAt(dst [][]float32, frame int64, n int) (int, error)
	// Close releases the underlying resource.
	Close() error
}

// BufferReader adapts an in-memory Buffer to the Reader interface.
type BufferReader struct {
	buf *Buffer
}

// NewBufferReader wraps buf. The reader does not copy; the buffer must not
// be mutated while reads are in flight.
func NewBufferReader(buf *Buffer) *BufferReader {
	return &BufferReader{buf: buf}
}

// Reset points the reader at a different buffer without allocating. Used on
// the playback path where readers are prepared ahead of time.
func (r *BufferReader) Reset(buf *Buffer) { r.buf = buf }

func (r *BufferReader) Channels() int    { return r.buf.Channels() }
func (r *BufferReader) SampleRate() int  { return r.buf.SampleRate() }
func (r *BufferReader) NumFrames() int64 { return int64(r.buf.Frames()) }
func (r *BufferReader) Close() error     { return nil }

func (r *BufferReader) ReadAt(dst [][]float32, frame int64, n int) (int, error) {
	if len(dst) != r.buf.Channels() {
		return 0, ErrChannelMismatch
	}
	total := int64(r.buf.Frames())
	read := 0
	for ch := range dst {
		src := r.buf.Channel(ch)
		out := dst[ch][:n]
		for i := range out {
			pos := frame + int64(i)
			if pos < 0 || pos >= total {
				out[i] = 0
				continue
			}
			out[i] = src[pos]
			if ch == 0 {
				read++
			}
		}
	}
	return read, nil
}

// fileReader serializes frame-addressed reads over a sequential decoder.
// Decoders only stream forward, so a read at an earlier position seeks first.
type fileReader struct {
	mu     sync.Mutex
	dec    frameDecoder
	pos    int64 // next source frame the decoder will produce
	buf    []float32
	closed bool
}

// primeFrames sizes the interleave scratch up front so steady-state reads
// on the playback path never allocate. Larger reads still grow it once.
const primeFrames = 8192

// newFileReader wraps a decoder. Callers use OpenFile instead.
func newFileReader(dec frameDecoder) *fileReader {
	return &fileReader{
		dec: dec,
		buf: make([]float32, primeFrames*dec.Channels()),
	}
}

func (r *fileReader) Channels() int    { return r.dec.Channels() }
func (r *fileReader) SampleRate() int  { return r.dec.SampleRate() }
func (r *fileReader) NumFrames() int64 { return r.dec.NumFrames() }

func (r *fileReader) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	return r.dec.Close()
}

func (r *fileReader) ReadAt(dst [][]float32, frame int64, n int) (int, error) {
	channels := r.dec.Channels()
	if len(dst) != channels {
		return 0, ErrChannelMismatch
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return 0, ErrClosed
	}

	for ch := range dst {
		clearFrames(dst[ch][:n])
	}

	total := r.dec.NumFrames()
	start := frame
	skip := 0
	if start < 0 {
		skip = int(-start)
		start = 0
	}
	if start >= total || skip >= n {
		return 0, nil
	}

	want := n - skip
	if remain := total - start; int64(want) > remain {
		want = int(remain)
	}
	if want <= 0 {
		return 0, nil
	}

	if start != r.pos {
		if err := r.dec.SeekFrame(start); err != nil {
			return 0, fmt.Errorf("seek to frame %d: %w", start, err)
		}
		r.pos = start
	}

	need := want * channels
	if cap(r.buf) < need {
		r.buf = make([]float32, need)
	}
	interleaved := r.buf[:need]

	got := 0
	for got < want {
		m, err := r.dec.ReadFrames(interleaved[got*channels:])
		got += m
		if err == io.EOF {
			break
		}
		if err != nil {
			return 0, fmt.Errorf("read frames at %d: %w", r.pos+int64(got), err)
		}
		if m == 0 {
			break
		}
	}
	r.pos += int64(got)

	for ch := range dst {
		out := dst[ch][skip : skip+got]
		for i := range out {
			out[i] = interleaved[i*channels+ch]
		}
	}
	return got, nil
}

// ReadAll reads the entire source into a freshly allocated buffer.
// Intended for the offline processing path, never for real-time rendering.
func ReadAll(r Reader) (*Buffer, error) {
	frames := r.NumFrames()
	buf := NewBuffer(r.Channels(), int(frames), r.SampleRate())

	dst := make([][]float32, buf.Channels())
	const block = 8192
	for off := int64(0); off < frames; off += block {
		n := block
		if remain := frames - off; int64(n) > remain {
			n = int(remain)
		}
		for ch := range dst {
			dst[ch] = buf.Channel(ch)[off : off+int64(n)]
		}
		if _, err := r.ReadAt(dst, off, n); err != nil {
			return nil, err
		}
	}
	return buf, nil
}

func clearFrames(s []float32) {
	for i := range s {
		s[i] = 0
	}
}
