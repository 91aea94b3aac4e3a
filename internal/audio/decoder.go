package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
	"github.com/jfreymuth/oggvorbis"
	"github.com/mewkiz/flac"
)

// frameDecoder streams interleaved float32 frames from one container format.
// Decoders are forward-only; SeekFrame repositions the stream.
type frameDecoder interface {
	// ReadFrames fills dst (a multiple of Channels values) and returns the
	// number of whole frames produced.
	ReadFrames(dst []float32) (int, error)
	SeekFrame(frame int64) error
	NumFrames() int64
	SampleRate() int
	Channels() int
	Close() error
}

// OpenFile opens an audio file as a frame-addressed Reader, detecting the
// format by extension.
func OpenFile(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	var dec frameDecoder
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".wav":
		dec, err = newWAVDecoder(f)
	case ".mp3":
		dec, err = newMP3Decoder(f)
	case ".flac":
		dec, err = newFLACDecoder(f)
	case ".ogg":
		dec, err = newOGGDecoder(f)
	default:
		f.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		f.Close()
		return nil, err
	}
	return newFileReader(dec), nil
}

// --- WAV decoder ---

type wavDecoder struct {
	file        *os.File
	pcmStart    int64 // byte offset where PCM data begins
	frame       int64
	numFrames   int64
	sampleRate  int
	channels    int
	srcBitDepth int
	raw         []byte
}

func newWAVDecoder(f *os.File) (*wavDecoder, error) {
	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return nil, fmt.Errorf("invalid WAV file")
	}
	if err := dec.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("reading WAV PCM data: %w", err)
	}

	channels := int(dec.NumChans)
	bitDepth := int(dec.BitDepth)
	if channels < 1 || bitDepth%8 != 0 || bitDepth > 32 {
		return nil, fmt.Errorf("unsupported WAV layout: %d ch, %d bit", channels, bitDepth)
	}
	frameSize := int64(channels) * int64(bitDepth) / 8

	pcmStart, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return nil, fmt.Errorf("getting PCM start position: %w", err)
	}

	return &wavDecoder{
		file:        f,
		pcmStart:    pcmStart,
		numFrames:   dec.PCMLen() / frameSize,
		sampleRate:  int(dec.SampleRate),
		channels:    channels,
		srcBitDepth: bitDepth,
	}, nil
}

func (d *wavDecoder) SampleRate() int  { return d.sampleRate }
func (d *wavDecoder) Channels() int    { return d.channels }
func (d *wavDecoder) NumFrames() int64 { return d.numFrames }
func (d *wavDecoder) Close() error     { return d.file.Close() }

func (d *wavDecoder) SeekFrame(frame int64) error {
	frameSize := int64(d.channels) * int64(d.srcBitDepth) / 8
	if _, err := d.file.Seek(d.pcmStart+frame*frameSize, io.SeekStart); err != nil {
		return err
	}
	d.frame = frame
	return nil
}

func (d *wavDecoder) ReadFrames(dst []float32) (int, error) {
	frames := len(dst) / d.channels
	if remain := d.numFrames - d.frame; int64(frames) > remain {
		frames = int(remain)
	}
	if frames <= 0 {
		return 0, io.EOF
	}

	bytesPerSample := d.srcBitDepth / 8
	need := frames * d.channels * bytesPerSample
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	raw := d.raw[:need]

	n, err := io.ReadFull(d.file, raw)
	got := n / (d.channels * bytesPerSample)
	if got == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}

	for i := 0; i < got*d.channels; i++ {
		off := i * bytesPerSample
		var s float32
		switch d.srcBitDepth {
		case 8:
			// 8-bit WAV is unsigned
			s = float32(int(raw[off])-128) / 128
		case 16:
			s = float32(int16(binary.LittleEndian.Uint16(raw[off:]))) / 32768
		case 24:
			v := int32(raw[off]) | int32(raw[off+1])<<8 | int32(raw[off+2])<<16
			if v&0x800000 != 0 {
				v |= ^0xFFFFFF // sign extend
			}
			s = float32(v) / 8388608
		case 32:
			s = float32(int32(binary.LittleEndian.Uint32(raw[off:]))) / 2147483648
		}
		dst[i] = s
	}
	d.frame += int64(got)
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return got, err
}

// --- MP3 decoder ---

// go-mp3 always yields 16-bit stereo at the stream rate.
type mp3Decoder struct {
	file *os.File
	dec  *mp3.Decoder
	raw  []byte
}

func newMP3Decoder(f *os.File) (*mp3Decoder, error) {
	dec, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}
	return &mp3Decoder{file: f, dec: dec}, nil
}

func (d *mp3Decoder) SampleRate() int  { return d.dec.SampleRate() }
func (d *mp3Decoder) Channels() int    { return 2 }
func (d *mp3Decoder) NumFrames() int64 { return d.dec.Length() / 4 }
func (d *mp3Decoder) Close() error     { return d.file.Close() }

func (d *mp3Decoder) SeekFrame(frame int64) error {
	_, err := d.dec.Seek(frame*4, io.SeekStart)
	return err
}

func (d *mp3Decoder) ReadFrames(dst []float32) (int, error) {
	frames := len(dst) / 2
	need := frames * 4
	if cap(d.raw) < need {
		d.raw = make([]byte, need)
	}
	raw := d.raw[:need]

	n, err := io.ReadFull(d.dec, raw)
	got := n / 4
	if got == 0 {
		if err == nil || err == io.ErrUnexpectedEOF {
			err = io.EOF
		}
		return 0, err
	}
	for i := 0; i < got*2; i++ {
		dst[i] = float32(int16(binary.LittleEndian.Uint16(raw[i*2:]))) / 32768
	}
	if err == io.ErrUnexpectedEOF {
		err = nil
	}
	return got, err
}

// --- FLAC decoder ---

type flacDecoder struct {
	file       *os.File
	stream     *flac.Stream
	pending    []float32 // interleaved leftovers from the last parsed frame
	skip       []float32 // reused while decoding forward after a seek
	numFrames  int64
	sampleRate int
	channels   int
	bps        int
}

func newFLACDecoder(f *os.File) (*flacDecoder, error) {
	stream, err := flac.NewSeek(f)
	if err != nil {
		return nil, fmt.Errorf("decoding FLAC: %w", err)
	}
	info := stream.Info
	return &flacDecoder{
		file:       f,
		stream:     stream,
		numFrames:  int64(info.NSamples),
		sampleRate: int(info.SampleRate),
		channels:   int(info.NChannels),
		bps:        int(info.BitsPerSample),
	}, nil
}

func (d *flacDecoder) SampleRate() int  { return d.sampleRate }
func (d *flacDecoder) Channels() int    { return d.channels }
func (d *flacDecoder) NumFrames() int64 { return d.numFrames }
func (d *flacDecoder) Close() error     { return d.file.Close() }

func (d *flacDecoder) SeekFrame(frame int64) error {
	got, err := d.stream.Seek(uint64(frame))
	if err != nil {
		return err
	}
	d.pending = d.pending[:0]
	// Seek lands on a frame boundary at or before the target; decode forward.
	if skip := frame - int64(got); skip > 0 {
		need := int(skip) * d.channels
		if cap(d.skip) < need {
			d.skip = make([]float32, need)
		}
		scratch := d.skip[:need]
		for len(scratch) > 0 {
			n, err := d.ReadFrames(scratch)
			if err != nil {
				return err
			}
			scratch = scratch[n*d.channels:]
		}
	}
	return nil
}

func (d *flacDecoder) ReadFrames(dst []float32) (int, error) {
	frames := len(dst) / d.channels
	written := 0

	for written < frames {
		if len(d.pending) == 0 {
			frame, err := d.stream.ParseNext()
			if err != nil {
				if written > 0 {
					return written, nil
				}
				return 0, err
			}
			n := int(frame.Subframes[0].NSamples)
			scale := float32(int64(1) << (d.bps - 1))
			for i := 0; i < n; i++ {
				for ch := 0; ch < d.channels; ch++ {
					d.pending = append(d.pending, float32(frame.Subframes[ch].Samples[i])/scale)
				}
			}
		}

		want := (frames - written) * d.channels
		n := copy(dst[written*d.channels:], d.pending[:min(want, len(d.pending))])
		d.pending = d.pending[n:]
		written += n / d.channels
	}
	return written, nil
}

// --- OGG Vorbis decoder ---

type oggDecoder struct {
	file   *os.File
	reader *oggvorbis.Reader
}

func newOGGDecoder(f *os.File) (*oggDecoder, error) {
	reader, err := oggvorbis.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("decoding OGG: %w", err)
	}
	return &oggDecoder{file: f, reader: reader}, nil
}

func (d *oggDecoder) SampleRate() int  { return d.reader.SampleRate() }
func (d *oggDecoder) Channels() int    { return d.reader.Channels() }
func (d *oggDecoder) NumFrames() int64 { return d.reader.Length() }
func (d *oggDecoder) Close() error     { return d.file.Close() }

func (d *oggDecoder) SeekFrame(frame int64) error {
	return d.reader.SetPosition(frame)
}

func (d *oggDecoder) ReadFrames(dst []float32) (int, error) {
	channels := d.reader.Channels()
	read := 0
	for read < len(dst) {
		n, err := d.reader.Read(dst[read:])
		read += n
		if err != nil {
			if read >= channels {
				break
			}
			return 0, err
		}
		if n == 0 {
			break
		}
	}
	return read / channels, nil
}
