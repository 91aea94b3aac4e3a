package audio

import (
	"fmt"
	"os"

	gadio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// WriteWAV writes buf to path as 16-bit PCM WAV.
func WriteWAV(path string, buf *Buffer) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	channels := buf.Channels()
	frames := buf.Frames()

	enc := wav.NewEncoder(f, buf.SampleRate(), 16, channels, 1)
	ib := &gadio.IntBuffer{
		Format: &gadio.Format{
			NumChannels: channels,
			SampleRate:  buf.SampleRate(),
		},
		SourceBitDepth: 16,
		Data:           make([]int, frames*channels),
	}

	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			s := buf.Channel(ch)[i]
			if s > 1 {
				s = 1
			} else if s < -1 {
				s = -1
			}
			ib.Data[i*channels+ch] = int(s * 32767)
		}
	}

	if err := enc.Write(ib); err != nil {
		return fmt.Errorf("writing PCM data: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("finalizing WAV: %w", err)
	}
	return nil
}
