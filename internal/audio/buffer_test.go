package audio

import "testing"

func TestBufferShape(t *testing.T) {
	b := NewBuffer(2, 128, 48000)

	if b.Channels() != 2 {
		t.Fatalf("Channels() = %d, want 2", b.Channels())
	}
	if b.Frames() != 128 {
		t.Fatalf("Frames() = %d, want 128", b.Frames())
	}
	if b.SampleRate() != 48000 {
		t.Fatalf("SampleRate() = %d, want 48000", b.SampleRate())
	}
}

func TestBufferCloneIsDeep(t *testing.T) {
	b := NewBuffer(1, 4, 44100)
	b.Channel(0)[2] = 0.5

	c := b.Clone()
	c.Channel(0)[2] = -0.25

	if got := b.Channel(0)[2]; got != 0.5 {
		t.Fatalf("original sample = %v after clone write, want 0.5", got)
	}
	if got := c.Channel(0)[2]; got != -0.25 {
		t.Fatalf("clone sample = %v, want -0.25", got)
	}
}

func TestBufferClearAndPeak(t *testing.T) {
	b := NewBuffer(2, 3, 44100)
	b.Channel(0)[1] = 0.75
	b.Channel(1)[2] = -0.9

	if got := b.Peak(); got != 0.9 {
		t.Fatalf("Peak() = %v, want 0.9", got)
	}

	b.Clear()
	if got := b.Peak(); got != 0 {
		t.Fatalf("Peak() after Clear() = %v, want 0", got)
	}
}
