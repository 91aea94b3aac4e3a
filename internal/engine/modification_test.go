package engine

import (
	"errors"
	"testing"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/model"
	"github.com/nazmulnnb/harp/internal/params"
)

// rampBuffer builds a buffer whose samples increase linearly per channel so
// renders are easy to check against expectations.
func rampBuffer(channels, frames, rate int) *audio.Buffer {
	buf := audio.NewBuffer(channels, frames, rate)
	for ch := 0; ch < channels; ch++ {
		s := buf.Channel(ch)
		for i := range s {
			s[i] = float32(ch+1) * float32(i) / float32(frames)
		}
	}
	return buf
}

func loadedHandle(t *testing.T, b model.Backend) *model.Handle {
	t.Helper()
	h := model.NewHandle(b)
	t.Cleanup(h.Release)
	if !h.Load(params.Params{"modelPath": params.String("stub.json")}) {
		t.Fatalf("Load() = false, want true")
	}
	return h
}

func TestProcessWithoutModelIsNoop(t *testing.T) {
	stub := &model.StubBackend{Scale: 0.5}
	h := model.NewHandle(stub)
	defer h.Release()
	src := NewBufferSource("ramp", rampBuffer(1, 100, 44100))
	m, err := NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()

	if m.Process(nil) {
		t.Fatalf("Process() = true before any model load")
	}
	if m.IsModified() {
		t.Fatalf("IsModified() = true, want false")
	}
	if m.ModifiedBuffer() != nil {
		t.Fatalf("ModifiedBuffer() = %v, want nil", m.ModifiedBuffer())
	}
	if got := stub.Processes(); got != 0 {
		t.Fatalf("Processes() = %d, want 0", got)
	}
}

func TestProcessPublishesModifiedBuffer(t *testing.T) {
	stub := &model.StubBackend{Scale: 0.5}
	h := loadedHandle(t, stub)
	src := NewBufferSource("ramp", rampBuffer(2, 200, 44100))
	m, err := NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()

	if !m.Process(nil) {
		t.Fatalf("Process() = false, want true")
	}
	if !m.IsModified() {
		t.Fatalf("IsModified() = false, want true")
	}
	buf := m.ModifiedBuffer()
	if buf == nil {
		t.Fatalf("ModifiedBuffer() = nil after process")
	}
	if buf.Channels() != 2 || buf.Frames() != 200 {
		t.Fatalf("modified shape = (%d, %d), want (2, 200)", buf.Channels(), buf.Frames())
	}
	want := float32(100) / 200 * 0.5
	if got := buf.Channel(0)[100]; got != want {
		t.Fatalf("modified sample = %v, want %v", got, want)
	}
	if got := m.Generation(); got != 1 {
		t.Fatalf("Generation() = %d, want 1", got)
	}
}

func TestProcessFailureKeepsPriorState(t *testing.T) {
	stub := &model.StubBackend{Scale: 0.5}
	h := loadedHandle(t, stub)
	src := NewBufferSource("ramp", rampBuffer(1, 100, 44100))
	m, err := NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()

	if !m.Process(nil) {
		t.Fatalf("Process() = false, want true")
	}
	prior := m.ModifiedBuffer()

	stub.ProcessErr = errors.New("cuda out of memory")
	if m.Process(nil) {
		t.Fatalf("Process() = true with failing backend")
	}
	if m.ModifiedBuffer() != prior {
		t.Fatalf("ModifiedBuffer() changed after failed process")
	}
	if !m.IsModified() {
		t.Fatalf("IsModified() = false after failed process, want prior true")
	}
	if got := m.Generation(); got != 1 {
		t.Fatalf("Generation() = %d after failed process, want 1", got)
	}
}

func TestProcessRecoversBackendPanic(t *testing.T) {
	stub := &model.StubBackend{PanicOnCall: true}
	h := loadedHandle(t, stub)
	src := NewBufferSource("ramp", rampBuffer(1, 50, 48000))
	m, err := NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()

	if m.Process(nil) {
		t.Fatalf("Process() = true with panicking backend")
	}
	if m.IsModified() {
		t.Fatalf("IsModified() = true after panic, want false")
	}
}

func TestCloneCopiesMetadataOnly(t *testing.T) {
	stub := &model.StubBackend{Scale: 2}
	h := loadedHandle(t, stub)
	src := NewBufferSource("original", rampBuffer(1, 100, 22050))
	m, err := NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()
	if !m.Process(nil) {
		t.Fatalf("Process() = false, want true")
	}
	m.SetDimmed(true)

	clone, err := NewModification(src, h, m)
	if err != nil {
		t.Fatalf("NewModification(clone) error = %v", err)
	}
	defer clone.Close()

	if clone.SourceName() != m.SourceName() {
		t.Fatalf("clone SourceName() = %q, want %q", clone.SourceName(), m.SourceName())
	}
	if clone.SampleRate() != m.SampleRate() {
		t.Fatalf("clone SampleRate() = %d, want %d", clone.SampleRate(), m.SampleRate())
	}
	if !clone.IsDimmed() {
		t.Fatalf("clone IsDimmed() = false, want true")
	}
	if clone.IsModified() {
		t.Fatalf("clone IsModified() = true, want false")
	}
	if clone.ModifiedBuffer() != nil {
		t.Fatalf("clone ModifiedBuffer() != nil, want nil")
	}
	if clone.ID() == m.ID() {
		t.Fatalf("clone ID() = original ID, want distinct")
	}
}

func TestSetDimmedRoundTrip(t *testing.T) {
	h := loadedHandle(t, &model.StubBackend{})
	src := NewBufferSource("ramp", rampBuffer(1, 10, 44100))
	m, err := NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()

	if m.IsDimmed() {
		t.Fatalf("IsDimmed() = true on fresh modification")
	}
	m.SetDimmed(true)
	if !m.IsDimmed() {
		t.Fatalf("IsDimmed() = false after SetDimmed(true)")
	}
	m.SetDimmed(false)
	if m.IsDimmed() {
		t.Fatalf("IsDimmed() = true after SetDimmed(false)")
	}
}
