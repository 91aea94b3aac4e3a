package preview

import (
	"io"
	"testing"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/engine"
	"github.com/nazmulnnb/harp/internal/model"
	"github.com/nazmulnnb/harp/internal/params"
)

func decodeS16LE(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(uint16(b[2*i]) | uint16(b[2*i+1])<<8)
	}
	return out
}

func TestBufferStreamEncodesInterleaved(t *testing.T) {
	buf := audio.NewBuffer(2, 3, 44100)
	copy(buf.Channel(0), []float32{0, 0.5, 1})
	copy(buf.Channel(1), []float32{-1, -0.5, 2}) // 2 must clip to full scale

	raw, err := io.ReadAll(NewBufferStream(buf))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	got := decodeS16LE(raw)
	want := []int16{0, -32767, 16383, -16383, 32767, 32767}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestRendererStreamFailureStreamsSilence(t *testing.T) {
	h := model.NewHandle(&model.StubBackend{})
	defer h.Release()
	if !h.Load(params.Params{"modelPath": params.String("stub.json")}) {
		t.Fatalf("Load() = false, want true")
	}
	src := engine.NewBufferSource("flat", audio.NewBuffer(1, 1000, 1000))
	m, err := engine.NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()

	// Never prepared: every block render fails.
	re := engine.NewRenderer()
	if err := re.AddRegion(engine.NewRegion(m, 0, 0.7, 0)); err != nil {
		t.Fatalf("AddRegion() error = %v", err)
	}

	s := NewRendererStream(re, 1000, 1, 0)
	raw, err := io.ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got, want := len(raw), 700*2; got != want {
		t.Fatalf("stream length = %d bytes, want %d", got, want)
	}
	for i, b := range raw {
		if b != 0 {
			t.Fatalf("byte %d = %d, want silence from a failing renderer", i, b)
		}
	}
	if !s.failed {
		t.Fatalf("stream did not record the renderer failure")
	}
}

func TestRendererStreamEndsAtLastRegion(t *testing.T) {
	h := model.NewHandle(&model.StubBackend{})
	defer h.Release()
	if !h.Load(params.Params{"modelPath": params.String("stub.json")}) {
		t.Fatalf("Load() = false, want true")
	}

	buf := audio.NewBuffer(1, 1000, 1000)
	for i := range buf.Channel(0) {
		buf.Channel(0)[i] = 0.25
	}
	src := engine.NewBufferSource("flat", buf)
	m, err := engine.NewModification(src, h, nil)
	if err != nil {
		t.Fatalf("NewModification() error = %v", err)
	}
	defer m.Close()

	re := engine.NewRenderer()
	if err := re.AddRegion(engine.NewRegion(m, 0, 0.7, 0)); err != nil {
		t.Fatalf("AddRegion() error = %v", err)
	}
	if err := re.PrepareToPlay(1000, 1024, 1, true); err != nil {
		t.Fatalf("PrepareToPlay() error = %v", err)
	}
	defer re.ReleaseResources()

	raw, err := io.ReadAll(NewRendererStream(re, 1000, 1, 0))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got, want := len(raw), 700*2; got != want {
		t.Fatalf("stream length = %d bytes, want %d", got, want)
	}
	samples := decodeS16LE(raw)
	if want := int16(float32(0.25) * 32767); samples[100] != want {
		t.Fatalf("sample 100 = %d, want %d", samples[100], want)
	}
}
