package model

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/params"
)

func loadParams() params.Params {
	return params.Params{"modelPath": params.String("/dev/null/model.json")}
}

func TestHandleStartsUnloaded(t *testing.T) {
	h := NewHandle(&StubBackend{})

	if h.Ready() {
		t.Fatal("Ready() = true before Load")
	}
	if got := h.State(); got != StateUnloaded {
		t.Fatalf("State() = %v, want unloaded", got)
	}
	if _, ok := h.Card(); ok {
		t.Fatal("Card() ok = true before Load")
	}
}

func TestLoadMissingPathParam(t *testing.T) {
	backend := &StubBackend{}
	h := NewHandle(backend)

	if h.Load(params.Params{"gain": params.Number(1)}) {
		t.Fatal("Load() without a path param should return false")
	}
	if backend.Loads() != 0 {
		t.Fatalf("backend saw %d loads, want 0", backend.Loads())
	}
	if got := h.State(); got != StateUnloaded {
		t.Fatalf("State() = %v, want unloaded (no mutation on config error)", got)
	}
}

func TestLoadFailureIsRetryable(t *testing.T) {
	backend := &StubBackend{LoadErr: errors.New("no such model")}
	h := NewHandle(backend)

	if h.Load(loadParams()) {
		t.Fatal("Load() should fail")
	}
	if got := h.State(); got != StateFailed {
		t.Fatalf("State() = %v, want failed", got)
	}
	if h.Ready() {
		t.Fatal("Ready() = true after failed load")
	}

	backend.LoadErr = nil
	if !h.Load(loadParams()) {
		t.Fatal("retry Load() should succeed")
	}
	if !h.Ready() {
		t.Fatal("Ready() = false after successful retry")
	}
}

func TestLoadNotifiesObservers(t *testing.T) {
	backend := &StubBackend{CardOut: Card{Name: "wave2wave", Author: "lab", SampleRate: 22050}}
	h := NewHandle(backend)

	var mu sync.Mutex
	var got []Card
	h.Subscribe(func(c Card) {
		mu.Lock()
		got = append(got, c)
		mu.Unlock()
	})

	if !h.Load(loadParams()) {
		t.Fatal("Load() failed")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("observer fired %d times, want 1", len(got))
	}
	if got[0].Name != "wave2wave" || got[0].SampleRate != 22050 {
		t.Fatalf("observer card = %+v", got[0])
	}

	card, ok := h.Card()
	if !ok || card.Author != "lab" {
		t.Fatalf("Card() = %+v, %v", card, ok)
	}
}

func TestProcessBeforeLoad(t *testing.T) {
	h := NewHandle(&StubBackend{Scale: 2})

	buf := audio.NewBuffer(1, 4, 44100)
	buf.Channel(0)[0] = 0.5
	if err := h.Process(buf, 44100, nil); !errors.Is(err, ErrNotReady) {
		t.Fatalf("Process() before load error = %v, want ErrNotReady", err)
	}
	if buf.Channel(0)[0] != 0.5 {
		t.Fatal("Process() before load mutated the buffer")
	}
}

func TestProcessSerializedAcrossSharers(t *testing.T) {
	backend := &StubBackend{Scale: 2, Delay: 20 * time.Millisecond}
	h := NewHandle(backend)
	if !h.Load(loadParams()) {
		t.Fatal("Load() failed")
	}

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			buf := audio.NewBuffer(1, 8, 44100)
			for j := range buf.Channel(0) {
				buf.Channel(0)[j] = 0.25
			}
			if err := h.Process(buf, 44100, nil); err != nil {
				t.Errorf("Process() error = %v", err)
				return
			}
			for j, s := range buf.Channel(0) {
				if s != 0.5 {
					t.Errorf("sample %d = %v, want 0.5", j, s)
					return
				}
			}
		}()
	}
	wg.Wait()

	if got := backend.MaxConcurrent(); got != 1 {
		t.Fatalf("max concurrent Process calls = %d, want 1", got)
	}
}

func TestReleaseClosesBackendOnce(t *testing.T) {
	backend := &StubBackend{}
	h := NewHandle(backend)

	h.Retain()
	h.Release()
	if got := h.State(); got != StateUnloaded {
		t.Fatalf("State() = %v after non-final release", got)
	}
	h.Release()
}
