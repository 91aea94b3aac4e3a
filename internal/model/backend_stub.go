package model

import (
	"sync"
	"time"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/params"
)

// StubBackend is a fake transform for tests and for running the engine
// without a model file. Process scales every sample by Scale after an
// optional artificial delay.
type StubBackend struct {
	CardOut     Card
	LoadErr     error
	ProcessErr  error
	Scale       float32
	Delay       time.Duration
	PanicOnCall bool

	mu        sync.Mutex
	loads     int
	processes int
	inFlight  int
	maxActive int
}

func (b *StubBackend) Load(path string, _ params.Params) (Card, error) {
	b.mu.Lock()
	b.loads++
	b.mu.Unlock()

	if b.LoadErr != nil {
		return Card{}, b.LoadErr
	}
	card := b.CardOut
	if card.Name == "" {
		card = Card{Name: "stub", Author: "test", SampleRate: 0}
	}
	return card, nil
}

func (b *StubBackend) Process(buf *audio.Buffer, _ int, _ params.Params) error {
	b.mu.Lock()
	b.processes++
	b.inFlight++
	if b.inFlight > b.maxActive {
		b.maxActive = b.inFlight
	}
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		b.inFlight--
		b.mu.Unlock()
	}()

	if b.PanicOnCall {
		panic("stub backend: forced panic")
	}
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}
	if b.ProcessErr != nil {
		return b.ProcessErr
	}

	scale := b.Scale
	if scale == 0 {
		scale = 1
	}
	for ch := 0; ch < buf.Channels(); ch++ {
		s := buf.Channel(ch)
		for i := range s {
			s[i] *= scale
		}
	}
	return nil
}

func (b *StubBackend) Close() error { return nil }

// Loads returns how many times Load ran.
func (b *StubBackend) Loads() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.loads
}

// Processes returns how many times Process ran.
func (b *StubBackend) Processes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.processes
}

// MaxConcurrent returns the highest number of Process calls observed in
// flight at once; 1 proves serialization through a shared handle.
func (b *StubBackend) MaxConcurrent() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.maxActive
}
