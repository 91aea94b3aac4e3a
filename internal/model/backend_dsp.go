package model

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/params"
)

// DSPBackend runs a waveform-to-waveform effect chain described by a model
// file: a JSON document carrying the model card plus an ordered list of
// effect stages. The chain processes at the card's native sample rate; input
// is resampled in, transformed, and resampled back to its original shape.
type DSPBackend struct {
	card  Card
	chain []effect
}

// NewDSPBackend returns an empty backend; Load binds it to a model file.
func NewDSPBackend() *DSPBackend {
	return &DSPBackend{}
}

type modelFile struct {
	Card
	Effects []effectSpec `json:"effects"`
}

type effectSpec struct {
	Type     string  `json:"type"`
	DB       float64 `json:"db"`
	Amount   float64 `json:"amount"`
	CutoffHz float64 `json:"cutoff_hz"`
}

// effect transforms one channel in place at the given sample rate. Stages
// read overrides from process params by their configured name.
type effect interface {
	apply(samples []float32, sampleRate int, p params.Params)
}

func (b *DSPBackend) Load(path string, _ params.Params) (Card, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Card{}, fmt.Errorf("reading model file: %w", err)
	}

	var mf modelFile
	if err := json.Unmarshal(raw, &mf); err != nil {
		return Card{}, fmt.Errorf("parsing model file: %w", err)
	}
	if mf.Name == "" {
		return Card{}, fmt.Errorf("model file %s: missing name", path)
	}

	chain := make([]effect, 0, len(mf.Effects))
	for _, spec := range mf.Effects {
		stage, err := buildEffect(spec)
		if err != nil {
			return Card{}, fmt.Errorf("model file %s: %w", path, err)
		}
		chain = append(chain, stage)
	}

	b.card = mf.Card
	b.chain = chain
	return b.card, nil
}

func buildEffect(spec effectSpec) (effect, error) {
	switch spec.Type {
	case "gain":
		return &gainEffect{db: clamp(spec.DB, -60, 24)}, nil
	case "drive":
		amount := spec.Amount
		if amount < 1 {
			amount = 1
		}
		return &driveEffect{amount: clamp(amount, 1, 100)}, nil
	case "lowpass":
		return &lowpassEffect{cutoffHz: clamp(spec.CutoffHz, 20, 20000)}, nil
	default:
		return nil, fmt.Errorf("unknown effect type %q", spec.Type)
	}
}

func (b *DSPBackend) Process(buf *audio.Buffer, sampleRate int, p params.Params) error {
	if len(b.chain) == 0 {
		return fmt.Errorf("dsp backend: no model loaded")
	}

	channels := buf.Channels()
	frames := buf.Frames()

	work := buf
	native := b.card.SampleRate
	if native > 0 && native != sampleRate {
		log.Debug().
			Int("from", sampleRate).
			Int("to", native).
			Msg("resampling to model native rate")
		tmp := audio.NewBuffer(channels, frames, sampleRate)
		for ch := 0; ch < channels; ch++ {
			copy(tmp.Channel(ch), buf.Channel(ch))
		}
		work = audio.ResampleBuffer(tmp, native)
	}

	rate := work.SampleRate()
	for _, stage := range b.chain {
		for ch := 0; ch < channels; ch++ {
			stage.apply(work.Channel(ch), rate, p)
		}
	}

	if work != buf {
		restored := audio.ResampleBuffer(work, sampleRate)
		for ch := 0; ch < channels; ch++ {
			dst := buf.Channel(ch)
			src := restored.Channel(ch)
			n := copy(dst, src)
			// Round-trip resampling can come back a frame short; pad silence.
			for i := n; i < frames; i++ {
				dst[i] = 0
			}
		}
	}
	return nil
}

func (b *DSPBackend) Close() error {
	b.chain = nil
	return nil
}

// --- effect stages ---

type gainEffect struct {
	db float64
}

func (e *gainEffect) apply(samples []float32, _ int, p params.Params) {
	db := e.db
	if v, err := p.Number("gain"); err == nil {
		db = clamp(v, -60, 24)
	}
	g := float32(math.Pow(10, db/20))
	for i := range samples {
		samples[i] *= g
	}
}

type driveEffect struct {
	amount float64
}

func (e *driveEffect) apply(samples []float32, _ int, p params.Params) {
	amount := e.amount
	if v, err := p.Number("drive"); err == nil {
		amount = clamp(v, 1, 100)
	}
	norm := float32(math.Tanh(amount))
	a := float32(amount)
	for i := range samples {
		samples[i] = float32(math.Tanh(float64(samples[i]*a))) / norm
	}
}

type lowpassEffect struct {
	cutoffHz float64
}

func (e *lowpassEffect) apply(samples []float32, sampleRate int, p params.Params) {
	cutoff := e.cutoffHz
	if v, err := p.Number("cutoff_hz"); err == nil {
		cutoff = clamp(v, 20, 20000)
	}
	// One-pole low-pass: y[n] = a*x[n] + (1-a)*y[n-1].
	rc := 1 / (2 * math.Pi * cutoff)
	dt := 1 / float64(sampleRate)
	a := float32(dt / (rc + dt))
	var prev float32
	for i := range samples {
		prev = a*samples[i] + (1-a)*prev
		samples[i] = prev
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
