package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/nazmulnnb/harp/internal/audio"
	"github.com/nazmulnnb/harp/internal/config"
	"github.com/nazmulnnb/harp/internal/engine"
	"github.com/nazmulnnb/harp/internal/model"
	"github.com/nazmulnnb/harp/internal/params"
	"github.com/nazmulnnb/harp/internal/preview"
)

var waveformRunes = []rune("▁▂▃▄▅▆▇█")

// paramFlags collects repeatable -set key=value arguments.
type paramFlags []string

func (p *paramFlags) String() string { return strings.Join(*p, ",") }

func (p *paramFlags) Set(v string) error {
	if !strings.Contains(v, "=") {
		return fmt.Errorf("expected key=value, got %q", v)
	}
	*p = append(*p, v)
	return nil
}

// parseParams turns key=value pairs into typed parameters: numbers and
// booleans when they parse as such, strings otherwise.
func parseParams(pairs []string) params.Params {
	p := params.Params{}
	for _, pair := range pairs {
		key, raw, _ := strings.Cut(pair, "=")
		if n, err := strconv.ParseFloat(raw, 64); err == nil {
			p[key] = params.Number(n)
		} else if raw == "true" || raw == "false" {
			p[key] = params.Bool(raw == "true")
		} else {
			p[key] = params.String(raw)
		}
	}
	return p
}

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMs
	lvl := zerolog.InfoLevel
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		if l, err := zerolog.ParseLevel(v); err == nil {
			lvl = l
		}
	}
	log.Logger = log.Level(lvl)

	cfg := config.Load()
	modelPath := flag.String("model", cfg.ModelPath, "model file to load")
	outDir := flag.String("out", ".", "directory for processed WAV files")
	doPreview := flag.Bool("preview", cfg.Preview, "play the processed timeline on the system output")
	showWave := flag.Bool("waveform", false, "print a waveform overview per file")
	var sets paramFlags
	flag.Var(&sets, "set", "model parameter as key=value (repeatable)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: harp -model model.json [-out dir] [-set key=value]... file...")
		os.Exit(2)
	}
	if *modelPath == "" {
		fmt.Fprintln(os.Stderr, "no model given: pass -model or set HARP_MODEL_PATH")
		os.Exit(2)
	}

	h := model.NewHandle(model.NewDSPBackend())
	defer h.Release()
	h.Subscribe(func(card model.Card) {
		fmt.Printf("model: %s by %s", card.Name, card.Author)
		if card.Description != "" {
			fmt.Printf(" - %s", card.Description)
		}
		fmt.Println()
	})

	doc := engine.NewDocument(h)
	defer doc.Close()
	waves := engine.NewWaveformCache()
	doc.Subscribe(func(c engine.ContentChange) {
		waves.Invalidate(c.ModificationID)
		log.Debug().Str("modification", c.ModificationID).
			Int("regions", len(c.RegionIDs)).Msg("content changed")
	})

	type entry struct {
		mod  *engine.Modification
		path string
	}
	var entries []entry
	re := engine.NewRenderer()
	for _, path := range flag.Args() {
		src, err := doc.AddFileSource(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("opening input")
		}
		m, err := doc.CreateModification(src, nil)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("creating modification")
		}
		durSec := float64(src.NumFrames()) / float64(src.SampleRate())
		r := doc.CreateRegion(m, 0, durSec, 0)
		if err := re.AddRegion(r); err != nil {
			log.Fatal().Err(err).Msg("assigning region")
		}
		entries = append(entries, entry{mod: m, path: path})
	}

	userParams := parseParams(sets)
	loadParams := params.Params{"modelPath": params.String(*modelPath)}
	for k, v := range userParams {
		loadParams[k] = v
	}
	if !doc.ExecuteLoad(loadParams) {
		log.Fatal().Str("model", *modelPath).Msg("model load failed")
	}
	if n := doc.ExecuteProcess(userParams); n != len(entries) {
		log.Warn().Int("processed", n).Int("inputs", len(entries)).Msg("some inputs were not processed")
	}

	for _, e := range entries {
		buf := e.mod.ModifiedBuffer()
		if buf == nil {
			continue
		}
		name := strings.TrimSuffix(filepath.Base(e.path), filepath.Ext(e.path))
		out := filepath.Join(*outDir, name+"-processed.wav")
		if err := audio.WriteWAV(out, buf); err != nil {
			log.Fatal().Err(err).Str("file", out).Msg("writing output")
		}
		fmt.Printf("%s -> %s\n", e.path, out)
		if *showWave {
			th, err := waves.Thumbnail(e.mod, cfg.ThumbnailWidth)
			if err != nil {
				log.Warn().Err(err).Msg("rendering waveform")
				continue
			}
			fmt.Println(renderWaveLine(th))
		}
	}

	if *doPreview {
		if err := playPreview(re, cfg); err != nil {
			log.Fatal().Err(err).Msg("preview failed")
		}
	}
}

// renderWaveLine draws thumbnail peaks as one line of block characters.
func renderWaveLine(th *engine.Thumbnail) string {
	var b strings.Builder
	for _, p := range th.Peaks {
		span := p.Max - p.Min
		if span < 0 {
			span = 0
		}
		idx := int(span * float32(len(waveformRunes)) / 2)
		if idx >= len(waveformRunes) {
			idx = len(waveformRunes) - 1
		}
		b.WriteRune(waveformRunes[idx])
	}
	return b.String()
}

// playPreview renders the whole timeline through the output device and
// blocks until it finishes.
func playPreview(re *engine.Renderer, cfg config.Config) error {
	// The stream pulls 512-frame blocks; never prepare below that.
	if err := re.PrepareToPlay(cfg.SampleRate, max(cfg.BlockFrames, 512), cfg.Channels, false); err != nil {
		return err
	}
	defer re.ReleaseResources()

	p, err := preview.NewPlayer(cfg.SampleRate, cfg.Channels)
	if err != nil {
		return err
	}
	defer p.Close()

	p.Play(preview.NewRendererStream(re, cfg.SampleRate, cfg.Channels, 0))
	for p.Playing() {
		time.Sleep(50 * time.Millisecond)
	}
	return nil
}
