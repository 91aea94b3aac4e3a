// Package config reads engine defaults from the environment.
package config

import (
	"os"
	"strconv"
)

type Config struct {
	ModelPath      string
	SampleRate     int
	BlockFrames    int
	Channels       int
	ThumbnailWidth int
	Preview        bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		switch v {
		case "0", "false", "no", "off", "False", "FALSE":
			return false
		default:
			return true
		}
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func Load() Config {
	return Config{
		ModelPath:      getenv("HARP_MODEL_PATH", ""),
		SampleRate:     getenvInt("HARP_SAMPLE_RATE", 44100),
		BlockFrames:    getenvInt("HARP_BLOCK_FRAMES", 1024),
		Channels:       getenvInt("HARP_CHANNELS", 2),
		ThumbnailWidth: getenvInt("HARP_THUMBNAIL_WIDTH", 80),
		Preview:        getenvBool("HARP_PREVIEW", false),
	}
}
