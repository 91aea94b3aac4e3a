package audio

import (
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// SourceName derives a display name for an audio source file: the ID3v2
// title for tagged MP3s, otherwise the filename without extension.
func SourceName(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".mp3") {
		tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
		if err == nil {
			title := strings.TrimSpace(tag.Title())
			tag.Close()
			if title != "" {
				return title
			}
		}
	}

	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
