// Package model provides the shared inference-model handle. A handle is
// reference-counted across every audio modification bound to the same
// transform, guards a {Unloaded, Loaded, Failed} state machine behind one
// mutex, and publishes a model card to registered observers after each
// successful load.
package model

// Card is the metadata describing a loaded model, shown by the editor.
type Card struct {
	Name        string   `json:"name"`
	Author      string   `json:"author"`
	Description string   `json:"description"`
	SampleRate  int      `json:"sample_rate"`
	Tags        []string `json:"tags"`
}
