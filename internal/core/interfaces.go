// Package core defines the interfaces and shared types of the voice studio.
package core

import (
	"context"
	"errors"

	"github.com/go-audio/audio"
)

// ErrEngineFailure marks errors caused by an external engine call, so the
// API boundary can distinguish upstream failures from bad requests.
var ErrEngineFailure = errors.New("engine failure")

// SynthesisOptions holds the per-request tuning knobs for speech generation.
// Zero values are replaced with the engine's defaults.
type SynthesisOptions struct {
	// Speed scales playback speed; 1.0 is the reference speed.
	Speed float64

	// NFESteps controls the number of flow-estimation steps the engine
	// runs per segment. Higher values trade latency for quality.
	NFESteps int

	// CrossFadeDuration is the overlap between engine-internal chunks,
	// in seconds.
	CrossFadeDuration float64

	// RemoveSilence requests per-segment silence trimming before
	// concatenation.
	RemoveSilence bool
}

// StyleRef resolves a style name to the reference material the engine
// conditions on.
type StyleRef struct {
	// Path is the stored reference audio file.
	Path string

	// Transcription is the text spoken in the reference audio.
	Transcription string
}

// SynthesisEngine is the narrow interface to the external TTS inference
// service. Implementations return decoded PCM at the engine's sample rate.
type SynthesisEngine interface {
	Infer(
		ctx context.Context,
		refAudioPath, refText, genText string,
		opts SynthesisOptions,
	) (*audio.IntBuffer, error)
}

// Transcriber is the interface to the external speech-recognition engine.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// SilenceTrimmer removes leading and trailing silence from a WAV file in
// place.
type SilenceTrimmer interface {
	TrimInPlace(ctx context.Context, wavPath string) error
}
