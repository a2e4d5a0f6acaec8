// Package synth provides the synthesis facade that turns annotated text
// into a single audio buffer by driving the inference engine per segment.
package synth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/book-expert/logger"
	"github.com/go-audio/audio"
	"github.com/google/uuid"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/segment"
	"github.com/book-expert/voice-studio/internal/wavio"
)

const tempFilePattern = "voice-studio-%s.wav"

// ErrNoAudioGenerated is returned when no segment produced audio, either
// because the text was empty or because every segment's style was unknown.
var ErrNoAudioGenerated = errors.New("no audio was generated")

// Facade coordinates segmentation, inference, and optional silence removal.
type Facade struct {
	engine  core.SynthesisEngine
	trimmer core.SilenceTrimmer
	log     *logger.Logger
	tempDir string
}

// New creates a Facade. The trimmer may be nil, in which case the
// remove-silence option is ignored with a warning.
func New(
	engine core.SynthesisEngine,
	trimmer core.SilenceTrimmer,
	log *logger.Logger,
) *Facade {
	return &Facade{
		engine:  engine,
		trimmer: trimmer,
		log:     log,
		tempDir: os.TempDir(),
	}
}

// SynthesizeSingle synthesizes genText against one reference clip.
func (f *Facade) SynthesizeSingle(
	ctx context.Context,
	refPath, refText, genText string,
	opts core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	buf, inferErr := f.engine.Infer(ctx, refPath, refText, genText, opts)
	if inferErr != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrEngineFailure, inferErr)
	}

	if opts.RemoveSilence {
		trimmed, trimErr := f.removeSilence(ctx, buf)
		if trimErr != nil {
			return nil, trimErr
		}

		buf = trimmed
	}

	return buf, nil
}

// SynthesizeMultiStyle splits text on {Style} markers, synthesizes each
// segment against the reference its style maps to, and concatenates the
// results in input order. Segments whose style has no entry and no default
// fallback are skipped with a warning. When nothing is produced the result
// is ErrNoAudioGenerated.
func (f *Facade) SynthesizeMultiStyle(
	ctx context.Context,
	text string,
	styleMap map[string]core.StyleRef,
	opts core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	segments := segment.Split(text)

	buffers := make([]*audio.IntBuffer, 0, len(segments))

	for _, seg := range segments {
		ref, found := f.resolveStyle(styleMap, seg.Style)
		if !found {
			f.log.Warn(
				"Skipping segment: no reference for style %q", seg.Style,
			)

			continue
		}

		buf, inferErr := f.engine.Infer(
			ctx, ref.Path, ref.Transcription, seg.Text, opts,
		)
		if inferErr != nil {
			return nil, fmt.Errorf(
				"%w: style %q: %w", core.ErrEngineFailure, seg.Style, inferErr,
			)
		}

		if opts.RemoveSilence {
			trimmed, trimErr := f.removeSilence(ctx, buf)
			if trimErr != nil {
				return nil, trimErr
			}

			buf = trimmed
		}

		buffers = append(buffers, buf)
	}

	if len(buffers) == 0 {
		return nil, ErrNoAudioGenerated
	}

	joined, concatErr := wavio.Concat(buffers)
	if concatErr != nil {
		return nil, fmt.Errorf("failed to join segments: %w", concatErr)
	}

	return joined, nil
}

// resolveStyle looks up the segment's style, falling back to the default
// entry when the style itself is not mapped.
func (f *Facade) resolveStyle(
	styleMap map[string]core.StyleRef, style string,
) (core.StyleRef, bool) {
	ref, found := styleMap[style]
	if found {
		return ref, true
	}

	ref, found = styleMap[segment.DefaultStyle]

	return ref, found
}

// removeSilence round-trips the buffer through a temp WAV file so the
// exec-based trimmer can operate on a path. The temp file is left behind;
// it lives in the OS temp dir and is cleaned up by OS policy.
func (f *Facade) removeSilence(
	ctx context.Context, buf *audio.IntBuffer,
) (*audio.IntBuffer, error) {
	if f.trimmer == nil {
		f.log.Warn("Silence removal requested but no trimmer is configured")

		return buf, nil
	}

	tempPath := filepath.Join(
		f.tempDir, fmt.Sprintf(tempFilePattern, uuid.NewString()),
	)

	writeErr := wavio.EncodeToFile(tempPath, buf)
	if writeErr != nil {
		return nil, fmt.Errorf(
			"failed to write temp audio for silence removal: %w", writeErr,
		)
	}

	trimErr := f.trimmer.TrimInPlace(ctx, tempPath)
	if trimErr != nil {
		return nil, fmt.Errorf("silence removal failed: %w", trimErr)
	}

	trimmed, readErr := wavio.DecodeFile(tempPath)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read trimmed audio: %w", readErr)
	}

	return trimmed, nil
}
