// Package studio implements the application flows on top of the profile
// store and the synthesis facade: adding samples with automatic
// transcription, resolving styles to reference clips, and saving outputs.
package studio

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/book-expert/logger"
	"github.com/go-audio/audio"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/profile"
	"github.com/book-expert/voice-studio/internal/segment"
	"github.com/book-expert/voice-studio/internal/synth"
)

const defaultOutputPrefix = "output_"

const outputNameSuffixLayout = "20060102_150405"

// ErrNoSamples is returned when generation is requested for a profile that
// has no reference samples at all.
var ErrNoSamples = errors.New("profile has no samples")

// Preset is a suggested recording script for capturing a reference sample
// in a particular delivery.
type Preset struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Text        string `json:"text"`
}

// Studio wires the profile store, the synthesis facade, and the
// transcriber into the operations the API exposes.
type Studio struct {
	store       *profile.Store
	facade      *synth.Facade
	transcriber core.Transcriber
	log         *logger.Logger
}

// New creates a Studio. The transcriber may be nil; adding samples without
// a transcription then fails instead of auto-transcribing.
func New(
	store *profile.Store,
	facade *synth.Facade,
	transcriber core.Transcriber,
	log *logger.Logger,
) *Studio {
	return &Studio{
		store:       store,
		facade:      facade,
		transcriber: transcriber,
		log:         log,
	}
}

// Store exposes the underlying profile store for read-only listing.
func (s *Studio) Store() *profile.Store {
	return s.store
}

// AddSample registers a reference clip. A blank transcription is filled in
// by transcribing the source audio first; if that fails the store is left
// untouched.
func (s *Studio) AddSample(
	ctx context.Context,
	profileName, sampleName, sourceAudioPath, transcription string,
) error {
	if transcription == "" {
		text, err := s.autoTranscribe(ctx, sourceAudioPath)
		if err != nil {
			return err
		}

		transcription = text
	}

	addErr := s.store.AddSample(
		profileName, sampleName, sourceAudioPath, transcription,
	)
	if addErr != nil {
		return fmt.Errorf("failed to add sample: %w", addErr)
	}

	return nil
}

// GenerateFromReference synthesizes text against an ad hoc reference clip
// that is not part of any profile. Used by the stateless generate endpoint.
func (s *Studio) GenerateFromReference(
	ctx context.Context,
	refPath, refText, text string,
	opts core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	return s.facade.SynthesizeSingle(ctx, refPath, refText, text, opts)
}

// Generate synthesizes text against one of the profile's samples. The
// sample is chosen by style; an empty or unknown style falls back to the
// profile's most recently added sample.
func (s *Studio) Generate(
	ctx context.Context,
	profileName, text, style string,
	opts core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	ref, resolveErr := s.resolveReference(profileName, style)
	if resolveErr != nil {
		return nil, resolveErr
	}

	buf, synthErr := s.facade.SynthesizeSingle(
		ctx, ref.Path, ref.Transcription, text, opts,
	)
	if synthErr != nil {
		return nil, synthErr
	}

	return buf, nil
}

// GenerateMultiStyle synthesizes {Style}-annotated text. The style map is
// built from the profile's defined styles, with the latest sample serving
// as the default for unannotated or unmapped segments.
func (s *Studio) GenerateMultiStyle(
	ctx context.Context,
	profileName, text string,
	opts core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	styleMap, buildErr := s.buildStyleMap(profileName)
	if buildErr != nil {
		return nil, buildErr
	}

	buf, synthErr := s.facade.SynthesizeMultiStyle(ctx, text, styleMap, opts)
	if synthErr != nil {
		return nil, synthErr
	}

	return buf, nil
}

// SaveOutput persists a generated buffer under the profile. An empty
// output name gets a timestamped default.
func (s *Studio) SaveOutput(
	profileName, outputName string,
	buf *audio.IntBuffer,
	text, style string,
) (string, error) {
	if outputName == "" {
		outputName = defaultOutputPrefix +
			time.Now().Format(outputNameSuffixLayout)
	}

	path, saveErr := s.store.SaveOutput(profileName, outputName, buf, text, style)
	if saveErr != nil {
		return "", fmt.Errorf("failed to save output: %w", saveErr)
	}

	return path, nil
}

// Presets returns the built-in recording scripts, in display order.
func Presets() []Preset {
	return []Preset{
		{
			Name:        "Neutral",
			Description: "Even pacing and flat affect, a general purpose reference.",
			Text: "The quick brown fox jumps over the lazy dog. " +
				"I am recording this sample in a calm and even voice.",
		},
		{
			Name:        "Enthusiastic",
			Description: "High energy delivery with strong emphasis.",
			Text: "This is absolutely amazing! I can't wait to show " +
				"you what we've been working on!",
		},
		{
			Name:        "Professional",
			Description: "Measured, formal delivery suited to narration of reports.",
			Text: "Good morning. Today we will review the quarterly " +
				"results and discuss our plans for the coming period.",
		},
		{
			Name:        "Calm",
			Description: "Soft and slow delivery, suited to relaxation content.",
			Text: "Take a deep breath and relax. Everything is " +
				"peaceful and quiet here.",
		},
		{
			Name:        "Narrative",
			Description: "Storytelling cadence with gentle dynamics.",
			Text: "Once upon a time, in a land far away, there lived " +
				"a wise old storyteller who knew a thousand tales.",
		},
	}
}

func (s *Studio) autoTranscribe(
	ctx context.Context, audioPath string,
) (string, error) {
	if s.transcriber == nil {
		return "", fmt.Errorf(
			"%w: transcription required but no transcriber configured",
			profile.ErrInvalidInput,
		)
	}

	text, err := s.transcriber.Transcribe(ctx, audioPath)
	if err != nil {
		return "", fmt.Errorf("automatic transcription failed: %w", err)
	}

	s.log.Info("Auto-transcribed sample %s", audioPath)

	return text, nil
}

// resolveReference picks the reference clip for a generation request. A
// defined style wins; otherwise the latest sample is used.
func (s *Studio) resolveReference(
	profileName, style string,
) (core.StyleRef, error) {
	if style != "" {
		sampleName, found := s.store.StyleSample(profileName, style)
		if found {
			return s.sampleRef(profileName, sampleName)
		}

		s.log.Warn(
			"Style %q not defined for profile %q, using latest sample",
			style, profileName,
		)
	}

	return s.latestSampleRef(profileName)
}

func (s *Studio) latestSampleRef(profileName string) (core.StyleRef, error) {
	_, exists := s.store.Profile(profileName)
	if !exists {
		return core.StyleRef{}, fmt.Errorf(
			"%w: %q", profile.ErrProfileNotFound, profileName,
		)
	}

	samples := s.store.ListSamples(profileName)
	if len(samples) == 0 {
		return core.StyleRef{}, fmt.Errorf(
			"%w: %q", ErrNoSamples, profileName,
		)
	}

	return s.sampleRef(profileName, samples[len(samples)-1])
}

func (s *Studio) sampleRef(
	profileName, sampleName string,
) (core.StyleRef, error) {
	path, found := s.store.SamplePath(profileName, sampleName)
	if !found {
		return core.StyleRef{}, fmt.Errorf(
			"%w: %q in profile %q",
			profile.ErrSampleNotFound, sampleName, profileName,
		)
	}

	return core.StyleRef{
		Path:          path,
		Transcription: s.store.Transcription(profileName, sampleName),
	}, nil
}

// buildStyleMap assembles the style-to-reference mapping for multi-style
// synthesis: the latest sample under the default key, then every defined
// style pointing at its own sample.
func (s *Studio) buildStyleMap(
	profileName string,
) (map[string]core.StyleRef, error) {
	latest, latestErr := s.latestSampleRef(profileName)
	if latestErr != nil {
		return nil, latestErr
	}

	styleMap := map[string]core.StyleRef{
		segment.DefaultStyle: latest,
	}

	for _, styleName := range s.store.ListStyles(profileName) {
		sampleName, found := s.store.StyleSample(profileName, styleName)
		if !found {
			continue
		}

		ref, refErr := s.sampleRef(profileName, sampleName)
		if refErr != nil {
			s.log.Warn(
				"Style %q points at missing sample %q, skipping",
				styleName, sampleName,
			)

			continue
		}

		styleMap[styleName] = ref
	}

	return styleMap, nil
}
