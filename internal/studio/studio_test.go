package studio_test

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/book-expert/logger"
	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/profile"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/synth"
	"github.com/book-expert/voice-studio/internal/wavio"
)

var errTranscriberDown = errors.New("transcriber down")

type fakeEngine struct {
	refPaths []string
	genTexts []string
}

func (e *fakeEngine) Infer(
	_ context.Context,
	refAudioPath, _, genText string,
	_ core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	e.refPaths = append(e.refPaths, refAudioPath)
	e.genTexts = append(e.genTexts, genText)

	return &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 24000},
		Data:           []int{1},
		SourceBitDepth: 16,
	}, nil
}

type fakeTranscriber struct {
	text  string
	err   error
	calls int
}

func (f *fakeTranscriber) Transcribe(_ context.Context, _ string) (string, error) {
	f.calls++

	if f.err != nil {
		return "", f.err
	}

	return f.text, nil
}

type fixture struct {
	studio *studio.Studio
	store  *profile.Store
	engine *fakeEngine
	trans  *fakeTranscriber
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	log, err := logger.New(t.TempDir(), "studio-test.log")
	require.NoError(t, err)

	t.Cleanup(func() {
		_ = log.Close()
	})

	store, err := profile.Load(t.TempDir(), log)
	require.NoError(t, err)

	engine := &fakeEngine{}
	trans := &fakeTranscriber{text: "auto transcription"}
	facade := synth.New(engine, nil, log)

	return &fixture{
		studio: studio.New(store, facade, trans, log),
		store:  store,
		engine: engine,
		trans:  trans,
	}
}

func writeTestWAV(t *testing.T, path string) {
	t.Helper()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 24000},
		Data:           []int{0, 500, -500},
		SourceBitDepth: 16,
	}

	require.NoError(t, wavio.EncodeToFile(path, buf))
}

func (f *fixture) addSample(t *testing.T, profileName, sampleName, transcription string) {
	t.Helper()

	source := filepath.Join(t.TempDir(), "clip.wav")
	writeTestWAV(t, source)

	require.NoError(t, f.studio.AddSample(
		context.Background(), profileName, sampleName, source, transcription,
	))
}

func TestAddSampleAutoTranscribesBlankTranscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.CreateProfile("narrator", ""))

	f.addSample(t, "narrator", "calm", "")

	assert.Equal(t, 1, f.trans.calls)
	assert.Equal(t, "auto transcription", f.store.Transcription("narrator", "calm"))
}

func TestAddSampleKeepsProvidedTranscription(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.CreateProfile("narrator", ""))

	f.addSample(t, "narrator", "calm", "hand written")

	assert.Zero(t, f.trans.calls)
	assert.Equal(t, "hand written", f.store.Transcription("narrator", "calm"))
}

func TestAddSampleTranscriptionFailureLeavesStoreUntouched(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.trans.err = errTranscriberDown

	require.NoError(t, f.store.CreateProfile("narrator", ""))

	source := filepath.Join(t.TempDir(), "clip.wav")
	writeTestWAV(t, source)

	err := f.studio.AddSample(
		context.Background(), "narrator", "calm", source, "",
	)
	require.ErrorIs(t, err, errTranscriberDown)
	assert.Empty(t, f.store.ListSamples("narrator"))
}

func TestGenerateUsesStyleSample(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.CreateProfile("narrator", ""))
	f.addSample(t, "narrator", "calm", "calm ref")
	f.addSample(t, "narrator", "loud", "loud ref")
	require.NoError(t, f.store.AddStyle("narrator", "Bedtime", "calm"))

	_, err := f.studio.Generate(
		context.Background(), "narrator", "some text", "Bedtime",
		core.SynthesisOptions{},
	)
	require.NoError(t, err)

	require.Len(t, f.engine.refPaths, 1)
	assert.True(t, strings.HasSuffix(f.engine.refPaths[0], "calm.wav"))
}

func TestGenerateUnknownStyleFallsBackToLatestSample(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.CreateProfile("narrator", ""))
	f.addSample(t, "narrator", "first", "")
	f.addSample(t, "narrator", "second", "")

	_, err := f.studio.Generate(
		context.Background(), "narrator", "some text", "NoSuchStyle",
		core.SynthesisOptions{},
	)
	require.NoError(t, err)

	require.Len(t, f.engine.refPaths, 1)
	assert.True(t, strings.HasSuffix(f.engine.refPaths[0], "second.wav"))
}

func TestGenerateNoSamples(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.CreateProfile("narrator", ""))

	_, err := f.studio.Generate(
		context.Background(), "narrator", "text", "", core.SynthesisOptions{},
	)
	require.ErrorIs(t, err, studio.ErrNoSamples)
}

func TestGenerateUnknownProfile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)

	_, err := f.studio.Generate(
		context.Background(), "ghost", "text", "", core.SynthesisOptions{},
	)
	require.ErrorIs(t, err, profile.ErrProfileNotFound)
}

func TestGenerateMultiStyleBuildsStyleMap(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.CreateProfile("narrator", ""))
	f.addSample(t, "narrator", "calm", "calm ref")
	f.addSample(t, "narrator", "loud", "loud ref")
	require.NoError(t, f.store.AddStyle("narrator", "Excited", "loud"))

	_, err := f.studio.GenerateMultiStyle(
		context.Background(), "narrator",
		"plain start {Excited} big news {Unmapped} tail",
		core.SynthesisOptions{},
	)
	require.NoError(t, err)

	// Leading text before the first marker is discarded by the
	// segmenter; the Excited segment uses its own sample and the
	// unmapped style falls back to the latest sample.
	require.Len(t, f.engine.refPaths, 2)
	assert.True(t, strings.HasSuffix(f.engine.refPaths[0], "loud.wav"))
	assert.True(t, strings.HasSuffix(f.engine.refPaths[1], "loud.wav"))
	assert.Equal(t, []string{"big news", "tail"}, f.engine.genTexts)
}

func TestSaveOutputDefaultsName(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	require.NoError(t, f.store.CreateProfile("narrator", ""))

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 24000},
		Data:           []int{1},
		SourceBitDepth: 16,
	}

	path, err := f.studio.SaveOutput("narrator", "", buf, "text", "")
	require.NoError(t, err)
	assert.NotEmpty(t, path)

	outputs := f.store.ListOutputs("narrator")
	require.Len(t, outputs, 1)
	assert.True(t, strings.HasPrefix(outputs[0], "output_"))
}

func TestPresetsAreStable(t *testing.T) {
	t.Parallel()

	presets := studio.Presets()
	require.Len(t, presets, 5)

	names := make([]string, 0, len(presets))
	for _, p := range presets {
		names = append(names, p.Name)
		assert.NotEmpty(t, p.Text)
		assert.NotEmpty(t, p.Description)
	}

	assert.Equal(
		t,
		[]string{"Neutral", "Enthusiastic", "Professional", "Calm", "Narrative"},
		names,
	)
}
