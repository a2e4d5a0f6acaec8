package engine_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-audio/audio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/engine"
	"github.com/book-expert/voice-studio/internal/wavio"
)

func testWAVBytes(t *testing.T) []byte {
	t.Helper()

	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: 24000},
		Data:           []int{0, 2000, -2000, 1000},
		SourceBitDepth: 16,
	}

	data, err := wavio.Encode(buf)
	require.NoError(t, err)

	return data
}

func TestInferSuccess(t *testing.T) {
	t.Parallel()

	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "/v1/infer", r.URL.Path)
			require.Equal(t, "audio/wav", r.Header.Get("Accept"))

			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write(testWAVBytes(t))
		},
	))
	defer server.Close()

	client := engine.New(server.URL, 5*time.Second)

	buf, err := client.Infer(
		context.Background(),
		"/profiles/narrator/samples/calm.wav",
		"hello there",
		"once upon a time",
		core.SynthesisOptions{},
	)
	require.NoError(t, err)
	require.NotNil(t, buf)
	assert.Len(t, buf.Data, 4)

	assert.Equal(t, "/profiles/narrator/samples/calm.wav", captured["ref_audio_path"])
	assert.Equal(t, "once upon a time", captured["gen_text"])
	assert.InDelta(t, engine.DefaultSpeed, captured["speed"], 0.0001)
	assert.InDelta(t, float64(engine.DefaultNFESteps), captured["nfe_steps"], 0.0001)
}

func TestInferPassesExplicitOptions(t *testing.T) {
	t.Parallel()

	var captured map[string]any

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))

			w.Header().Set("Content-Type", "audio/wav")
			_, _ = w.Write(testWAVBytes(t))
		},
	))
	defer server.Close()

	client := engine.New(server.URL, 5*time.Second)

	_, err := client.Infer(
		context.Background(), "ref.wav", "", "text",
		core.SynthesisOptions{Speed: 0.8, NFESteps: 16, CrossFadeDuration: 0.3},
	)
	require.NoError(t, err)

	assert.InDelta(t, 0.8, captured["speed"], 0.0001)
	assert.InDelta(t, 16.0, captured["nfe_steps"], 0.0001)
	assert.InDelta(t, 0.3, captured["cross_fade_duration"], 0.0001)
}

func TestInferValidatesInput(t *testing.T) {
	t.Parallel()

	client := engine.New("http://unused", time.Second)

	_, err := client.Infer(
		context.Background(), "", "ref", "text", core.SynthesisOptions{},
	)
	require.ErrorIs(t, err, engine.ErrRefAudioPathEmpty)

	_, err = client.Infer(
		context.Background(), "ref.wav", "ref", "", core.SynthesisOptions{},
	)
	require.ErrorIs(t, err, engine.ErrGenTextEmpty)
}

func TestInferStructuredServiceError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(
				`{"detail": "model not loaded", "error_code": "MODEL_NOT_LOADED"}`,
			))
		},
	))
	defer server.Close()

	client := engine.New(server.URL, time.Second)

	_, err := client.Infer(
		context.Background(), "ref.wav", "ref", "text", core.SynthesisOptions{},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "model not loaded")
	assert.Contains(t, err.Error(), "MODEL_NOT_LOADED")
}

func TestInferRejectsWrongContentType(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "text/plain")
			_, _ = w.Write([]byte("not audio"))
		},
	))
	defer server.Close()

	client := engine.New(server.URL, time.Second)

	_, err := client.Infer(
		context.Background(), "ref.wav", "ref", "text", core.SynthesisOptions{},
	)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected content type")
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()

	healthy := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, "/health", r.URL.Path)
			w.WriteHeader(http.StatusOK)
		},
	))
	defer healthy.Close()

	require.NoError(t, engine.New(healthy.URL, time.Second).
		HealthCheck(context.Background()))

	unhealthy := httptest.NewServer(http.HandlerFunc(
		func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		},
	))
	defer unhealthy.Close()

	require.Error(t, engine.New(unhealthy.URL, time.Second).
		HealthCheck(context.Background()))
}
