// Package engine provides the HTTP client for the external TTS inference
// service. The service hosts the model, vocoder, and inference loop; this
// client only speaks its narrow synthesis API.
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-audio/audio"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/wavio"
)

// API endpoints and paths.
const (
	apiInfer  = "/v1/infer"
	apiHealth = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

// Default synthesis parameters, matching the inference service's own
// defaults.
const (
	DefaultSpeed             = 1.0
	DefaultNFESteps          = 32
	DefaultCrossFadeDuration = 0.15
)

// Static errors.
var (
	ErrRefAudioPathEmpty  = errors.New("reference audio path cannot be empty")
	ErrGenTextEmpty       = errors.New("generation text cannot be empty")
	ErrReceivedEmptyAudio = errors.New("received empty audio data")
)

// Error formats.
const (
	errFmtUnexpectedContentType = "unexpected content type: expected audio/wav, got %s"
	errFmtServiceErrorWithCode  = "TTS service error (%s): %s (code: %s)"
	errFmtServiceNonOKStatus    = "TTS service returned non-OK status: %s, body: %s"
)

// Client is an HTTP client for the inference service. It implements
// core.SynthesisEngine.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// inferRequest is the JSON payload of an inference call.
type inferRequest struct {
	// RefAudioPath is the server-side path of the reference clip the
	// model conditions on.
	RefAudioPath string `json:"ref_audio_path"`

	// RefText is the transcription of the reference clip.
	RefText string `json:"ref_text"`

	// GenText is the text to synthesize.
	GenText string `json:"gen_text"`

	// Speed scales playback speed; 1.0 is the reference speed.
	Speed float64 `json:"speed"`

	// NFESteps is the number of flow-estimation steps.
	NFESteps int `json:"nfe_steps"`

	// CrossFadeDuration is the engine-internal chunk overlap in seconds.
	CrossFadeDuration float64 `json:"cross_fade_duration"`
}

// errorResponse is the structured error body the inference service returns
// on failure.
type errorResponse struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// New creates an HTTP client for the inference service. The baseURL should
// include protocol and port (e.g. "http://localhost:8000"); the timeout
// applies to every request, including the full synthesis duration.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Infer requests synthesis of genText conditioned on the reference clip and
// transcript, returning the decoded PCM buffer.
func (c *Client) Infer(
	ctx context.Context,
	refAudioPath, refText, genText string,
	opts core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	if refAudioPath == "" {
		return nil, ErrRefAudioPathEmpty
	}

	if genText == "" {
		return nil, ErrGenTextEmpty
	}

	req := inferRequest{
		RefAudioPath:      refAudioPath,
		RefText:           refText,
		GenText:           genText,
		Speed:             opts.Speed,
		NFESteps:          opts.NFESteps,
		CrossFadeDuration: opts.CrossFadeDuration,
	}
	applyDefaults(&req)

	wavData, err := c.postInfer(ctx, req)
	if err != nil {
		return nil, err
	}

	buf, decodeErr := wavio.Decode(wavData)
	if decodeErr != nil {
		return nil, fmt.Errorf("failed to decode engine response: %w", decodeErr)
	}

	return buf, nil
}

// HealthCheck verifies that the inference service is running. It should be
// called before long workloads to fail fast when the service is down.
func (c *Client) HealthCheck(ctx context.Context) error {
	url := c.baseURL + apiHealth

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf(
			"health check failed for service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check failed with status: %s", resp.Status)
	}

	return nil
}

func (c *Client) postInfer(ctx context.Context, req inferRequest) ([]byte, error) {
	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := c.baseURL + apiInfer

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		url,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf(
			"failed to send request to TTS service at %s: %w",
			c.baseURL,
			err,
		)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf(errFmtUnexpectedContentType, contentType)
	}

	wavData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(wavData) == 0 {
		return nil, ErrReceivedEmptyAudio
	}

	return wavData, nil
}

// parseErrorResponse attempts to decode a structured JSON error from the
// service, falling back to the raw body so diagnostics are never lost.
func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errorResp errorResponse

	err := json.NewDecoder(resp.Body).Decode(&errorResp)
	if err == nil {
		return fmt.Errorf(errFmtServiceErrorWithCode,
			resp.Status, errorResp.Detail, errorResp.ErrorCode)
	}

	body, _ := io.ReadAll(resp.Body)

	return fmt.Errorf(errFmtServiceNonOKStatus, resp.Status, string(body))
}

func applyDefaults(req *inferRequest) {
	if req.Speed == 0 {
		req.Speed = DefaultSpeed
	}

	if req.NFESteps == 0 {
		req.NFESteps = DefaultNFESteps
	}

	if req.CrossFadeDuration == 0 {
		req.CrossFadeDuration = DefaultCrossFadeDuration
	}
}
