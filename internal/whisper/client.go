// Package whisper provides the Whisper transcription client used to fill in
// missing sample transcriptions.
package whisper

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Form field names.
const (
	formFieldFile     = "file"
	formFieldModel    = "model"
	formFieldLanguage = "language"
)

// HTTP headers.
const (
	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
)

const envOpenAIAPIKey = "OPENAI_API_KEY"

const defaultBaseURL = "https://api.openai.com/v1/audio/transcriptions"

// ErrAPIKeyNotSet is returned when the OPENAI_API_KEY environment variable
// is missing.
var ErrAPIKeyNotSet = errors.New("OPENAI_API_KEY environment variable not set")

// Client calls the Whisper transcription API. It implements
// core.Transcriber.
type Client struct {
	httpClient *http.Client
	apiKey     string
	baseURL    string
	model      string
	language   string
}

type transcriptionResponse struct {
	Text string `json:"text"`
}

// New creates a Whisper client reading its API key from the environment.
// The model names a Whisper model ("whisper-1"); language may be empty for
// auto-detection.
func New(model, language string, timeout time.Duration) (*Client, error) {
	apiKey := os.Getenv(envOpenAIAPIKey)
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	return &Client{
		apiKey:   apiKey,
		baseURL:  defaultBaseURL,
		model:    model,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// NewWithBaseURL creates a client against a non-default endpoint. Used for
// self-hosted Whisper deployments and in tests.
func NewWithBaseURL(
	apiKey, baseURL, model, language string, timeout time.Duration,
) *Client {
	return &Client{
		apiKey:   apiKey,
		baseURL:  baseURL,
		model:    model,
		language: language,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Transcribe uploads the audio file and returns its transcription text.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (string, error) {
	body, contentType, buildErr := c.buildForm(audioPath)
	if buildErr != nil {
		return "", buildErr
	}

	req, reqErr := http.NewRequestWithContext(
		ctx, http.MethodPost, c.baseURL, body,
	)
	if reqErr != nil {
		return "", fmt.Errorf("failed to create request: %w", reqErr)
	}

	req.Header.Set(headerAuthorization, "Bearer "+c.apiKey)
	req.Header.Set(headerContentType, contentType)

	resp, doErr := c.httpClient.Do(req)
	if doErr != nil {
		return "", fmt.Errorf("failed to make request: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)

		return "", fmt.Errorf(
			"transcription request failed with status %d: %s",
			resp.StatusCode,
			string(respBody),
		)
	}

	var parsed transcriptionResponse

	decodeErr := json.NewDecoder(resp.Body).Decode(&parsed)
	if decodeErr != nil {
		return "", fmt.Errorf("failed to decode response: %w", decodeErr)
	}

	return parsed.Text, nil
}

func (c *Client) buildForm(audioPath string) (*bytes.Buffer, string, error) {
	file, openErr := os.Open(audioPath)
	if openErr != nil {
		return nil, "", fmt.Errorf("failed to open audio file: %w", openErr)
	}
	defer file.Close()

	var buf bytes.Buffer

	writer := multipart.NewWriter(&buf)

	part, partErr := writer.CreateFormFile(formFieldFile, filepath.Base(audioPath))
	if partErr != nil {
		return nil, "", fmt.Errorf("failed to create form file: %w", partErr)
	}

	_, copyErr := io.Copy(part, file)
	if copyErr != nil {
		return nil, "", fmt.Errorf("failed to copy file data: %w", copyErr)
	}

	fieldErr := writer.WriteField(formFieldModel, c.model)
	if fieldErr != nil {
		return nil, "", fmt.Errorf("failed to write model field: %w", fieldErr)
	}

	if c.language != "" {
		langErr := writer.WriteField(formFieldLanguage, c.language)
		if langErr != nil {
			return nil, "", fmt.Errorf(
				"failed to write language field: %w", langErr,
			)
		}
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return nil, "", fmt.Errorf(
			"failed to close multipart writer: %w", closeErr,
		)
	}

	return &buf, writer.FormDataContentType(), nil
}
