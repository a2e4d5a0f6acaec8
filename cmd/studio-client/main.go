// Command studio-client is a small CLI for exercising a running
// voice-studio service: health checks, stateless generation from a
// reference clip, and profile-based generation.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"
)

// Flag descriptions.
const (
	flagURLDesc     = "Base URL of the voice-studio service"
	flagHealthDesc  = "Check service liveness and exit"
	flagTextDesc    = "Text to synthesize"
	flagRefDesc     = "Reference WAV file for stateless generation"
	flagRefTextDesc = "Transcription of the reference WAV"
	flagProfileDesc = "Profile name for profile-based generation"
	flagStyleDesc   = "Style name for profile-based generation"
	flagOutputDesc  = "Output file path (.wav)"
)

// Defaults.
const (
	defaultURL        = "http://localhost:8080"
	defaultOutputFile = "output.wav"
	requestTimeout    = 5 * time.Minute
)

// Error messages.
const (
	errTextRequired       = "--text is required"
	errRefOrProfile       = "either --ref and --ref-text, or --profile must be provided"
	errCannotSpecifyBoth  = "cannot specify both --ref and --profile"
	errRefTextRequired    = "--ref-text is required with --ref"
	errUnexpectedStatus   = "service returned %s: %s"
	errUnexpectedResponse = "unexpected response content type: %s"
)

type appFlags struct {
	url     string
	health  bool
	text    string
	ref     string
	refText string
	profile string
	style   string
	output  string
}

func main() {
	err := run()
	if err != nil {
		log.Fatalf("Error: %v", err)
	}
}

func run() error {
	flags := parseFlags()

	client := &http.Client{Timeout: requestTimeout}

	if flags.health {
		return checkHealth(client, flags.url)
	}

	err := validateFlags(flags)
	if err != nil {
		flag.Usage()

		return err
	}

	outputPath := flags.output
	if outputPath == "" {
		outputPath = defaultOutputFile
	}

	var wavData []byte

	if flags.ref != "" {
		wavData, err = generateFromReference(client, flags)
	} else {
		wavData, err = generateFromProfile(client, flags)
	}

	if err != nil {
		return err
	}

	writeErr := os.WriteFile(outputPath, wavData, 0o600)
	if writeErr != nil {
		return fmt.Errorf("failed to write output: %w", writeErr)
	}

	fmt.Printf("Generated: %s\n", outputPath)

	return nil
}

func parseFlags() appFlags {
	var flags appFlags

	flag.StringVar(&flags.url, "url", defaultURL, flagURLDesc)
	flag.BoolVar(&flags.health, "health", false, flagHealthDesc)
	flag.StringVar(&flags.text, "text", "", flagTextDesc)
	flag.StringVar(&flags.ref, "ref", "", flagRefDesc)
	flag.StringVar(&flags.refText, "ref-text", "", flagRefTextDesc)
	flag.StringVar(&flags.profile, "profile", "", flagProfileDesc)
	flag.StringVar(&flags.style, "style", "", flagStyleDesc)
	flag.StringVar(&flags.output, "output", "", flagOutputDesc)
	flag.Parse()

	return flags
}

func validateFlags(flags appFlags) error {
	if flags.text == "" {
		return errors.New(errTextRequired)
	}

	if flags.ref == "" && flags.profile == "" {
		return errors.New(errRefOrProfile)
	}

	if flags.ref != "" && flags.profile != "" {
		return errors.New(errCannotSpecifyBoth)
	}

	if flags.ref != "" && flags.refText == "" {
		return errors.New(errRefTextRequired)
	}

	return nil
}

func checkHealth(client *http.Client, baseURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, baseURL+"/", http.NoBody,
	)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		fmt.Printf("Service is not healthy: %v\n", err)

		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err = fmt.Errorf("health check failed with status: %s", resp.Status)
		fmt.Printf("Service is not healthy: %v\n", err)

		return err
	}

	fmt.Println("Service is healthy")

	return nil
}

// generateFromReference posts a multipart request to the stateless
// /generate endpoint.
func generateFromReference(client *http.Client, flags appFlags) ([]byte, error) {
	refFile, openErr := os.Open(flags.ref)
	if openErr != nil {
		return nil, fmt.Errorf("failed to open reference file: %w", openErr)
	}
	defer refFile.Close()

	var body bytes.Buffer

	writer := multipart.NewWriter(&body)

	part, partErr := writer.CreateFormFile("ref_file", filepath.Base(flags.ref))
	if partErr != nil {
		return nil, fmt.Errorf("failed to create form file: %w", partErr)
	}

	_, copyErr := io.Copy(part, refFile)
	if copyErr != nil {
		return nil, fmt.Errorf("failed to copy reference audio: %w", copyErr)
	}

	fieldErr := writer.WriteField("ref_text", flags.refText)
	if fieldErr != nil {
		return nil, fmt.Errorf("failed to write form field: %w", fieldErr)
	}

	fieldErr = writer.WriteField("gen_text", flags.text)
	if fieldErr != nil {
		return nil, fmt.Errorf("failed to write form field: %w", fieldErr)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", closeErr)
	}

	return postForAudio(
		client, flags.url+"/generate", writer.FormDataContentType(), &body,
	)
}

// generateFromProfile posts JSON to the profile generate endpoint.
func generateFromProfile(client *http.Client, flags appFlags) ([]byte, error) {
	payload, marshalErr := json.Marshal(map[string]any{
		"text":  flags.text,
		"style": flags.style,
	})
	if marshalErr != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", marshalErr)
	}

	url := flags.url + "/v1/profiles/" + flags.profile + "/generate"

	return postForAudio(client, url, "application/json", bytes.NewReader(payload))
}

func postForAudio(
	client *http.Client, url, contentType string, body io.Reader,
) ([]byte, error) {
	ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
	defer cancel()

	req, reqErr := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if reqErr != nil {
		return nil, fmt.Errorf("failed to create request: %w", reqErr)
	}

	req.Header.Set("Content-Type", contentType)

	resp, doErr := client.Do(req)
	if doErr != nil {
		return nil, fmt.Errorf("request failed: %w", doErr)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)

		return nil, fmt.Errorf(errUnexpectedStatus, resp.Status, string(respBody))
	}

	if resp.Header.Get("Content-Type") != "audio/wav" {
		return nil, fmt.Errorf(
			errUnexpectedResponse, resp.Header.Get("Content-Type"),
		)
	}

	wavData, readErr := io.ReadAll(resp.Body)
	if readErr != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", readErr)
	}

	return wavData, nil
}
