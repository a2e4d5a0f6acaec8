package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"

	"github.com/go-audio/audio"
	"github.com/google/uuid"

	"github.com/book-expert/voice-studio/internal/core"
	"github.com/book-expert/voice-studio/internal/profile"
	"github.com/book-expert/voice-studio/internal/studio"
	"github.com/book-expert/voice-studio/internal/synth"
	"github.com/book-expert/voice-studio/internal/wavio"
)

// Multipart form field names.
const (
	fieldRefFile       = "ref_file"
	fieldRefText       = "ref_text"
	fieldGenText       = "gen_text"
	fieldSampleFile    = "sample_file"
	fieldName          = "name"
	fieldTranscription = "transcription"
)

const (
	contentTypeJSON = "application/json"
	contentTypeWAV  = "audio/wav"
)

const uploadFilePermissions = 0o600

type errorBody struct {
	Error string `json:"error"`
}

type messageBody struct {
	Message string `json:"message"`
}

type createProfileRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type addStyleRequest struct {
	Name   string `json:"name"`
	Sample string `json:"sample"`
}

type generateRequest struct {
	Text       string         `json:"text"`
	Style      string         `json:"style"`
	MultiStyle bool           `json:"multi_style"`
	SaveAs     string         `json:"save_as"`
	Save       bool           `json:"save"`
	Options    requestOptions `json:"options"`
}

type requestOptions struct {
	Speed             float64 `json:"speed"`
	NFESteps          int     `json:"nfe_steps"`
	CrossFadeDuration float64 `json:"cross_fade_duration"`
	RemoveSilence     bool    `json:"remove_silence"`
}

type profileResponse struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	CreatedAt   string   `json:"created_at"`
	Samples     []string `json:"samples"`
	Styles      []string `json:"styles"`
	Outputs     []string `json:"outputs"`
}

func (s *Server) handleRoot(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, messageBody{Message: "voice-studio API"})
}

// handleGenerate is the stateless synthesis endpoint: the caller uploads a
// reference clip and its transcript alongside the text to generate.
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	parseErr := r.ParseMultipartForm(s.maxUploadBytes)
	if parseErr != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid multipart form")

		return
	}

	refText := r.FormValue(fieldRefText)
	genText := r.FormValue(fieldGenText)

	file, header, fileErr := r.FormFile(fieldRefFile)
	if fileErr != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "ref_file is required")

		return
	}
	defer file.Close()

	if refText == "" || genText == "" {
		s.writeErrorMessage(
			w, http.StatusBadRequest, "ref_text and gen_text are required",
		)

		return
	}

	refPath, saveErr := s.saveUpload(file, header)
	if saveErr != nil {
		s.writeError(w, saveErr)

		return
	}

	buf, genErr := s.studio.GenerateFromReference(
		r.Context(), refPath, refText, genText, s.defaults,
	)
	if genErr != nil {
		s.writeError(w, genErr)

		return
	}

	s.writeWAV(w, "generated.wav", buf)
}

func (s *Server) handlePresets(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, studio.Presets())
}

func (s *Server) handleCreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest

	decodeErr := json.NewDecoder(r.Body).Decode(&req)
	if decodeErr != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	createErr := s.studio.Store().CreateProfile(req.Name, req.Description)
	if createErr != nil {
		s.writeError(w, createErr)

		return
	}

	s.writeJSON(w, http.StatusCreated, messageBody{
		Message: fmt.Sprintf("profile %q created", req.Name),
	})
}

func (s *Server) handleListProfiles(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.studio.Store().ListProfiles())
}

func (s *Server) handleGetProfile(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	manifest, found := s.studio.Store().Profile(name)
	if !found {
		s.writeError(w, fmt.Errorf("%w: %q", profile.ErrProfileNotFound, name))

		return
	}

	store := s.studio.Store()

	s.writeJSON(w, http.StatusOK, profileResponse{
		Name:        manifest.Name,
		Description: manifest.Description,
		CreatedAt:   manifest.CreatedAt,
		Samples:     store.ListSamples(name),
		Styles:      store.ListStyles(name),
		Outputs:     store.ListOutputs(name),
	})
}

func (s *Server) handleAddSample(w http.ResponseWriter, r *http.Request) {
	profileName := r.PathValue("name")

	parseErr := r.ParseMultipartForm(s.maxUploadBytes)
	if parseErr != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid multipart form")

		return
	}

	sampleName := r.FormValue(fieldName)
	if sampleName == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "name is required")

		return
	}

	file, header, fileErr := r.FormFile(fieldSampleFile)
	if fileErr != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "sample_file is required")

		return
	}
	defer file.Close()

	uploadPath, saveErr := s.saveUpload(file, header)
	if saveErr != nil {
		s.writeError(w, saveErr)

		return
	}

	addErr := s.studio.AddSample(
		r.Context(),
		profileName, sampleName, uploadPath,
		r.FormValue(fieldTranscription),
	)
	if addErr != nil {
		s.writeError(w, addErr)

		return
	}

	s.writeJSON(w, http.StatusCreated, messageBody{
		Message: fmt.Sprintf("sample %q added", sampleName),
	})
}

func (s *Server) handleListSamples(w http.ResponseWriter, r *http.Request) {
	s.writeProfileList(w, r, s.studio.Store().ListSamples)
}

func (s *Server) handleAddStyle(w http.ResponseWriter, r *http.Request) {
	profileName := r.PathValue("name")

	var req addStyleRequest

	decodeErr := json.NewDecoder(r.Body).Decode(&req)
	if decodeErr != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	addErr := s.studio.Store().AddStyle(profileName, req.Name, req.Sample)
	if addErr != nil {
		s.writeError(w, addErr)

		return
	}

	s.writeJSON(w, http.StatusCreated, messageBody{
		Message: fmt.Sprintf("style %q added", req.Name),
	})
}

func (s *Server) handleListStyles(w http.ResponseWriter, r *http.Request) {
	s.writeProfileList(w, r, s.studio.Store().ListStyles)
}

func (s *Server) handleProfileGenerate(w http.ResponseWriter, r *http.Request) {
	profileName := r.PathValue("name")

	var req generateRequest

	decodeErr := json.NewDecoder(r.Body).Decode(&req)
	if decodeErr != nil {
		s.writeErrorMessage(w, http.StatusBadRequest, "invalid JSON body")

		return
	}

	if req.Text == "" {
		s.writeErrorMessage(w, http.StatusBadRequest, "text is required")

		return
	}

	opts := s.mergeOptions(req.Options)

	buf, genErr := s.generateForProfile(r, profileName, req, opts)
	if genErr != nil {
		s.writeError(w, genErr)

		return
	}

	if req.Save || req.SaveAs != "" {
		savedPath, saveErr := s.studio.SaveOutput(
			profileName, req.SaveAs, buf, req.Text, req.Style,
		)
		if saveErr != nil {
			s.writeError(w, saveErr)

			return
		}

		w.Header().Set("X-Output-Path", savedPath)
	}

	s.writeWAV(w, "generated.wav", buf)
}

func (s *Server) handleListOutputs(w http.ResponseWriter, r *http.Request) {
	s.writeProfileList(w, r, s.studio.Store().ListOutputs)
}

// handleGetOutput returns the metadata of one saved output, for history
// browsing and preview.
func (s *Server) handleGetOutput(w http.ResponseWriter, r *http.Request) {
	profileName := r.PathValue("name")
	outputName := r.PathValue("output")

	_, found := s.studio.Store().Profile(profileName)
	if !found {
		s.writeError(w, fmt.Errorf(
			"%w: %q", profile.ErrProfileNotFound, profileName,
		))

		return
	}

	record, found := s.studio.Store().Output(profileName, outputName)
	if !found {
		s.writeError(w, fmt.Errorf(
			"%w: %q in profile %q",
			profile.ErrOutputNotFound, outputName, profileName,
		))

		return
	}

	s.writeJSON(w, http.StatusOK, record)
}

// mergeOptions overlays request options on the configured defaults. The
// remove-silence flag is an OR: the request can enable trimming, not
// disable a configured default.
func (s *Server) mergeOptions(req requestOptions) core.SynthesisOptions {
	opts := core.SynthesisOptions{
		Speed:             req.Speed,
		NFESteps:          req.NFESteps,
		CrossFadeDuration: req.CrossFadeDuration,
		RemoveSilence:     req.RemoveSilence || s.defaults.RemoveSilence,
	}

	if opts.Speed == 0 {
		opts.Speed = s.defaults.Speed
	}

	if opts.NFESteps == 0 {
		opts.NFESteps = s.defaults.NFESteps
	}

	if opts.CrossFadeDuration == 0 {
		opts.CrossFadeDuration = s.defaults.CrossFadeDuration
	}

	return opts
}

func (s *Server) generateForProfile(
	r *http.Request,
	profileName string,
	req generateRequest,
	opts core.SynthesisOptions,
) (*audio.IntBuffer, error) {
	if req.MultiStyle {
		return s.studio.GenerateMultiStyle(r.Context(), profileName, req.Text, opts)
	}

	return s.studio.Generate(r.Context(), profileName, req.Text, req.Style, opts)
}

// writeProfileList answers a listing endpoint, returning 404 for unknown
// profiles rather than the store's silent empty list.
func (s *Server) writeProfileList(
	w http.ResponseWriter,
	r *http.Request,
	list func(string) []string,
) {
	name := r.PathValue("name")

	_, found := s.studio.Store().Profile(name)
	if !found {
		s.writeError(w, fmt.Errorf("%w: %q", profile.ErrProfileNotFound, name))

		return
	}

	names := list(name)
	if names == nil {
		names = []string{}
	}

	s.writeJSON(w, http.StatusOK, names)
}

// saveUpload copies a multipart upload into the uploads directory under a
// unique name, preserving the original extension.
func (s *Server) saveUpload(
	file multipart.File, header *multipart.FileHeader,
) (string, error) {
	mkdirErr := os.MkdirAll(s.uploadsDir, 0o750)
	if mkdirErr != nil {
		return "", fmt.Errorf("failed to create uploads directory: %w", mkdirErr)
	}

	destPath := filepath.Join(
		s.uploadsDir,
		uuid.NewString()+filepath.Ext(header.Filename),
	)

	data, readErr := io.ReadAll(file)
	if readErr != nil {
		return "", fmt.Errorf("failed to read upload: %w", readErr)
	}

	writeErr := os.WriteFile(destPath, data, uploadFilePermissions)
	if writeErr != nil {
		return "", fmt.Errorf("failed to store upload: %w", writeErr)
	}

	return destPath, nil
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)

	encodeErr := json.NewEncoder(w).Encode(payload)
	if encodeErr != nil {
		s.log.Error("Failed to encode response: %v", encodeErr)
	}
}

func (s *Server) writeErrorMessage(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

// writeError maps domain errors onto HTTP status codes.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	switch {
	case errors.Is(err, profile.ErrProfileAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, profile.ErrProfileNotFound),
		errors.Is(err, profile.ErrSampleNotFound),
		errors.Is(err, profile.ErrOutputNotFound):
		status = http.StatusNotFound
	case errors.Is(err, profile.ErrInvalidInput),
		errors.Is(err, studio.ErrNoSamples),
		errors.Is(err, synth.ErrNoAudioGenerated):
		status = http.StatusBadRequest
	case errors.Is(err, core.ErrEngineFailure):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.log.Error("Request failed: %v", err)
	}

	s.writeErrorMessage(w, status, err.Error())
}

func (s *Server) writeWAV(
	w http.ResponseWriter, filename string, buf *audio.IntBuffer,
) {
	data, encodeErr := wavio.Encode(buf)
	if encodeErr != nil {
		s.writeError(w, fmt.Errorf("failed to encode audio: %w", encodeErr))

		return
	}

	w.Header().Set("Content-Type", contentTypeWAV)
	w.Header().Set(
		"Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", filename),
	)

	_, writeErr := w.Write(data)
	if writeErr != nil {
		s.log.Warn("Failed to write audio response: %v", writeErr)
	}
}
