// Package profile owns the on-disk voice-profile directories and their JSON
// manifests, providing CRUD over profiles, samples, styles, and outputs.
package profile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/book-expert/logger"
	"github.com/go-audio/audio"

	"github.com/book-expert/voice-studio/internal/wavio"
)

// File and directory permissions.
const (
	filePermissions = 0o600
	dirPermissions  = 0o750
)

const wavExtension = ".wav"

// defaultStyleName is recorded for outputs generated without an explicit
// style.
const defaultStyleName = "default"

// Static errors.
var (
	ErrProfileNotFound      = errors.New("profile not found")
	ErrSampleNotFound       = errors.New("sample not found")
	ErrOutputNotFound       = errors.New("output not found")
	ErrProfileAlreadyExists = errors.New("profile already exists")
	ErrInvalidInput         = errors.New("invalid input")
)

// Store owns the in-memory profile map and is the sole writer of the
// on-disk manifests. Every mutating operation rewrites the owning profile's
// whole manifest; there is no cross-process coordination, which is accepted
// for a single-operator tool. The mutex serializes in-process access so
// concurrent HTTP handlers cannot corrupt the map; it does not add
// manifest-level transactionality.
type Store struct {
	mu       sync.Mutex
	root     string
	log      *logger.Logger
	profiles map[string]*Manifest
	order    []string
}

// Load scans the profiles root for subdirectories containing a manifest and
// builds the initial in-memory profile mapping. Directories without a valid
// manifest are skipped, not reported as errors.
func Load(root string, log *logger.Logger) (*Store, error) {
	mkdirErr := os.MkdirAll(root, dirPermissions)
	if mkdirErr != nil {
		return nil, fmt.Errorf("failed to create profiles root: %w", mkdirErr)
	}

	store := &Store{
		root:     root,
		log:      log,
		profiles: make(map[string]*Manifest),
		order:    nil,
	}

	entries, readErr := os.ReadDir(root)
	if readErr != nil {
		return nil, fmt.Errorf("failed to scan profiles root: %w", readErr)
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		manifest, ok := store.readManifest(entry.Name())
		if !ok {
			continue
		}

		store.profiles[manifest.Name] = manifest
		store.order = append(store.order, manifest.Name)
	}

	return store, nil
}

// CreateProfile creates the directory structure and an empty manifest for a
// new profile. A profile with an existing name is rejected, never
// overwritten.
func (s *Store) CreateProfile(name, description string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		return fmt.Errorf("%w: profile name cannot be empty", ErrInvalidInput)
	}

	_, exists := s.profiles[name]
	if exists {
		return fmt.Errorf("%w: %q", ErrProfileAlreadyExists, name)
	}

	dirErr := s.createProfileDirs(name)
	if dirErr != nil {
		return dirErr
	}

	manifest := &Manifest{
		Name:        name,
		Description: description,
		CreatedAt:   timestamp(time.Now()),
		Samples:     OrderedMap[SampleInfo]{},
		Styles:      OrderedMap[StyleInfo]{},
		Outputs:     OrderedMap[OutputInfo]{},
	}

	persistErr := s.persist(manifest)
	if persistErr != nil {
		return persistErr
	}

	s.profiles[name] = manifest
	s.order = append(s.order, name)

	return nil
}

// AddSample copies the source audio into the profile's sample directory and
// registers it under sampleName. Re-adding an existing sample name replaces
// its metadata; that matches the manifest's historical semantics and is
// deliberately not rejected here.
func (s *Store) AddSample(
	profileName, sampleName, sourceAudioPath, transcription string,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, profileName)
	}

	if sampleName == "" {
		return fmt.Errorf("%w: sample name cannot be empty", ErrInvalidInput)
	}

	destPath := filepath.Join(
		s.root, profileName, samplesDirName,
		sampleFileName(sampleName, sourceAudioPath),
	)

	copyErr := copyAudioFile(sourceAudioPath, destPath)
	if copyErr != nil {
		return copyErr
	}

	manifest.Samples.Set(sampleName, SampleInfo{
		Path:          destPath,
		Transcription: transcription,
		AddedAt:       timestamp(time.Now()),
	})

	return s.persist(manifest)
}

// AddStyle links styleName to an existing sample. Creating a style for a
// sample that does not exist fails without touching the manifest.
func (s *Store) AddStyle(profileName, styleName, sampleName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return fmt.Errorf("%w: %q", ErrProfileNotFound, profileName)
	}

	if styleName == "" {
		return fmt.Errorf("%w: style name cannot be empty", ErrInvalidInput)
	}

	_, sampleExists := manifest.Samples.Get(sampleName)
	if !sampleExists {
		return fmt.Errorf(
			"%w: %q in profile %q", ErrSampleNotFound, sampleName, profileName,
		)
	}

	manifest.Styles.Set(styleName, StyleInfo{
		Sample:  sampleName,
		AddedAt: timestamp(time.Now()),
	})

	return s.persist(manifest)
}

// SaveOutput writes the audio buffer into the profile's outputs directory
// and records it under outputName, returning the written file path. The
// filename carries a timestamp suffix, so repeated saves under one name
// produce distinct files; the manifest key is the bare name, so the entry
// reflects the latest save. Both halves of that behavior are intentional.
func (s *Store) SaveOutput(
	profileName, outputName string,
	buf *audio.IntBuffer,
	text, style string,
) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return "", fmt.Errorf("%w: %q", ErrProfileNotFound, profileName)
	}

	if outputName == "" {
		return "", fmt.Errorf("%w: output name cannot be empty", ErrInvalidInput)
	}

	if style == "" {
		style = defaultStyleName
	}

	now := time.Now()
	outputPath := filepath.Join(
		s.root, profileName, outputsDirName, outputFileName(outputName, now),
	)

	writeErr := wavio.EncodeToFile(outputPath, buf)
	if writeErr != nil {
		return "", fmt.Errorf("failed to write output audio: %w", writeErr)
	}

	manifest.Outputs.Set(outputName, OutputInfo{
		Path:      outputPath,
		Text:      text,
		Style:     style,
		CreatedAt: timestamp(now),
	})

	persistErr := s.persist(manifest)
	if persistErr != nil {
		return "", persistErr
	}

	return outputPath, nil
}

// SamplePath returns the stored path of a sample, if it exists.
func (s *Store) SamplePath(profileName, sampleName string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return "", false
	}

	sample, ok := manifest.Samples.Get(sampleName)
	if !ok {
		return "", false
	}

	return sample.Path, true
}

// Transcription returns the transcription of a sample, or the empty string
// when the profile or sample is unknown.
func (s *Store) Transcription(profileName, sampleName string) string {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return ""
	}

	sample, ok := manifest.Samples.Get(sampleName)
	if !ok {
		return ""
	}

	return sample.Transcription
}

// StyleSample returns the sample name a style points at, if the style
// exists.
func (s *Store) StyleSample(profileName, styleName string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return "", false
	}

	style, ok := manifest.Styles.Get(styleName)
	if !ok {
		return "", false
	}

	return style.Sample, true
}

// Output returns the record of a saved output, if it exists.
func (s *Store) Output(profileName, outputName string) (OutputInfo, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return OutputInfo{}, false
	}

	return manifest.Outputs.Get(outputName)
}

// Profile returns the manifest for a profile. The store retains ownership;
// callers must not mutate the result.
func (s *Store) Profile(name string) (*Manifest, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[name]

	return manifest, found
}

// ListProfiles returns profile names in load/creation order.
func (s *Store) ListProfiles() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.order))
	copy(names, s.order)

	return names
}

// ListSamples returns sample names in manifest insertion order. Unknown
// profiles yield an empty list, never an error.
func (s *Store) ListSamples(profileName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return nil
	}

	return manifest.Samples.Keys()
}

// ListStyles returns style names in manifest insertion order.
func (s *Store) ListStyles(profileName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return nil
	}

	return manifest.Styles.Keys()
}

// ListOutputs returns saved output names in manifest insertion order.
func (s *Store) ListOutputs(profileName string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	manifest, found := s.profiles[profileName]
	if !found {
		return nil
	}

	return manifest.Outputs.Keys()
}

func (s *Store) createProfileDirs(name string) error {
	for _, dir := range []string{
		filepath.Join(s.root, name),
		filepath.Join(s.root, name, samplesDirName),
		filepath.Join(s.root, name, outputsDirName),
	} {
		mkdirErr := os.MkdirAll(dir, dirPermissions)
		if mkdirErr != nil {
			return fmt.Errorf("failed to create profile directory: %w", mkdirErr)
		}
	}

	return nil
}

// persist rewrites the profile's whole manifest as a single file overwrite.
// This is the store's only atomicity mechanism.
func (s *Store) persist(manifest *Manifest) error {
	data, marshalErr := json.MarshalIndent(manifest, "", "    ")
	if marshalErr != nil {
		return fmt.Errorf("failed to marshal manifest: %w", marshalErr)
	}

	manifestPath := filepath.Join(s.root, manifest.Name, manifestFileName)

	writeErr := os.WriteFile(manifestPath, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write manifest: %w", writeErr)
	}

	return nil
}

func (s *Store) readManifest(dirName string) (*Manifest, bool) {
	manifestPath := filepath.Join(s.root, dirName, manifestFileName)

	data, readErr := os.ReadFile(manifestPath)
	if readErr != nil {
		return nil, false
	}

	var manifest Manifest

	unmarshalErr := json.Unmarshal(data, &manifest)
	if unmarshalErr != nil || manifest.Name == "" {
		s.log.Warn("Skipping directory with invalid manifest: %s", dirName)

		return nil, false
	}

	return &manifest, true
}

// copyAudioFile copies the source audio into the store. WAV sources are
// decoded and re-encoded, which normalizes headers and decouples the stored
// clip from the upload path's lifetime; other formats are copied verbatim.
func copyAudioFile(sourcePath, destPath string) error {
	if strings.EqualFold(filepath.Ext(sourcePath), wavExtension) {
		buf, decodeErr := wavio.DecodeFile(sourcePath)
		if decodeErr != nil {
			return fmt.Errorf("failed to decode sample audio: %w", decodeErr)
		}

		encodeErr := wavio.EncodeToFile(destPath, buf)
		if encodeErr != nil {
			return fmt.Errorf("failed to re-encode sample audio: %w", encodeErr)
		}

		return nil
	}

	data, readErr := os.ReadFile(sourcePath)
	if readErr != nil {
		return fmt.Errorf("failed to read sample audio: %w", readErr)
	}

	writeErr := os.WriteFile(destPath, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to copy sample audio: %w", writeErr)
	}

	return nil
}
