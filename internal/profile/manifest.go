package profile

import (
	"path/filepath"
	"strings"
	"time"
)

// Manifest file and directory names inside a profile directory.
const (
	manifestFileName = "profile.json"
	samplesDirName   = "samples"
	outputsDirName   = "outputs"
)

// Timestamp layouts. Manifest timestamps are human-readable; file suffixes
// are compact so they survive in filenames.
const (
	timestampLayout  = "2006-01-02 15:04:05"
	fileSuffixLayout = "20060102_150405"
)

const invalidCharReplacement = "_"

// SampleInfo is the manifest record for one stored reference clip.
type SampleInfo struct {
	Path          string `json:"path"`
	Transcription string `json:"transcription"`
	AddedAt       string `json:"added_at"`
}

// StyleInfo is the manifest record for one style alias. A style never owns
// audio; it points at a sample by name.
type StyleInfo struct {
	Sample  string `json:"sample"`
	AddedAt string `json:"added_at"`
}

// OutputInfo is the manifest record for one saved synthesis result.
type OutputInfo struct {
	Path      string `json:"path"`
	Text      string `json:"text"`
	Style     string `json:"style"`
	CreatedAt string `json:"created_at"`
}

// Manifest is the on-disk JSON document describing one voice profile.
// Older manifests may omit the outputs field; the zero OrderedMap behaves
// as an empty collection, so no migration is needed on read.
type Manifest struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	CreatedAt   string                 `json:"created_at"`
	Samples     OrderedMap[SampleInfo] `json:"samples"`
	Styles      OrderedMap[StyleInfo]  `json:"styles"`
	Outputs     OrderedMap[OutputInfo] `json:"outputs"`
}

func timestamp(t time.Time) string {
	return t.Format(timestampLayout)
}

func fileSuffix(t time.Time) string {
	return t.Format(fileSuffixLayout)
}

// sanitizeFileName replaces spaces and characters that are invalid in most
// filesystems, keeping derived filenames portable.
func sanitizeFileName(name string) string {
	replacer := strings.NewReplacer(
		" ", invalidCharReplacement,
		"<", invalidCharReplacement,
		">", invalidCharReplacement,
		":", invalidCharReplacement,
		"\"", invalidCharReplacement,
		"/", invalidCharReplacement,
		"\\", invalidCharReplacement,
		"|", invalidCharReplacement,
		"?", invalidCharReplacement,
		"*", invalidCharReplacement,
	)

	return replacer.Replace(name)
}

// sampleFileName derives the stored filename for a sample, preserving the
// source file's extension.
func sampleFileName(sampleName, sourcePath string) string {
	return sanitizeFileName(sampleName) + filepath.Ext(sourcePath)
}

// outputFileName derives the stored filename for an output. The timestamp
// suffix keeps repeated saves under the same name distinct on disk.
func outputFileName(outputName string, t time.Time) string {
	return sanitizeFileName(outputName) + "_" + fileSuffix(t) + ".wav"
}
