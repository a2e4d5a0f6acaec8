// Package silence removes leading and trailing silence from WAV files by
// shelling out to ffmpeg.
package silence

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/book-expert/logger"
)

const trimmedSuffix = ".trimmed.wav"

// ErrFFmpegNotConfigured is returned when the trimmer is constructed
// without an ffmpeg binary path.
var ErrFFmpegNotConfigured = errors.New("ffmpeg path not configured")

// Trimmer trims silence in place using ffmpeg's silenceremove filter. It
// implements core.SilenceTrimmer.
type Trimmer struct {
	ffmpegPath  string
	thresholdDB float64
	log         *logger.Logger
}

// New creates a Trimmer. The thresholdDB is the level below which audio
// counts as silence, expressed in negative dB (e.g. -50).
func New(ffmpegPath string, thresholdDB float64, log *logger.Logger) (*Trimmer, error) {
	if ffmpegPath == "" {
		return nil, ErrFFmpegNotConfigured
	}

	return &Trimmer{
		ffmpegPath:  ffmpegPath,
		thresholdDB: thresholdDB,
		log:         log,
	}, nil
}

// TrimInPlace rewrites wavPath with leading and trailing silence removed.
// ffmpeg writes to a sibling temp file which then replaces the original, so
// a failed run leaves the input untouched.
func (t *Trimmer) TrimInPlace(ctx context.Context, wavPath string) error {
	tempPath := wavPath + trimmedSuffix

	// The filter trims the head, reverses, trims the new head (the
	// original tail), and reverses back.
	filter := fmt.Sprintf(
		"silenceremove=start_periods=1:start_threshold=%.0fdB,"+
			"areverse,"+
			"silenceremove=start_periods=1:start_threshold=%.0fdB,"+
			"areverse",
		t.thresholdDB, t.thresholdDB,
	)

	args := []string{
		"-y",
		"-i", wavPath,
		"-af", filter,
		tempPath,
	}

	// #nosec G204 -- the binary path comes from validated configuration
	cmd := exec.CommandContext(ctx, t.ffmpegPath, args...)

	output, runErr := cmd.CombinedOutput()
	if runErr != nil {
		removeErr := os.Remove(tempPath)
		if removeErr != nil && !os.IsNotExist(removeErr) {
			t.log.Warn(
				"Failed to remove temp file '%s': %v", tempPath, removeErr,
			)
		}

		return fmt.Errorf(
			"ffmpeg silence removal failed: %w - output: %s",
			runErr,
			string(output),
		)
	}

	renameErr := os.Rename(tempPath, wavPath)
	if renameErr != nil {
		return fmt.Errorf("failed to replace trimmed audio: %w", renameErr)
	}

	return nil
}
