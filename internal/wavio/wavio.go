// Package wavio provides WAV encoding, decoding, and concatenation helpers
// over go-audio PCM buffers.
package wavio

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// Defaults applied when a buffer does not declare its own format.
const (
	DefaultBitDepth = 16
	wavAudioFormat  = 1 // uncompressed PCM

	filePermissions = 0o600
)

// Static errors.
var (
	ErrInvalidWAV    = errors.New("invalid WAV data")
	ErrEmptyBuffer   = errors.New("audio buffer is empty")
	ErrNothingToJoin = errors.New("no buffers to concatenate")
)

// Decode parses WAV data into a PCM buffer.
func Decode(data []byte) (*audio.IntBuffer, error) {
	decoder := wav.NewDecoder(bytes.NewReader(data))
	if !decoder.IsValidFile() {
		return nil, ErrInvalidWAV
	}

	buf, err := decoder.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to decode WAV data: %w", err)
	}

	return buf, nil
}

// DecodeFile parses a WAV file into a PCM buffer.
func DecodeFile(path string) (*audio.IntBuffer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read WAV file: %w", err)
	}

	return Decode(data)
}

// Encode serializes a PCM buffer to WAV bytes.
func Encode(buf *audio.IntBuffer) ([]byte, error) {
	if buf == nil || len(buf.Data) == 0 {
		return nil, ErrEmptyBuffer
	}

	sink := &seekableBuffer{}

	writeErr := writeWAV(sink, buf)
	if writeErr != nil {
		return nil, writeErr
	}

	return sink.data, nil
}

// EncodeToFile serializes a PCM buffer to a WAV file at path.
func EncodeToFile(path string, buf *audio.IntBuffer) error {
	data, err := Encode(buf)
	if err != nil {
		return err
	}

	writeErr := os.WriteFile(path, data, filePermissions)
	if writeErr != nil {
		return fmt.Errorf("failed to write WAV file: %w", writeErr)
	}

	return nil
}

// Concat joins PCM buffers in order. All buffers are assumed to share the
// format of the first; the engine produces a single fixed sample rate, so
// this holds for every caller in this codebase.
func Concat(buffers []*audio.IntBuffer) (*audio.IntBuffer, error) {
	if len(buffers) == 0 {
		return nil, ErrNothingToJoin
	}

	total := 0
	for _, b := range buffers {
		total += len(b.Data)
	}

	joined := make([]int, 0, total)
	for _, b := range buffers {
		joined = append(joined, b.Data...)
	}

	first := buffers[0]

	return &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: first.Format.NumChannels,
			SampleRate:  first.Format.SampleRate,
		},
		Data:           joined,
		SourceBitDepth: first.SourceBitDepth,
	}, nil
}

func writeWAV(sink io.WriteSeeker, buf *audio.IntBuffer) error {
	bitDepth := buf.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = DefaultBitDepth
	}

	encoder := wav.NewEncoder(
		sink,
		buf.Format.SampleRate,
		bitDepth,
		buf.Format.NumChannels,
		wavAudioFormat,
	)

	writeErr := encoder.Write(buf)
	if writeErr != nil {
		return fmt.Errorf("failed to encode WAV data: %w", writeErr)
	}

	closeErr := encoder.Close()
	if closeErr != nil {
		return fmt.Errorf("failed to finalize WAV data: %w", closeErr)
	}

	return nil
}

// seekableBuffer adapts an in-memory byte slice to io.WriteSeeker, which the
// WAV encoder requires for header back-patching.
type seekableBuffer struct {
	data []byte
	pos  int
}

func (b *seekableBuffer) Write(p []byte) (int, error) {
	needed := b.pos + len(p)
	if needed > len(b.data) {
		grown := make([]byte, needed)
		copy(grown, b.data)
		b.data = grown
	}

	copy(b.data[b.pos:], p)
	b.pos += len(p)

	return len(p), nil
}

func (b *seekableBuffer) Seek(offset int64, whence int) (int64, error) {
	var next int

	switch whence {
	case io.SeekStart:
		next = int(offset)
	case io.SeekCurrent:
		next = b.pos + int(offset)
	case io.SeekEnd:
		next = len(b.data) + int(offset)
	default:
		return 0, fmt.Errorf("%w: unsupported whence %d", ErrInvalidWAV, whence)
	}

	if next < 0 {
		return 0, fmt.Errorf("%w: negative seek position", ErrInvalidWAV)
	}

	b.pos = next

	return int64(next), nil
}
