package segment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/book-expert/voice-studio/internal/segment"
)

func TestSplitTwoStyles(t *testing.T) {
	t.Parallel()

	got := segment.Split("{A} hello {B} world")

	assert.Equal(t, []segment.Segment{
		{Style: "A", Text: "hello"},
		{Style: "B", Text: "world"},
	}, got)
}

func TestSplitNoMarkers(t *testing.T) {
	t.Parallel()

	got := segment.Split("no markers here")

	assert.Equal(t, []segment.Segment{
		{Style: "default", Text: "no markers here"},
	}, got)
}

func TestSplitEmptyContentDropped(t *testing.T) {
	t.Parallel()

	got := segment.Split("{A}{B} text")

	assert.Equal(t, []segment.Segment{
		{Style: "B", Text: "text"},
	}, got)
}

func TestSplitBlankInput(t *testing.T) {
	t.Parallel()

	assert.Empty(t, segment.Split(""))
	assert.Empty(t, segment.Split("   \n\t "))
}

func TestSplitTrimsStyleAndContent(t *testing.T) {
	t.Parallel()

	got := segment.Split("{ Calm }\n  take a breath  \n{Excited}go!")

	assert.Equal(t, []segment.Segment{
		{Style: "Calm", Text: "take a breath"},
		{Style: "Excited", Text: "go!"},
	}, got)
}

// Text ahead of the first marker is discarded, matching the historical
// behavior of the segmentation routine.
func TestSplitLeadingTextDiscarded(t *testing.T) {
	t.Parallel()

	got := segment.Split("ignored preamble {A} kept")

	assert.Equal(t, []segment.Segment{
		{Style: "A", Text: "kept"},
	}, got)
}

func TestSplitTrailingMarkerWithoutContent(t *testing.T) {
	t.Parallel()

	got := segment.Split("{A} spoken {B}")

	assert.Equal(t, []segment.Segment{
		{Style: "A", Text: "spoken"},
	}, got)
}

func TestSplitMultilineContent(t *testing.T) {
	t.Parallel()

	got := segment.Split("{Narrative} line one\nline two {Calm} done")

	assert.Equal(t, []segment.Segment{
		{Style: "Narrative", Text: "line one\nline two"},
		{Style: "Calm", Text: "done"},
	}, got)
}
