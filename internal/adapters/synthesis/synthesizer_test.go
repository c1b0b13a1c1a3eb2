package synthesis

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adventurelabs/waypoint/internal/domain"
)

func newBuilder() *Builder {
	return NewBuilder(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestSynthesizeAssemblesSections(t *testing.T) {
	b := newBuilder()
	state := domain.NewRunState("run-1", "weekend hike near Oslo", nil)
	state.Fields["geo"] = "Nordmarka region"
	state.Fields["trail"] = "Vettakollen loop"
	state.Fields["empty"] = ""
	state.Fields["absent"] = nil

	artifact, err := b.Synthesize(context.Background(), state, "")
	require.NoError(t, err)

	assert.Contains(t, artifact.Title, "weekend hike near Oslo")
	assert.Len(t, artifact.Sections, 2)
	assert.Equal(t, "Nordmarka region", artifact.Sections["geo"])
	assert.NotContains(t, artifact.Sections, "empty")
	assert.Equal(t, 0, artifact.Revision)
	assert.Contains(t, artifact.Summary, "2 section(s)")
}

func TestSynthesizeEmptyStateFallsBack(t *testing.T) {
	b := newBuilder()
	state := domain.NewRunState("run-1", "input", nil)
	state.RecordError(domain.NewErrorRecord("geo", domain.ErrorKindPermanent, errors.New("boom")))

	artifact, err := b.Synthesize(context.Background(), state, "")
	require.NoError(t, err)

	assert.Empty(t, artifact.Sections)
	assert.Len(t, artifact.Errors, 1)
	assert.Contains(t, artifact.Summary, "No recommendation")
}

func TestSynthesizeCarriesErrors(t *testing.T) {
	b := newBuilder()
	state := domain.NewRunState("run-1", "input", nil)
	state.Fields["geo"] = "data"
	state.RecordError(domain.NewErrorRecord("trail", domain.ErrorKindTransient, errors.New("timeout")))

	artifact, err := b.Synthesize(context.Background(), state, "")
	require.NoError(t, err)

	assert.Len(t, artifact.Errors, 1)
	assert.Contains(t, artifact.Summary, "1 worker error(s)")
}

func TestSynthesizeRevision(t *testing.T) {
	b := newBuilder()
	state := domain.NewRunState("run-1", "input", nil)
	state.Fields["geo"] = "data"

	first, err := b.Synthesize(context.Background(), state, "")
	require.NoError(t, err)
	state.Artifact = first

	second, err := b.Synthesize(context.Background(), state, "add gear advice")
	require.NoError(t, err)

	assert.Equal(t, 1, second.Revision)
	assert.Equal(t, "add gear advice", second.Sections["reviewer_feedback"])
	assert.Contains(t, second.Summary, "Revised per reviewer feedback")
}

func TestSynthesizeCancelledContext(t *testing.T) {
	b := newBuilder()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := b.Synthesize(ctx, domain.NewRunState("run-1", "input", nil), "")
	assert.Error(t, err)
}

func TestSynthesizeTruncatesLongTitle(t *testing.T) {
	b := newBuilder()
	long := make([]byte, 200)
	for i := range long {
		long[i] = 'x'
	}
	state := domain.NewRunState("run-1", string(long), nil)
	state.Fields["geo"] = "data"

	artifact, err := b.Synthesize(context.Background(), state, "")
	require.NoError(t, err)
	assert.LessOrEqual(t, len(artifact.Title), len("Recommendation: ")+83)
}
