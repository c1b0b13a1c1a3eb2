package synthesis

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/adventurelabs/waypoint/internal/domain"
)

// Builder is the default synthesizer. It assembles the artifact
// directly from the populated state fields; deployments with an LLM
// summarization step swap in their own implementation.
type Builder struct {
	logger *slog.Logger
}

func NewBuilder(logger *slog.Logger) *Builder {
	return &Builder{logger: logger.With("component", "synthesizer")}
}

func (b *Builder) Synthesize(ctx context.Context, state *domain.RunState, feedback string) (*domain.Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewEngineError("synthesizer", "synthesize", err)
	}

	sections := make(map[string]interface{})
	for name, value := range state.Fields {
		if value == nil {
			continue
		}
		if s, ok := value.(string); ok && strings.TrimSpace(s) == "" {
			continue
		}
		sections[name] = value
	}

	if len(sections) == 0 {
		b.logger.Warn("no populated fields, producing minimal artifact",
			"run_id", state.RunID)
		return domain.MinimalArtifact(state), nil
	}

	title := "Recommendation"
	if input := strings.TrimSpace(state.Input); input != "" {
		title = fmt.Sprintf("Recommendation: %s", truncate(input, 80))
	}

	summary := fmt.Sprintf("Assembled from %d section(s): %s.",
		len(sections), strings.Join(sortedKeys(sections), ", "))
	if len(state.Errors) > 0 {
		summary = fmt.Sprintf("%s %d worker error(s) were recorded; some sections may be incomplete.",
			summary, len(state.Errors))
	}

	revision := 0
	if state.Artifact != nil {
		revision = state.Artifact.Revision + 1
	}
	if feedback != "" {
		sections["reviewer_feedback"] = feedback
		summary = fmt.Sprintf("%s Revised per reviewer feedback.", summary)
	}

	b.logger.Debug("artifact assembled",
		"run_id", state.RunID,
		"sections", len(sections),
		"revision", revision)

	return &domain.Artifact{
		Title:        title,
		Summary:      summary,
		Sections:     sections,
		Errors:       append([]domain.ErrorRecord(nil), state.Errors...),
		ReviewStatus: state.ReviewStatus,
		Revision:     revision,
		GeneratedAt:  time.Now(),
	}, nil
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
