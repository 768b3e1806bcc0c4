package chat

import (
	"context"
	"encoding/json"

	"github.com/courseloom/tutor/internal/catalog"
	"github.com/courseloom/tutor/internal/llm"
)

// Source is an attribution record for material backing an answer.
type Source struct {
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// CourseSearcher is the retrieval surface tools consume. *catalog.Store
// satisfies it; tests swap in fakes.
type CourseSearcher interface {
	Search(ctx context.Context, query string, opts catalog.SearchOptions) catalog.SearchResults
	ResolveCourseName(ctx context.Context, name string) (string, error)
	GetAllCourseMetadata(ctx context.Context) ([]catalog.CourseMetadata, error)
	GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error)
}

// Tool is a named unit of capability the model can invoke. Definition is
// pure and deterministic. Execute reports no-result and filter-miss
// conditions through its returned string; only provider-level failures
// surface as errors. Sources returns the attributions from the most
// recent Execute call only; every call replaces the list wholesale.
type Tool interface {
	Definition() llm.Tool
	Execute(ctx context.Context, args json.RawMessage) (string, error)
	Sources() []Source
	ResetSources()
}

func toolSchema(properties map[string]any, required []string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":       "object",
		"properties": properties,
		"required":   required,
	}
}
