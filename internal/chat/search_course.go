package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/courseloom/tutor/internal/catalog"
	"github.com/courseloom/tutor/internal/llm"
)

// unknownCourseTitle labels chunks whose catalog entry is missing. It also
// suppresses lesson-link lookup, since there is no title to look up under.
const unknownCourseTitle = "unknown"

// SearchCourseTool searches course transcripts with fuzzy course-name
// matching and optional lesson filtering.
type SearchCourseTool struct {
	provider CourseSearcher
	sources  []Source
}

func NewSearchCourseTool(provider CourseSearcher) *SearchCourseTool {
	return &SearchCourseTool{provider: provider}
}

func (t *SearchCourseTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "search_course_content",
		Description: "Search course materials with smart course name matching and lesson filtering",
		InputSchema: toolSchema(
			map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "What to search for in the course content",
				},
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
				},
				"lesson_number": map[string]any{
					"type":        "integer",
					"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
				},
			},
			[]string{"query"},
		),
	}
}

type searchCourseInput struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name,omitempty"`
	LessonNumber *int   `json:"lesson_number,omitempty"`
}

func (t *SearchCourseTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	t.sources = nil

	var input searchCourseInput
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("parse search_course_content arguments: %w", err)
	}

	// An empty query is still forwarded; input validation is the
	// provider's concern.
	results := t.provider.Search(ctx, input.Query, catalog.SearchOptions{
		CourseName:   input.CourseName,
		LessonNumber: input.LessonNumber,
	})

	if results.Error != "" {
		return results.Error, nil
	}
	if results.IsEmpty() {
		var filters strings.Builder
		if input.CourseName != "" {
			fmt.Fprintf(&filters, " in course '%s'", input.CourseName)
		}
		if input.LessonNumber != nil {
			fmt.Fprintf(&filters, " in lesson %d", *input.LessonNumber)
		}
		return fmt.Sprintf("No relevant content found%s.", filters.String()), nil
	}

	return t.formatResults(ctx, results), nil
}

func (t *SearchCourseTool) formatResults(ctx context.Context, results catalog.SearchResults) string {
	blocks := make([]string, 0, len(results.Documents))
	sources := make([]Source, 0, len(results.Documents))

	for i, doc := range results.Documents {
		meta := results.Metadata[i]
		courseTitle := meta.CourseTitle
		if courseTitle == "" {
			courseTitle = unknownCourseTitle
		}

		header := "[" + courseTitle
		sourceTitle := courseTitle
		if meta.LessonNumber != nil {
			header += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
			sourceTitle += fmt.Sprintf(" - Lesson %d", *meta.LessonNumber)
		}
		header += "]"

		url := ""
		if meta.LessonNumber != nil && courseTitle != unknownCourseTitle {
			if link, err := t.provider.GetLessonLink(ctx, courseTitle, *meta.LessonNumber); err == nil {
				url = link
			}
		}

		sources = append(sources, Source{Title: sourceTitle, URL: url})
		blocks = append(blocks, header+"\n"+doc)
	}

	t.sources = sources
	return strings.Join(blocks, "\n\n")
}

func (t *SearchCourseTool) Sources() []Source {
	return t.sources
}

func (t *SearchCourseTool) ResetSources() {
	t.sources = nil
}
