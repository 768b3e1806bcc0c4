package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/courseloom/tutor/internal/catalog"
	"github.com/courseloom/tutor/internal/llm"
)

// CourseOutlineTool returns course structure: title, instructor and the
// full lesson list in catalog order.
type CourseOutlineTool struct {
	provider CourseSearcher
	sources  []Source
}

func NewCourseOutlineTool(provider CourseSearcher) *CourseOutlineTool {
	return &CourseOutlineTool{provider: provider}
}

func (t *CourseOutlineTool) Definition() llm.Tool {
	return llm.Tool{
		Name:        "get_course_outline",
		Description: "Get course structure including title, instructor, and complete lesson list. Use for questions about course outlines, table of contents, or lesson structure.",
		InputSchema: toolSchema(
			map[string]any{
				"course_name": map[string]any{
					"type":        "string",
					"description": "Course title to get outline for (partial matches work, e.g. 'MCP', 'Introduction'). If omitted, returns all courses.",
				},
			},
			nil,
		),
	}
}

type courseOutlineInput struct {
	CourseName string `json:"course_name,omitempty"`
}

func (t *CourseOutlineTool) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	t.sources = nil

	var input courseOutlineInput
	if err := json.Unmarshal(args, &input); err != nil {
		return "", fmt.Errorf("parse get_course_outline arguments: %w", err)
	}

	allCourses, err := t.provider.GetAllCourseMetadata(ctx)
	if err != nil {
		return "", fmt.Errorf("load course metadata: %w", err)
	}
	if len(allCourses) == 0 {
		return "No courses found in the system.", nil
	}

	courses := allCourses
	if input.CourseName != "" {
		resolved, err := t.provider.ResolveCourseName(ctx, input.CourseName)
		if err != nil {
			return "", fmt.Errorf("resolve course name: %w", err)
		}
		if resolved == "" {
			return fmt.Sprintf("No course found matching '%s'.", input.CourseName), nil
		}

		courses = nil
		for _, course := range allCourses {
			if course.Title == resolved {
				courses = append(courses, course)
			}
		}
		// Catalog inconsistency: the resolver knows a title the
		// metadata listing does not carry.
		if len(courses) == 0 {
			return fmt.Sprintf("No course found matching '%s'.", input.CourseName), nil
		}
	}

	return t.formatOutline(courses), nil
}

func (t *CourseOutlineTool) formatOutline(courses []catalog.CourseMetadata) string {
	blocks := make([]string, 0, len(courses))
	var sources []Source

	for _, course := range courses {
		var b strings.Builder
		fmt.Fprintf(&b, "**%s**\n", course.Title)
		fmt.Fprintf(&b, "Instructor: %s\n", course.Instructor)
		if course.CourseLink != "" {
			fmt.Fprintf(&b, "Course Link: %s\n", course.CourseLink)
		}
		fmt.Fprintf(&b, "\nLessons (%d total):", len(course.Lessons))

		anyLessonLink := false
		for _, lesson := range course.Lessons {
			fmt.Fprintf(&b, "\n  %d. %s", lesson.LessonNumber, lesson.LessonTitle)
			if lesson.LessonLink != "" {
				anyLessonLink = true
				sources = append(sources, Source{
					Title: fmt.Sprintf("%s - Lesson %d", course.Title, lesson.LessonNumber),
					URL:   lesson.LessonLink,
				})
			}
		}
		// Course-level fallback: cite the course link once when no
		// lesson carries its own.
		if !anyLessonLink && course.CourseLink != "" {
			sources = append(sources, Source{Title: course.Title, URL: course.CourseLink})
		}

		blocks = append(blocks, b.String())
	}

	t.sources = sources
	return strings.Join(blocks, "\n\n")
}

func (t *CourseOutlineTool) Sources() []Source {
	return t.sources
}

func (t *CourseOutlineTool) ResetSources() {
	t.sources = nil
}
