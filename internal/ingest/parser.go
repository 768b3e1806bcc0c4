package ingest

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// CourseDocument is the parsed form of one course script file.
type CourseDocument struct {
	Title      string
	Link       string
	Instructor string
	Lessons    []Lesson
}

// Lesson is one "Lesson N: title" section with its transcript text.
type Lesson struct {
	Number  int
	Title   string
	Link    string
	Content string
}

// ParseCourseDocument reads a course script in the documented format:
// a three-line header (Course Title, Course Link, Course Instructor)
// followed by "Lesson N: <title>" sections, each optionally opening
// with a "Lesson Link:" line before the transcript body.
func ParseCourseDocument(r io.Reader) (*CourseDocument, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	doc := &CourseDocument{}
	var current *Lesson
	var body []string

	flush := func() {
		if current == nil {
			return
		}
		current.Content = strings.TrimSpace(strings.Join(body, "\n"))
		doc.Lessons = append(doc.Lessons, *current)
		current = nil
		body = nil
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)

		switch {
		case strings.HasPrefix(trimmed, "Course Title:"):
			doc.Title = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Title:"))
		case strings.HasPrefix(trimmed, "Course Link:"):
			doc.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Link:"))
		case strings.HasPrefix(trimmed, "Course Instructor:"):
			doc.Instructor = strings.TrimSpace(strings.TrimPrefix(trimmed, "Course Instructor:"))
		case strings.HasPrefix(trimmed, "Lesson Link:") && current != nil && len(body) == 0:
			current.Link = strings.TrimSpace(strings.TrimPrefix(trimmed, "Lesson Link:"))
		default:
			if number, title, ok := parseLessonHeader(trimmed); ok {
				flush()
				current = &Lesson{Number: number, Title: title}
				continue
			}
			if current != nil {
				body = append(body, line)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read course document: %w", err)
	}
	flush()

	if doc.Title == "" {
		return nil, fmt.Errorf("course document missing 'Course Title:' header")
	}
	return doc, nil
}

// parseLessonHeader matches "Lesson <number>: <title>" lines.
func parseLessonHeader(line string) (int, string, bool) {
	rest, ok := strings.CutPrefix(line, "Lesson ")
	if !ok {
		return 0, "", false
	}
	numStr, title, ok := strings.Cut(rest, ":")
	if !ok {
		return 0, "", false
	}
	number, err := strconv.Atoi(strings.TrimSpace(numStr))
	if err != nil {
		return 0, "", false
	}
	return number, strings.TrimSpace(title), true
}
