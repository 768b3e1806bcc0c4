package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/pgvector/pgvector-go"

	"github.com/courseloom/tutor/internal/llm"
)

const defaultSearchLimit = 5

// Store is the vector-backed course catalog: transcript chunks for
// semantic search plus per-course metadata for outlines and lesson links.
type Store struct {
	db          *sql.DB
	embedder    llm.EmbeddingClient
	searchLimit int
}

type StoreOption func(*Store)

func WithSearchLimit(limit int) StoreOption {
	return func(s *Store) {
		if limit > 0 {
			s.searchLimit = limit
		}
	}
}

func NewStore(db *sql.DB, embedder llm.EmbeddingClient, opts ...StoreOption) *Store {
	store := &Store{
		db:          db,
		embedder:    embedder,
		searchLimit: defaultSearchLimit,
	}
	for _, opt := range opts {
		opt(store)
	}
	return store
}

// SearchOptions narrows a content search. CourseName is fuzzy-resolved
// against the catalog before filtering.
type SearchOptions struct {
	CourseName   string
	LessonNumber *int
	Limit        int
}

// Search embeds the query and returns the closest transcript chunks.
// Failures are reported through SearchResults.Error rather than a Go
// error so the caller can hand the message straight to the model.
func (s *Store) Search(ctx context.Context, query string, opts SearchOptions) SearchResults {
	start := time.Now()
	limit := opts.Limit
	if limit <= 0 {
		limit = s.searchLimit
	}

	courseTitle := ""
	if opts.CourseName != "" {
		resolved, err := s.ResolveCourseName(ctx, opts.CourseName)
		if err != nil {
			searchQueriesTotal.WithLabelValues("error").Inc()
			return SearchResults{Error: fmt.Sprintf("Search error: %v", err)}
		}
		if resolved == "" {
			searchQueriesTotal.WithLabelValues("no_course").Inc()
			return SearchResults{Error: fmt.Sprintf("No course found matching '%s'", opts.CourseName)}
		}
		courseTitle = resolved
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		searchQueriesTotal.WithLabelValues("error").Inc()
		return SearchResults{Error: fmt.Sprintf("Search error: %v", err)}
	}
	embedding := pgvector.NewVector(vecs[0])

	sqlQuery := `
		SELECT course_title, lesson_number, chunk_index, content, embedding <=> $1 AS distance
		FROM tutor.course_chunks`
	args := []any{embedding}
	if courseTitle != "" {
		sqlQuery += fmt.Sprintf(" WHERE course_title = $%d", len(args)+1)
		args = append(args, courseTitle)
		if opts.LessonNumber != nil {
			sqlQuery += fmt.Sprintf(" AND lesson_number = $%d", len(args)+1)
			args = append(args, *opts.LessonNumber)
		}
	} else if opts.LessonNumber != nil {
		sqlQuery += fmt.Sprintf(" WHERE lesson_number = $%d", len(args)+1)
		args = append(args, *opts.LessonNumber)
	}
	sqlQuery += fmt.Sprintf(" ORDER BY distance LIMIT $%d", len(args)+1)
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, sqlQuery, args...)
	if err != nil {
		searchQueriesTotal.WithLabelValues("error").Inc()
		return SearchResults{Error: fmt.Sprintf("Search error: %v", err)}
	}
	defer rows.Close()

	var results SearchResults
	for rows.Next() {
		var (
			title    string
			lesson   sql.NullInt64
			index    int
			content  string
			distance float64
		)
		if err := rows.Scan(&title, &lesson, &index, &content, &distance); err != nil {
			searchQueriesTotal.WithLabelValues("error").Inc()
			return SearchResults{Error: fmt.Sprintf("Search error: %v", err)}
		}
		meta := ChunkMetadata{CourseTitle: title, ChunkIndex: index}
		if lesson.Valid {
			n := int(lesson.Int64)
			meta.LessonNumber = &n
		}
		results.Documents = append(results.Documents, content)
		results.Metadata = append(results.Metadata, meta)
		results.Distances = append(results.Distances, distance)
	}
	if err := rows.Err(); err != nil {
		searchQueriesTotal.WithLabelValues("error").Inc()
		return SearchResults{Error: fmt.Sprintf("Search error: %v", err)}
	}

	if results.IsEmpty() {
		searchQueriesTotal.WithLabelValues("empty").Inc()
	} else {
		searchQueriesTotal.WithLabelValues("ok").Inc()
	}
	searchDuration.Observe(time.Since(start).Seconds())
	searchResultsCount.Observe(float64(len(results.Documents)))
	return results
}

// GetAllCourseMetadata returns every catalog record in insertion order.
func (s *Store) GetAllCourseMetadata(ctx context.Context) ([]CourseMetadata, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT title, instructor, COALESCE(course_link, ''), lessons
		FROM tutor.course_catalog
		ORDER BY id
	`)
	if err != nil {
		return nil, fmt.Errorf("query course catalog: %w", err)
	}
	defer rows.Close()

	var courses []CourseMetadata
	for rows.Next() {
		var course CourseMetadata
		var lessonsBytes []byte
		if err := rows.Scan(&course.Title, &course.Instructor, &course.CourseLink, &lessonsBytes); err != nil {
			return nil, fmt.Errorf("scan course: %w", err)
		}
		if len(lessonsBytes) > 0 {
			if err := json.Unmarshal(lessonsBytes, &course.Lessons); err != nil {
				return nil, fmt.Errorf("decode lessons for %q: %w", course.Title, err)
			}
		}
		courses = append(courses, course)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate course catalog: %w", err)
	}
	return courses, nil
}

// GetLessonLink returns the link for one lesson of a course, or "" when
// the course or lesson is unknown or carries no link.
func (s *Store) GetLessonLink(ctx context.Context, courseTitle string, lessonNumber int) (string, error) {
	var lessonsBytes []byte
	err := s.db.QueryRowContext(ctx, `
		SELECT lessons FROM tutor.course_catalog WHERE title = $1
	`, courseTitle).Scan(&lessonsBytes)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query lessons: %w", err)
	}

	var lessons []LessonMetadata
	if err := json.Unmarshal(lessonsBytes, &lessons); err != nil {
		return "", fmt.Errorf("decode lessons for %q: %w", courseTitle, err)
	}
	for _, lesson := range lessons {
		if lesson.LessonNumber == lessonNumber {
			return lesson.LessonLink, nil
		}
	}
	return "", nil
}

// UpsertCourse inserts or replaces one catalog record. The title
// embedding feeds semantic course-name resolution.
func (s *Store) UpsertCourse(ctx context.Context, course CourseMetadata, titleEmbedding []float32) error {
	if course.Title == "" {
		return errors.New("course title is required")
	}
	lessonsBytes, err := json.Marshal(course.Lessons)
	if err != nil {
		return fmt.Errorf("encode lessons: %w", err)
	}
	if course.Lessons == nil {
		lessonsBytes = []byte("[]")
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO tutor.course_catalog (title, instructor, course_link, lessons, embedding)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (title) DO UPDATE SET
			instructor = EXCLUDED.instructor,
			course_link = EXCLUDED.course_link,
			lessons = EXCLUDED.lessons,
			embedding = EXCLUDED.embedding
	`, course.Title, course.Instructor, nullableString(course.CourseLink), lessonsBytes, pgvector.NewVector(titleEmbedding)); err != nil {
		return fmt.Errorf("upsert course: %w", err)
	}
	return nil
}

// UpsertChunks replaces all stored chunks for the chunks' courses in one
// transaction, delete-then-insert.
func (s *Store) UpsertChunks(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}
	byCourse := make(map[string]struct{})
	for _, chunk := range chunks {
		if chunk.CourseTitle == "" {
			return errors.New("course title is required for chunk")
		}
		byCourse[chunk.CourseTitle] = struct{}{}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for title := range byCourse {
		if _, execErr := tx.ExecContext(ctx, `
			DELETE FROM tutor.course_chunks WHERE course_title = $1
		`, title); execErr != nil {
			return fmt.Errorf("delete existing chunks: %w", execErr)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO tutor.course_chunks (course_title, lesson_number, chunk_index, content, embedding)
		VALUES ($1, $2, $3, $4, $5)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, chunk := range chunks {
		var lesson any
		if chunk.LessonNumber != nil {
			lesson = *chunk.LessonNumber
		}
		if _, err := stmt.ExecContext(
			ctx,
			chunk.CourseTitle,
			lesson,
			chunk.Index,
			chunk.Content,
			pgvector.NewVector(chunk.Embedding),
		); err != nil {
			return fmt.Errorf("insert chunk: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// CourseCount returns the number of catalog records.
func (s *Store) CourseCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tutor.course_catalog`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count courses: %w", err)
	}
	return count, nil
}

// ListCourseTitles returns all catalog titles in insertion order.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT title FROM tutor.course_catalog ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list course titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var title string
		if err := rows.Scan(&title); err != nil {
			return nil, fmt.Errorf("scan title: %w", err)
		}
		titles = append(titles, title)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate titles: %w", err)
	}
	return titles, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
