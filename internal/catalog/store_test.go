package catalog

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]float32, len(inputs))
	for i := range inputs {
		out[i] = f.vec
	}
	return out, nil
}

func newMockStore(t *testing.T, opts ...StoreOption) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	store := NewStore(db, &fakeEmbedder{vec: []float32{0.1, 0.2, 0.3}}, opts...)
	return store, mock, func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	}
}

func TestSearchReturnsChunks(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	rows := sqlmock.NewRows([]string{"course_title", "lesson_number", "chunk_index", "content", "distance"}).
		AddRow("Intro to Python", 1, 0, "Variables hold values.", 0.12).
		AddRow("Intro to Python", 2, 5, "Loops repeat work.", 0.31)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_title, lesson_number, chunk_index, content, embedding <=> $1 AS distance")).
		WillReturnRows(rows)

	results := store.Search(context.Background(), "variables", SearchOptions{})
	if results.Error != "" {
		t.Fatalf("unexpected error: %q", results.Error)
	}
	if len(results.Documents) != 2 {
		t.Fatalf("expected 2 documents, got %d", len(results.Documents))
	}
	if results.Metadata[0].CourseTitle != "Intro to Python" {
		t.Errorf("unexpected metadata: %+v", results.Metadata[0])
	}
	if results.Metadata[0].LessonNumber == nil || *results.Metadata[0].LessonNumber != 1 {
		t.Errorf("lesson number not decoded: %+v", results.Metadata[0])
	}
	if results.Distances[1] != 0.31 {
		t.Errorf("distances not carried through: %v", results.Distances)
	}
}

func TestSearchNullLessonNumber(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	rows := sqlmock.NewRows([]string{"course_title", "lesson_number", "chunk_index", "content", "distance"}).
		AddRow("Intro to Python", nil, 0, "Course intro text.", 0.2)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_title, lesson_number, chunk_index, content")).
		WillReturnRows(rows)

	results := store.Search(context.Background(), "intro", SearchOptions{})
	if results.Error != "" {
		t.Fatalf("unexpected error: %q", results.Error)
	}
	if results.Metadata[0].LessonNumber != nil {
		t.Errorf("NULL lesson must decode as nil, got %v", *results.Metadata[0].LessonNumber)
	}
}

func TestSearchUnresolvableCourseFilter(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	// Empty catalog: the resolver finds nothing to match against.
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title FROM tutor.course_catalog ORDER BY id")).
		WillReturnRows(sqlmock.NewRows([]string{"title"}))

	results := store.Search(context.Background(), "x", SearchOptions{CourseName: "ZZZ"})
	if results.Error != "No course found matching 'ZZZ'" {
		t.Errorf("got %q", results.Error)
	}
	if !results.IsEmpty() {
		t.Error("failed resolution must return no documents")
	}
}

func TestSearchInfrastructureError(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT course_title, lesson_number")).
		WillReturnError(errors.New("connection reset"))

	results := store.Search(context.Background(), "x", SearchOptions{})
	if results.Error == "" || !regexp.MustCompile(`^Search error: `).MatchString(results.Error) {
		t.Errorf("got %q", results.Error)
	}
}

func TestSearchEmbeddingError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	store := NewStore(db, &fakeEmbedder{err: errors.New("quota exceeded")})

	results := store.Search(context.Background(), "x", SearchOptions{})
	if results.Error != "Search error: quota exceeded" {
		t.Errorf("got %q", results.Error)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestGetAllCourseMetadata(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	lessons := `[{"lesson_number":1,"lesson_title":"Getting Started","lesson_link":"https://example.com/1"}]`
	rows := sqlmock.NewRows([]string{"title", "instructor", "course_link", "lessons"}).
		AddRow("Intro to Python", "Ada", "https://example.com/python", []byte(lessons)).
		AddRow("Advanced Go", "Rob", "", []byte(`[]`))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT title, instructor, COALESCE(course_link, ''), lessons")).
		WillReturnRows(rows)

	courses, err := store.GetAllCourseMetadata(context.Background())
	if err != nil {
		t.Fatalf("GetAllCourseMetadata: %v", err)
	}
	if len(courses) != 2 {
		t.Fatalf("expected 2 courses, got %d", len(courses))
	}
	if courses[0].Lessons[0].LessonTitle != "Getting Started" {
		t.Errorf("lessons not decoded: %+v", courses[0].Lessons)
	}
	if len(courses[1].Lessons) != 0 {
		t.Errorf("expected no lessons for second course: %+v", courses[1].Lessons)
	}
}

func TestGetLessonLink(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	lessons := `[{"lesson_number":1,"lesson_title":"A","lesson_link":"https://example.com/1"},{"lesson_number":2,"lesson_title":"B"}]`
	mock.ExpectQuery(regexp.QuoteMeta("SELECT lessons FROM tutor.course_catalog WHERE title = $1")).
		WithArgs("Intro to Python").
		WillReturnRows(sqlmock.NewRows([]string{"lessons"}).AddRow([]byte(lessons)))

	link, err := store.GetLessonLink(context.Background(), "Intro to Python", 1)
	if err != nil {
		t.Fatalf("GetLessonLink: %v", err)
	}
	if link != "https://example.com/1" {
		t.Errorf("got %q", link)
	}
}

func TestGetLessonLinkUnknownCourse(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT lessons FROM tutor.course_catalog WHERE title = $1")).
		WithArgs("Ghost Course").
		WillReturnRows(sqlmock.NewRows([]string{"lessons"}))

	link, err := store.GetLessonLink(context.Background(), "Ghost Course", 1)
	if err != nil {
		t.Fatalf("unknown course must not error: %v", err)
	}
	if link != "" {
		t.Errorf("got %q", link)
	}
}

func TestCourseCount(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM tutor.course_catalog")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	count, err := store.CourseCount(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("got %d", count)
	}
}

func TestUpsertChunksEmptyIsNoop(t *testing.T) {
	store, _, done := newMockStore(t)
	defer done()

	if err := store.UpsertChunks(context.Background(), nil); err != nil {
		t.Errorf("empty chunk set must be a no-op: %v", err)
	}
}

func TestUpsertChunksReplacesCourseChunks(t *testing.T) {
	store, mock, done := newMockStore(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM tutor.course_chunks WHERE course_title = $1")).
		WithArgs("Intro to Python").
		WillReturnResult(sqlmock.NewResult(0, 2))
	mock.ExpectPrepare(regexp.QuoteMeta("INSERT INTO tutor.course_chunks"))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO tutor.course_chunks")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	lesson := 1
	err := store.UpsertChunks(context.Background(), []Chunk{
		{CourseTitle: "Intro to Python", LessonNumber: &lesson, Index: 0, Content: "text", Embedding: []float32{0.1}},
	})
	if err != nil {
		t.Fatalf("UpsertChunks: %v", err)
	}
}
