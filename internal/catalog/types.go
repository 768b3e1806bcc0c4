package catalog

// ChunkMetadata describes where a matched transcript chunk came from.
// CourseTitle may be empty when catalog data is inconsistent; consumers
// treat that as unknown. LessonNumber is nil for course-level material
// that precedes any lesson marker.
type ChunkMetadata struct {
	CourseTitle  string
	LessonNumber *int
	ChunkIndex   int
}

// SearchResults is the in-band result envelope for one content search.
// Error is set instead of returning a Go error so retrieval failures flow
// back to the model as text; when Error is non-empty the three slices are
// empty. Documents, Metadata and Distances are parallel and equal-length.
type SearchResults struct {
	Documents []string
	Metadata  []ChunkMetadata
	Distances []float64
	Error     string
}

// IsEmpty reports whether the search matched nothing. An error result is
// not empty in this sense; check Error first.
func (r SearchResults) IsEmpty() bool {
	return len(r.Documents) == 0
}

// LessonMetadata is one lesson entry of a course, in catalog order.
type LessonMetadata struct {
	LessonNumber int    `json:"lesson_number"`
	LessonTitle  string `json:"lesson_title"`
	LessonLink   string `json:"lesson_link,omitempty"`
}

// CourseMetadata is the catalog record for one course. Title is the
// canonical case-sensitive key. Lessons keep catalog order; callers must
// not assume the numbers are sorted.
type CourseMetadata struct {
	Title      string           `json:"title"`
	Instructor string           `json:"instructor"`
	CourseLink string           `json:"course_link,omitempty"`
	Lessons    []LessonMetadata `json:"lessons"`
}

// Chunk is one embeddable slice of course transcript.
type Chunk struct {
	CourseTitle  string
	LessonNumber *int
	Index        int
	Content      string
	Embedding    []float32
}
