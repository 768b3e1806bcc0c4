package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/courseloom/tutor/internal/catalog"
	"github.com/courseloom/tutor/internal/llm"
	"github.com/courseloom/tutor/internal/logging"
)

const (
	defaultConcurrency = 4
	embedBatchSize     = 64
)

// CatalogWriter is the slice of the catalog store ingestion needs.
type CatalogWriter interface {
	ListCourseTitles(ctx context.Context) ([]string, error)
	UpsertCourse(ctx context.Context, course catalog.CourseMetadata, titleEmbedding []float32) error
	UpsertChunks(ctx context.Context, chunks []catalog.Chunk) error
}

// Ingestor loads course script files into the catalog: parse, chunk,
// embed, upsert.
type Ingestor struct {
	store       CatalogWriter
	embedder    llm.EmbeddingClient
	chunker     *Chunker
	logger      logging.Logger
	concurrency int
}

func NewIngestor(store CatalogWriter, embedder llm.EmbeddingClient, chunker *Chunker, logger logging.Logger) *Ingestor {
	return &Ingestor{
		store:       store,
		embedder:    embedder,
		chunker:     chunker,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
}

// IngestDirectory processes every .txt file under dir. Courses already
// present in the catalog are skipped unless force is set. Files are
// processed concurrently; the first failure cancels the rest.
func (in *Ingestor) IngestDirectory(ctx context.Context, dir string, force bool) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read docs directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}
		files = append(files, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(files)
	if len(files) == 0 {
		in.logger.WithFields(logging.Fields{"dir": dir}).Warn("No course documents found")
		return 0, nil
	}

	existing := make(map[string]struct{})
	if !force {
		titles, err := in.store.ListCourseTitles(ctx)
		if err != nil {
			return 0, fmt.Errorf("list existing courses: %w", err)
		}
		for _, title := range titles {
			existing[title] = struct{}{}
		}
	}

	var (
		mu    sync.Mutex
		added int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(in.concurrency)
	for _, file := range files {
		file := file
		g.Go(func() error {
			ingested, err := in.ingestFile(gctx, file, existing)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(file), err)
			}
			if ingested {
				mu.Lock()
				added++
				mu.Unlock()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return added, err
	}

	in.logger.WithFields(logging.Fields{
		"files":  len(files),
		"added":  added,
		"forced": force,
	}).Info("Course ingestion complete")
	return added, nil
}

func (in *Ingestor) ingestFile(ctx context.Context, path string, existing map[string]struct{}) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	doc, err := ParseCourseDocument(f)
	if err != nil {
		return false, err
	}
	if _, ok := existing[doc.Title]; ok {
		in.logger.WithFields(logging.Fields{"course": doc.Title}).Debug("Course already ingested, skipping")
		return false, nil
	}

	chunks := in.chunkDocument(doc)

	texts := make([]string, 0, len(chunks)+1)
	texts = append(texts, doc.Title)
	for _, chunk := range chunks {
		texts = append(texts, chunk.Content)
	}
	embeddings, err := in.embedAll(ctx, texts)
	if err != nil {
		return false, fmt.Errorf("embed course %q: %w", doc.Title, err)
	}
	titleEmbedding := embeddings[0]
	for i := range chunks {
		chunks[i].Embedding = embeddings[i+1]
	}

	meta := catalog.CourseMetadata{
		Title:      doc.Title,
		Instructor: doc.Instructor,
		CourseLink: doc.Link,
	}
	for _, lesson := range doc.Lessons {
		meta.Lessons = append(meta.Lessons, catalog.LessonMetadata{
			LessonNumber: lesson.Number,
			LessonTitle:  lesson.Title,
			LessonLink:   lesson.Link,
		})
	}

	if err := in.store.UpsertCourse(ctx, meta, titleEmbedding); err != nil {
		return false, err
	}
	if err := in.store.UpsertChunks(ctx, chunks); err != nil {
		return false, err
	}

	in.logger.WithFields(logging.Fields{
		"course":  doc.Title,
		"lessons": len(doc.Lessons),
		"chunks":  len(chunks),
	}).Info("Course ingested")
	return true, nil
}

// chunkDocument produces catalog chunks for every lesson. The first
// chunk of each lesson is prefixed with course and lesson context so
// it remains self-describing when retrieved alone.
func (in *Ingestor) chunkDocument(doc *CourseDocument) []catalog.Chunk {
	var chunks []catalog.Chunk
	index := 0
	for _, lesson := range doc.Lessons {
		pieces := in.chunker.Chunk(lesson.Content)
		for i, piece := range pieces {
			if i == 0 {
				piece = fmt.Sprintf("Lesson %d content: %s", lesson.Number, piece)
			}
			number := lesson.Number
			chunks = append(chunks, catalog.Chunk{
				CourseTitle:  doc.Title,
				LessonNumber: &number,
				Index:        index,
				Content:      piece,
			})
			index++
		}
	}
	return chunks
}

// embedAll embeds texts in bounded batches.
func (in *Ingestor) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += embedBatchSize {
		end := start + embedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batch, err := in.embedder.Embed(ctx, texts[start:end])
		if err != nil {
			return nil, err
		}
		embeddings = append(embeddings, batch...)
	}
	return embeddings, nil
}
