package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/text/cases"
)

// maxResolveDistance is the cosine-distance ceiling for accepting a
// semantic title match. Beyond it the filter is treated as unresolvable
// rather than silently matching an unrelated course.
const maxResolveDistance = 0.55

// ResolveCourseName maps a partial or approximate course name to its
// canonical catalog title. Resolution order: exact match, case-folded
// match, folded substring match, then embedding similarity over catalog
// titles. Returns "" (no error) when nothing matches.
func (s *Store) ResolveCourseName(ctx context.Context, name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", nil
	}

	titles, err := s.ListCourseTitles(ctx)
	if err != nil {
		return "", err
	}
	if len(titles) == 0 {
		return "", nil
	}

	if title, ok := lexicalMatch(name, titles); ok {
		return title, nil
	}
	return s.semanticMatch(ctx, name)
}

// lexicalMatch tries progressively looser string comparisons, first match
// wins within each tier so catalog order stays deterministic.
func lexicalMatch(name string, titles []string) (string, bool) {
	for _, title := range titles {
		if title == name {
			return title, true
		}
	}

	folder := cases.Fold()
	folded := folder.String(name)
	for _, title := range titles {
		if folder.String(title) == folded {
			return title, true
		}
	}
	for _, title := range titles {
		if strings.Contains(folder.String(title), folded) {
			return title, true
		}
	}
	return "", false
}

func (s *Store) semanticMatch(ctx context.Context, name string) (string, error) {
	if s.embedder == nil {
		return "", nil
	}
	vecs, err := s.embedder.Embed(ctx, []string{name})
	if err != nil {
		return "", fmt.Errorf("embed course name: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT title, embedding <=> $1 AS distance
		FROM tutor.course_catalog
		ORDER BY distance
		LIMIT 1
	`, pgvector.NewVector(vecs[0]))
	if err != nil {
		return "", fmt.Errorf("resolve course name: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return "", rows.Err()
	}
	var title string
	var distance float64
	if err := rows.Scan(&title, &distance); err != nil {
		return "", fmt.Errorf("scan resolved course: %w", err)
	}
	if distance > maxResolveDistance {
		return "", nil
	}
	return title, nil
}
