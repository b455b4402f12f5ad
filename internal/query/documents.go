package query

import (
	"context"
	"sort"
	"strings"

	"tkb/internal/cache"
	"tkb/internal/entity"
	"tkb/internal/output"
	"tkb/internal/snapshot"
)

// DocumentSummary is one document in a listing.
type DocumentSummary struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	SlugID    string `json:"slugId,omitempty"`
	Project   string `json:"project,omitempty"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// DocumentDetail adds the creator and a web URL to the summary fields.
type DocumentDetail struct {
	DocumentSummary
	Creator string `json:"creator,omitempty"`
	URL     string `json:"url,omitempty"`
}

// ListDocuments returns documents, most recently updated first. With a
// project query only that project's documents are returned; a project
// that resolves to nothing yields an empty list.
func (e *Engine) ListDocuments(ctx context.Context, project string) ([]DocumentSummary, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	var docs []*entity.Document
	if strings.TrimSpace(project) != "" {
		p := resolveProject(s, project)
		if p == nil {
			return []DocumentSummary{}, fr, nil
		}
		docs = make([]*entity.Document, len(s.DocumentsByProject[p.ID]))
		copy(docs, s.DocumentsByProject[p.ID])
	} else {
		docs = make([]*entity.Document, len(s.Documents))
		copy(docs, s.Documents)
	}

	sort.SliceStable(docs, func(i, j int) bool {
		if !docs[i].UpdatedAt.Equal(docs[j].UpdatedAt) {
			return docs[i].UpdatedAt.After(docs[j].UpdatedAt)
		}
		return docs[i].ID < docs[j].ID
	})

	payload := make([]DocumentSummary, 0, len(docs))
	for _, d := range docs {
		payload = append(payload, documentSummary(s, d))
	}
	return payload, fr, nil
}

// GetDocument returns one document by id or exact title. Unknown
// queries yield nil.
func (e *Engine) GetDocument(ctx context.Context, query string) (*DocumentDetail, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	doc := resolveDocument(s, query)
	if doc == nil {
		return nil, fr, nil
	}

	detail := &DocumentDetail{
		DocumentSummary: documentSummary(s, doc),
		Creator:         userName(s, doc.CreatorID),
	}
	if base := e.urlBase(); base != "" && doc.SlugID != "" {
		detail.URL = base + "/document/" + doc.SlugID
	}
	return detail, fr, nil
}

func documentSummary(s *snapshot.Snapshot, d *entity.Document) DocumentSummary {
	return DocumentSummary{
		ID:        d.ID,
		Title:     d.Title,
		SlugID:    d.SlugID,
		Project:   projectName(s, d.ProjectID),
		CreatedAt: output.FormatTime(d.CreatedAt),
		UpdatedAt: output.FormatTime(d.UpdatedAt),
	}
}
