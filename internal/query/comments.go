package query

import (
	"context"
	"strings"

	"tkb/internal/cache"
)

// ListComments returns an issue's comments (by display identifier) oldest
// first, author-enriched. An unknown issue yields an empty list.
func (e *Engine) ListComments(ctx context.Context, issue string) ([]IssueComment, cache.Freshness, error) {
	s, fr, err := e.snap(ctx)
	if err != nil {
		return nil, fr, err
	}

	found := s.IssueByIdentifier[strings.ToUpper(strings.TrimSpace(issue))]
	if found == nil {
		return []IssueComment{}, fr, nil
	}
	return enrichComments(s, found.ID), fr, nil
}
