package service

import (
	"context"
	"strings"

	"knowledge-hub/internal/common/crypto"
	commonerrors "knowledge-hub/internal/common/errors"
	"knowledge-hub/internal/common/logger"
	"knowledge-hub/internal/search/domain"
	"knowledge-hub/internal/search/repository"
)

const (
	defaultPageSize = 10
	maxPageSize     = 50
)

type SearchResult struct {
	Entries     []domain.Entry
	TotalPages  int
	CurrentPage int
}

type SearchService struct {
	entries     repository.Repository
	idGenerator crypto.IDGenerator
	log         *logger.Logger
}

func NewSearchService(entries repository.Repository, idGenerator crypto.IDGenerator, log *logger.Logger) *SearchService {
	return &SearchService{
		entries:     entries,
		idGenerator: idGenerator,
		log:         log,
	}
}

func (s *SearchService) Search(ctx context.Context, query string, page, limit int) (SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return SearchResult{}, commonerrors.ErrEmptyQuery
	}

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	entries, total, err := s.entries.Search(ctx, query, limit, (page-1)*limit)
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"query":  query,
			"page":   page,
			"action": "search_failed",
		}).Errorf("search failed: %v", err)
		return SearchResult{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	totalPages := (total + limit - 1) / limit

	s.log.WithFields(ctx, logger.Fields{
		"query":   query,
		"page":    page,
		"matches": total,
		"action":  "search",
	}).Debug("search completed")

	return SearchResult{
		Entries:     entries,
		TotalPages:  totalPages,
		CurrentPage: page,
	}, nil
}

// IngestURL records a knowledge entry for the URL. Fetching and parsing the
// page happens in a separate ingestion pipeline; until it runs, the URL
// itself stands in for the title.
func (s *SearchService) IngestURL(ctx context.Context, url, userID string) (domain.Entry, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return domain.Entry{}, commonerrors.ErrEmptyContent
	}

	created, err := s.entries.Create(ctx, domain.Entry{
		ID:        s.idGenerator.NewID(),
		Title:     url,
		URL:       url,
		CreatedBy: userID,
	})
	if err != nil {
		s.log.WithFields(ctx, logger.Fields{
			"user_id": userID,
			"action":  "ingest_url_failed",
		}).Errorf("url ingest failed: %v", err)
		return domain.Entry{}, commonerrors.ErrStoreUnavailable.WithCause(err)
	}

	s.log.WithFields(ctx, logger.Fields{
		"user_id":  userID,
		"entry_id": created.ID,
		"action":   "ingest_url",
	}).Info("url queued as knowledge entry")

	return created, nil
}
