package services

import (
	"context"
	"fmt"
	"strings"

	"fintrack/internal/core"
)

// NameStore answers prefix searches over category and merchant names.
type NameStore interface {
	SearchCategories(ctx context.Context, prefix string) ([]core.Category, error)
	SearchMerchants(ctx context.Context, prefix string) ([]core.Merchant, error)
}

// SearchService serves case-insensitive starts-with lookups used by
// form autocompletion. A blank prefix returns the full set.
type SearchService struct {
	store NameStore
}

func NewSearchService(store NameStore) *SearchService {
	return &SearchService{store: store}
}

func (s *SearchService) SearchCategories(ctx context.Context, prefix string) ([]core.Category, error) {
	cats, err := s.store.SearchCategories(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("search categories: %w", err)
	}
	if cats == nil {
		cats = []core.Category{}
	}
	return cats, nil
}

func (s *SearchService) SearchMerchants(ctx context.Context, prefix string) ([]core.Merchant, error) {
	mers, err := s.store.SearchMerchants(ctx, strings.TrimSpace(prefix))
	if err != nil {
		return nil, fmt.Errorf("search merchants: %w", err)
	}
	if mers == nil {
		mers = []core.Merchant{}
	}
	return mers, nil
}
