package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/promptvault/promptvault-backend/internal/entitlements"
	"github.com/promptvault/promptvault-backend/pkg/db/models"
	"github.com/promptvault/promptvault-backend/pkg/enums"
	pkgerrors "github.com/promptvault/promptvault-backend/pkg/errors"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// PromptSearcher is the prompt read surface the service consumes.
type PromptSearcher interface {
	Search(ctx context.Context, filter PromptFilter) ([]models.Prompt, int64, error)
	FindBySlug(ctx context.Context, slug string) (*models.Prompt, error)
}

type entitlementResolver interface {
	ForUser(ctx context.Context, userID uuid.UUID) (*entitlements.View, error)
}

// PromptResult is one search hit. Body is withheld when the caller's
// entitlements do not cover the prompt's tier.
type PromptResult struct {
	ID        uuid.UUID  `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Category  string     `json:"category"`
	TierSlug  enums.Tier `json:"tier_slug"`
	Locked    bool       `json:"locked"`
	Body      string     `json:"body,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

// SearchResult is a paginated prompt search response.
type SearchResult struct {
	Prompts  []PromptResult `json:"prompts"`
	Total    int64          `json:"total"`
	Page     int            `json:"page"`
	PageSize int            `json:"page_size"`
}

// SearchInput captures the query surface of the prompt search endpoint.
type SearchInput struct {
	Query    string
	Category string
	Page     int
	PageSize int
}

// Service serves prompt browsing gated by the caller's entitlements.
type Service struct {
	prompts  PromptSearcher
	resolver entitlementResolver
}

// ServiceParams groups dependencies for the catalog service.
type ServiceParams struct {
	PromptRepo PromptSearcher
	Resolver   entitlementResolver
}

// NewService builds a catalog service with the required dependencies.
func NewService(params ServiceParams) (*Service, error) {
	if params.PromptRepo == nil {
		return nil, fmt.Errorf("prompt repo required")
	}
	if params.Resolver == nil {
		return nil, fmt.Errorf("entitlement resolver required")
	}
	return &Service{prompts: params.PromptRepo, resolver: params.Resolver}, nil
}

// SearchPrompts runs an entitlement-aware search for the given user. A zero
// user id means an anonymous caller browsing on the free ladder.
func (s *Service) SearchPrompts(ctx context.Context, userID uuid.UUID, input SearchInput) (*SearchResult, error) {
	accessible, err := s.accessibleTiers(ctx, userID)
	if err != nil {
		return nil, err
	}

	page := input.Page
	if page < 1 {
		page = 1
	}
	pageSize := input.PageSize
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	rows, total, err := s.prompts.Search(ctx, PromptFilter{
		Query:    strings.TrimSpace(input.Query),
		Category: strings.TrimSpace(input.Category),
		Limit:    pageSize,
		Offset:   (page - 1) * pageSize,
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "search prompts")
	}

	results := make([]PromptResult, 0, len(rows))
	for _, row := range rows {
		results = append(results, toResult(row, accessible))
	}
	return &SearchResult{
		Prompts:  results,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
	}, nil
}

// GetPrompt returns a single prompt, body included only when entitled.
func (s *Service) GetPrompt(ctx context.Context, userID uuid.UUID, slug string) (*PromptResult, error) {
	if strings.TrimSpace(slug) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "slug is required")
	}
	accessible, err := s.accessibleTiers(ctx, userID)
	if err != nil {
		return nil, err
	}
	prompt, err := s.prompts.FindBySlug(ctx, slug)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, "prompt not found")
	}
	result := toResult(*prompt, accessible)
	return &result, nil
}

func (s *Service) accessibleTiers(ctx context.Context, userID uuid.UUID) ([]enums.Tier, error) {
	if userID == uuid.Nil {
		return entitlements.Resolve(nil, ""), nil
	}
	view, err := s.resolver.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return view.AccessibleTiers, nil
}

func toResult(prompt models.Prompt, accessible []enums.Tier) PromptResult {
	result := PromptResult{
		ID:        prompt.ID,
		Slug:      prompt.Slug,
		Title:     prompt.Title,
		Category:  prompt.Category,
		TierSlug:  prompt.TierSlug,
		CreatedAt: prompt.CreatedAt,
	}
	if entitlements.Allows(accessible, prompt.TierSlug) {
		result.Body = prompt.Body
	} else {
		result.Locked = true
	}
	return result
}
