package service

import (
	"context"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"dealflow/internal/apperr"
	"dealflow/internal/models"
	"dealflow/internal/repository"
)

type CreateDealInput struct {
	Name       string  `json:"name"`
	SourceKind string  `json:"source_kind"`
	SourceURL  *string `json:"source_url,omitempty"`
}

type DealService struct {
	Repo   repository.DealRepository
	Logger *zap.Logger
}

func (s *DealService) Create(ctx context.Context, in CreateDealInput) (*models.Deal, error) {
	if s == nil || s.Repo == nil {
		return nil, apperr.ServiceUnavailable("deal store is not configured")
	}
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("name is required")
	}
	kind := models.SourceKind(strings.ToLower(strings.TrimSpace(in.SourceKind)))
	if kind == "" {
		kind = models.SourceDocument
	}
	if !kind.Valid() {
		return nil, apperr.Validation("source_kind must be one of document, link, manual")
	}
	var sourceURL *string
	if in.SourceURL != nil && strings.TrimSpace(*in.SourceURL) != "" {
		raw := strings.TrimSpace(*in.SourceURL)
		u, err := url.Parse(raw)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return nil, apperr.Validation("source_url must be an absolute http(s) url")
		}
		sourceURL = &raw
	}
	if kind == models.SourceLink && sourceURL == nil {
		return nil, apperr.Validation("source_url is required for link deals")
	}

	deal := &models.Deal{Name: name, SourceKind: kind, SourceURL: sourceURL}
	if err := s.Repo.CreateDeal(ctx, deal); err != nil {
		return nil, err
	}
	if s.Logger != nil {
		s.Logger.Info("deal created", zap.String("deal_id", deal.ID), zap.String("source_kind", string(kind)))
	}
	return deal, nil
}

func (s *DealService) Get(ctx context.Context, id string) (*repository.CompleteDeal, error) {
	if s == nil || s.Repo == nil {
		return nil, apperr.ServiceUnavailable("deal store is not configured")
	}
	full, err := s.Repo.GetCompleteDeal(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if full == nil {
		return nil, apperr.NotFound("deal %s not found", id)
	}
	return full, nil
}

type ListDealsInput struct {
	Limit   int
	Offset  int
	Status  *string
	Tenant  *string
	Market  *string
	OrderBy string
	Asc     *bool
}

func (s *DealService) List(ctx context.Context, in ListDealsInput) ([]models.Deal, int64, error) {
	if s == nil || s.Repo == nil {
		return nil, 0, apperr.ServiceUnavailable("deal store is not configured")
	}
	if in.Status != nil && strings.TrimSpace(*in.Status) != "" {
		if _, ok := models.ParseDealStatus(*in.Status); !ok {
			return nil, 0, apperr.Validation("unknown status %q", *in.Status)
		}
	}
	params := repository.ListDealsParams{
		Limit:   in.Limit,
		Offset:  in.Offset,
		Status:  in.Status,
		Tenant:  in.Tenant,
		Market:  in.Market,
		OrderBy: in.OrderBy,
		Asc:     in.Asc,
	}
	items, err := s.Repo.ListDeals(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.Repo.CountDeals(ctx, params)
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}

func (s *DealService) Delete(ctx context.Context, id string) error {
	if s == nil || s.Repo == nil {
		return apperr.ServiceUnavailable("deal store is not configured")
	}
	deal, err := s.Repo.GetDeal(ctx, id)
	if err != nil {
		return err
	}
	if deal == nil {
		return apperr.NotFound("deal %s not found", id)
	}
	if err := s.Repo.DeleteDeal(ctx, deal.ID); err != nil {
		return err
	}
	if s.Logger != nil {
		s.Logger.Info("deal deleted", zap.String("deal_id", deal.ID))
	}
	return nil
}

// Archive moves a deal to the terminal archived state from any state.
// Archiving an archived deal is a no-op.
func (s *DealService) Archive(ctx context.Context, id string) (*models.Deal, error) {
	if s == nil || s.Repo == nil {
		return nil, apperr.ServiceUnavailable("deal store is not configured")
	}
	deal, err := s.Repo.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, apperr.NotFound("deal %s not found", id)
	}
	if deal.Status == models.DealStatusArchived {
		return deal, nil
	}
	if err := s.Repo.UpdateDealStatus(ctx, deal.ID, models.DealStatusArchived); err != nil {
		return nil, err
	}
	deal.Status = models.DealStatusArchived
	if s.Logger != nil {
		s.Logger.Info("deal archived", zap.String("deal_id", deal.ID))
	}
	return deal, nil
}

func (s *DealService) Memos(ctx context.Context, id string) ([]models.Memo, error) {
	if s == nil || s.Repo == nil {
		return nil, apperr.ServiceUnavailable("deal store is not configured")
	}
	deal, err := s.Repo.GetDeal(ctx, id)
	if err != nil {
		return nil, err
	}
	if deal == nil {
		return nil, apperr.NotFound("deal %s not found", id)
	}
	return s.Repo.ListMemos(ctx, deal.ID)
}
