package repository

import (
	"context"

	"dealflow/internal/models"
)

// DealRepository is the persistence contract used by the pipeline controller,
// the portfolio aggregator and the HTTP layer. Getters return (nil, nil) for
// missing records. Upserts merge into the stored row.
type DealRepository interface {
	GetDeal(ctx context.Context, id string) (*models.Deal, error)
	CreateDeal(ctx context.Context, item *models.Deal) error
	DeleteDeal(ctx context.Context, id string) error
	ListDeals(ctx context.Context, params ListDealsParams) ([]models.Deal, error)
	CountDeals(ctx context.Context, params ListDealsParams) (int64, error)
	UpdateDealStatus(ctx context.Context, id string, status models.DealStatus) error

	UpsertPropertyAttributes(ctx context.Context, item *models.PropertyAttributes) error
	GetPropertyAttributes(ctx context.Context, dealID string) (*models.PropertyAttributes, error)
	UpsertLeaseTerms(ctx context.Context, item *models.LeaseTerms) error
	GetLeaseTerms(ctx context.Context, dealID string) (*models.LeaseTerms, error)
	UpsertEnrichment(ctx context.Context, item *models.Enrichment) error
	GetEnrichment(ctx context.Context, dealID string) (*models.Enrichment, error)
	UpsertScores(ctx context.Context, item *models.Scores) error
	UpsertFinancials(ctx context.Context, item *models.Financials) error

	// CreateMemo assigns the next version for the deal and fills item.Version.
	CreateMemo(ctx context.Context, item *models.Memo) error
	ListMemos(ctx context.Context, dealID string) ([]models.Memo, error)

	GetCompleteDeal(ctx context.Context, id string) (*CompleteDeal, error)
}

type ListDealsParams struct {
	Limit  int
	Offset int
	Status *string
	// Tenant and Market are case-insensitive substring filters on the lease
	// tenant name and the enrichment submarket.
	Tenant          *string
	Market          *string
	ExcludeArchived bool
	OrderBy         string
	Asc             *bool
}

// CompleteDeal is a deal joined with every artifact recorded for it.
type CompleteDeal struct {
	Deal       models.Deal                `json:"deal"`
	Property   *models.PropertyAttributes `json:"property,omitempty"`
	Lease      *models.LeaseTerms         `json:"lease,omitempty"`
	Enrichment *models.Enrichment         `json:"enrichment,omitempty"`
	Scores     *models.Scores             `json:"scores,omitempty"`
	Financials *models.Financials         `json:"financials,omitempty"`
	LatestMemo *models.Memo               `json:"latest_memo,omitempty"`
}
