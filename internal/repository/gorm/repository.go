package gormrepository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"dealflow/internal/models"
	"dealflow/internal/repository"
)

type Store struct {
	db *gorm.DB
}

func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) InTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).Transaction(fn)
}

// --- deals -------------------------------------------------------------------

func (s *Store) GetDeal(ctx context.Context, id string) (*models.Deal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	var item models.Deal
	err := s.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) CreateDeal(ctx context.Context, item *models.Deal) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	if strings.TrimSpace(item.ID) == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.DealStatusDraft
	}
	return s.db.WithContext(ctx).Create(item).Error
}

// DeleteDeal removes the deal and every artifact recorded for it.
func (s *Store) DeleteDeal(ctx context.Context, id string) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		for _, m := range []any{
			&models.Memo{},
			&models.Financials{},
			&models.Scores{},
			&models.Enrichment{},
			&models.LeaseTerms{},
			&models.PropertyAttributes{},
		} {
			if err := tx.Where("deal_id = ?", id).Delete(m).Error; err != nil {
				return err
			}
		}
		return tx.Where("id = ?", id).Delete(&models.Deal{}).Error
	})
}

func (s *Store) ListDeals(ctx context.Context, params repository.ListDealsParams) ([]models.Deal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	query := applyDealFilters(s.db.WithContext(ctx).Model(&models.Deal{}), params)
	query = applyOrder(query, qualify(params.OrderBy), params.Asc, "deals.created_at")
	limit := normalizeLimit(params.Limit, 50)
	offset := normalizeOffset(params.Offset)
	var items []models.Deal
	if err := query.Select("deals.*").Limit(limit).Offset(offset).Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) CountDeals(ctx context.Context, params repository.ListDealsParams) (int64, error) {
	if s == nil || s.db == nil {
		return 0, nil
	}
	query := applyDealFilters(s.db.WithContext(ctx).Model(&models.Deal{}), params)
	var total int64
	if err := query.Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}

func (s *Store) UpdateDealStatus(ctx context.Context, id string, status models.DealStatus) error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.WithContext(ctx).
		Model(&models.Deal{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"status":     string(status),
			"updated_at": time.Now().UTC(),
		}).Error
}

func applyDealFilters(query *gorm.DB, params repository.ListDealsParams) *gorm.DB {
	if params.Status != nil && strings.TrimSpace(*params.Status) != "" {
		query = query.Where("deals.status = ?", strings.ToLower(strings.TrimSpace(*params.Status)))
	}
	if params.ExcludeArchived {
		query = query.Where("deals.status <> ?", string(models.DealStatusArchived))
	}
	if params.Tenant != nil && strings.TrimSpace(*params.Tenant) != "" {
		query = query.
			Joins("LEFT JOIN lease_terms ON lease_terms.deal_id = deals.id").
			Where("lease_terms.tenant_name ILIKE ?", "%"+strings.TrimSpace(*params.Tenant)+"%")
	}
	if params.Market != nil && strings.TrimSpace(*params.Market) != "" {
		query = query.
			Joins("LEFT JOIN enrichments ON enrichments.deal_id = deals.id").
			Where("enrichments.submarket ILIKE ?", "%"+strings.TrimSpace(*params.Market)+"%")
	}
	return query
}

func qualify(column string) string {
	column = strings.TrimSpace(column)
	if column == "" || strings.Contains(column, ".") {
		return column
	}
	return "deals." + column
}

// --- artifacts ---------------------------------------------------------------

func (s *Store) UpsertPropertyAttributes(ctx context.Context, item *models.PropertyAttributes) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return upsertMerged(ctx, s.db, item.DealID, item)
}

func (s *Store) GetPropertyAttributes(ctx context.Context, dealID string) (*models.PropertyAttributes, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return takeByDeal[models.PropertyAttributes](ctx, s.db, dealID)
}

func (s *Store) UpsertLeaseTerms(ctx context.Context, item *models.LeaseTerms) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return upsertMerged(ctx, s.db, item.DealID, item)
}

func (s *Store) GetLeaseTerms(ctx context.Context, dealID string) (*models.LeaseTerms, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return takeByDeal[models.LeaseTerms](ctx, s.db, dealID)
}

func (s *Store) UpsertEnrichment(ctx context.Context, item *models.Enrichment) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return upsertMerged(ctx, s.db, item.DealID, item)
}

func (s *Store) GetEnrichment(ctx context.Context, dealID string) (*models.Enrichment, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	return takeByDeal[models.Enrichment](ctx, s.db, dealID)
}

func (s *Store) UpsertScores(ctx context.Context, item *models.Scores) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return upsertMerged(ctx, s.db, item.DealID, item)
}

func (s *Store) UpsertFinancials(ctx context.Context, item *models.Financials) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return upsertMerged(ctx, s.db, item.DealID, item)
}

// --- memos -------------------------------------------------------------------

func (s *Store) CreateMemo(ctx context.Context, item *models.Memo) error {
	if s == nil || s.db == nil || item == nil {
		return nil
	}
	return s.InTx(ctx, func(tx *gorm.DB) error {
		var maxVersion int
		if err := tx.Model(&models.Memo{}).
			Where("deal_id = ?", item.DealID).
			Select("COALESCE(MAX(version), 0)").
			Scan(&maxVersion).Error; err != nil {
			return err
		}
		item.Version = maxVersion + 1
		return tx.Create(item).Error
	})
}

func (s *Store) ListMemos(ctx context.Context, dealID string) ([]models.Memo, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	var items []models.Memo
	if err := s.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("version desc").
		Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) latestMemo(ctx context.Context, dealID string) (*models.Memo, error) {
	var item models.Memo
	err := s.db.WithContext(ctx).
		Where("deal_id = ?", dealID).
		Order("version desc").
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// --- aggregate ---------------------------------------------------------------

func (s *Store) GetCompleteDeal(ctx context.Context, id string) (*repository.CompleteDeal, error) {
	if s == nil || s.db == nil {
		return nil, nil
	}
	deal, err := s.GetDeal(ctx, id)
	if err != nil || deal == nil {
		return nil, err
	}
	out := &repository.CompleteDeal{Deal: *deal}
	if out.Property, err = takeByDeal[models.PropertyAttributes](ctx, s.db, deal.ID); err != nil {
		return nil, err
	}
	if out.Lease, err = takeByDeal[models.LeaseTerms](ctx, s.db, deal.ID); err != nil {
		return nil, err
	}
	if out.Enrichment, err = takeByDeal[models.Enrichment](ctx, s.db, deal.ID); err != nil {
		return nil, err
	}
	if out.Scores, err = takeByDeal[models.Scores](ctx, s.db, deal.ID); err != nil {
		return nil, err
	}
	if out.Financials, err = takeByDeal[models.Financials](ctx, s.db, deal.ID); err != nil {
		return nil, err
	}
	if out.LatestMemo, err = s.latestMemo(ctx, deal.ID); err != nil {
		return nil, err
	}
	return out, nil
}

// --- helpers -----------------------------------------------------------------

type mergeable[T any] interface {
	*T
	Merge(*T)
}

// upsertMerged folds item into the row stored for dealID under a row lock and
// writes the result back. item is updated to the stored state.
func upsertMerged[T any, PT mergeable[T]](ctx context.Context, db *gorm.DB, dealID string, item PT) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing T
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("deal_id = ?", dealID).
			Take(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			existing = *item
		case err != nil:
			return err
		default:
			PT(&existing).Merge((*T)(item))
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "deal_id"}},
			UpdateAll: true,
		}).Create(&existing).Error; err != nil {
			return err
		}
		*item = existing
		return nil
	})
}

func takeByDeal[T any](ctx context.Context, db *gorm.DB, dealID string) (*T, error) {
	var item T
	err := db.WithContext(ctx).Where("deal_id = ?", dealID).Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func applyOrder(query *gorm.DB, orderBy string, asc *bool, fallback string) *gorm.DB {
	column := strings.TrimSpace(orderBy)
	if column == "" {
		column = fallback
	}
	direction := "desc"
	if asc != nil && *asc {
		direction = "asc"
	}
	return query.Order(column + " " + direction)
}

func normalizeLimit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}
	if limit > 500 {
		return 500
	}
	return limit
}

func normalizeOffset(offset int) int {
	if offset < 0 {
		return 0
	}
	return offset
}
