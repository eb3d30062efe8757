// Package memory is the process-local DealRepository used when no database
// DSN is configured and in tests. Every read and write copies, so callers
// never share state with the store.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"dealflow/internal/models"
	"dealflow/internal/repository"
)

type Store struct {
	mu         sync.RWMutex
	deals      map[string]models.Deal
	property   map[string]models.PropertyAttributes
	lease      map[string]models.LeaseTerms
	enrichment map[string]models.Enrichment
	scores     map[string]models.Scores
	financials map[string]models.Financials
	memos      map[string][]models.Memo
	nextMemoID uint64

	now func() time.Time
}

func New() *Store {
	return &Store{
		deals:      map[string]models.Deal{},
		property:   map[string]models.PropertyAttributes{},
		lease:      map[string]models.LeaseTerms{},
		enrichment: map[string]models.Enrichment{},
		scores:     map[string]models.Scores{},
		financials: map[string]models.Financials{},
		memos:      map[string][]models.Memo{},
		now:        func() time.Time { return time.Now().UTC() },
	}
}

var _ repository.DealRepository = (*Store)(nil)

// --- deals -------------------------------------------------------------------

func (s *Store) GetDeal(_ context.Context, id string) (*models.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deals[strings.TrimSpace(id)]
	if !ok {
		return nil, nil
	}
	return cloneDeal(d), nil
}

func (s *Store) CreateDeal(_ context.Context, item *models.Deal) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if strings.TrimSpace(item.ID) == "" {
		item.ID = uuid.NewString()
	}
	if item.Status == "" {
		item.Status = models.DealStatusDraft
	}
	now := s.now()
	item.CreatedAt = now
	item.UpdatedAt = now
	s.deals[item.ID] = *cloneDeal(*item)
	return nil
}

func (s *Store) DeleteDeal(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.deals, id)
	delete(s.property, id)
	delete(s.lease, id)
	delete(s.enrichment, id)
	delete(s.scores, id)
	delete(s.financials, id)
	delete(s.memos, id)
	return nil
}

func (s *Store) ListDeals(_ context.Context, params repository.ListDealsParams) ([]models.Deal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := s.filterDeals(params)
	asc := params.Asc != nil && *params.Asc
	cmp := dealOrder(params.OrderBy)
	sort.SliceStable(items, func(i, j int) bool {
		a, b := items[i], items[j]
		if c := cmp(a, b); c != 0 {
			if asc {
				return c < 0
			}
			return c > 0
		}
		return a.ID < b.ID
	})
	limit := normalizeLimit(params.Limit, 50)
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return []models.Deal{}, nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end], nil
}

// dealOrder mirrors the columns the SQL store sorts by. Unknown columns fall
// back to created_at.
func dealOrder(column string) func(a, b models.Deal) int {
	switch strings.TrimPrefix(strings.TrimSpace(column), "deals.") {
	case "name":
		return func(a, b models.Deal) int { return strings.Compare(a.Name, b.Name) }
	case "status":
		return func(a, b models.Deal) int { return strings.Compare(string(a.Status), string(b.Status)) }
	case "updated_at":
		return func(a, b models.Deal) int { return a.UpdatedAt.Compare(b.UpdatedAt) }
	default:
		return func(a, b models.Deal) int { return a.CreatedAt.Compare(b.CreatedAt) }
	}
}

func (s *Store) CountDeals(_ context.Context, params repository.ListDealsParams) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.filterDeals(params))), nil
}

func (s *Store) UpdateDealStatus(_ context.Context, id string, status models.DealStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.deals[id]
	if !ok {
		return nil
	}
	d.Status = status
	d.UpdatedAt = s.now()
	s.deals[id] = d
	return nil
}

func (s *Store) filterDeals(params repository.ListDealsParams) []models.Deal {
	status := trimmed(params.Status)
	tenant := strings.ToLower(trimmed(params.Tenant))
	market := strings.ToLower(trimmed(params.Market))
	out := make([]models.Deal, 0, len(s.deals))
	for id, d := range s.deals {
		if status != "" && string(d.Status) != strings.ToLower(status) {
			continue
		}
		if params.ExcludeArchived && d.Status == models.DealStatusArchived {
			continue
		}
		if tenant != "" {
			l, ok := s.lease[id]
			if !ok || l.TenantName == nil || !strings.Contains(strings.ToLower(*l.TenantName), tenant) {
				continue
			}
		}
		if market != "" {
			e, ok := s.enrichment[id]
			if !ok || e.Submarket == nil || !strings.Contains(strings.ToLower(*e.Submarket), market) {
				continue
			}
		}
		out = append(out, *cloneDeal(d))
	}
	return out
}

// --- artifacts ---------------------------------------------------------------

func (s *Store) UpsertPropertyAttributes(_ context.Context, item *models.PropertyAttributes) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.property[item.DealID]
	if !ok {
		cur = models.PropertyAttributes{DealID: item.DealID, CreatedAt: s.now()}
	}
	cur.Merge(item)
	cur.UpdatedAt = s.now()
	s.property[item.DealID] = cur
	*item = *cloneProperty(cur)
	return nil
}

func (s *Store) GetPropertyAttributes(_ context.Context, dealID string) (*models.PropertyAttributes, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.property[dealID]
	if !ok {
		return nil, nil
	}
	return cloneProperty(cur), nil
}

func (s *Store) UpsertLeaseTerms(_ context.Context, item *models.LeaseTerms) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.lease[item.DealID]
	if !ok {
		cur = models.LeaseTerms{DealID: item.DealID, CreatedAt: s.now()}
	}
	cur.Merge(item)
	cur.UpdatedAt = s.now()
	s.lease[item.DealID] = cur
	*item = *cloneLease(cur)
	return nil
}

func (s *Store) GetLeaseTerms(_ context.Context, dealID string) (*models.LeaseTerms, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.lease[dealID]
	if !ok {
		return nil, nil
	}
	return cloneLease(cur), nil
}

func (s *Store) UpsertEnrichment(_ context.Context, item *models.Enrichment) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.enrichment[item.DealID]
	if !ok {
		cur = models.Enrichment{DealID: item.DealID, CreatedAt: s.now()}
	}
	cur.Merge(item)
	cur.UpdatedAt = s.now()
	s.enrichment[item.DealID] = cur
	*item = *cloneEnrichment(cur)
	return nil
}

func (s *Store) GetEnrichment(_ context.Context, dealID string) (*models.Enrichment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cur, ok := s.enrichment[dealID]
	if !ok {
		return nil, nil
	}
	return cloneEnrichment(cur), nil
}

func (s *Store) UpsertScores(_ context.Context, item *models.Scores) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.scores[item.DealID]
	if !ok {
		cur = models.Scores{DealID: item.DealID, CreatedAt: s.now()}
	}
	cur.Merge(item)
	cur.UpdatedAt = s.now()
	s.scores[item.DealID] = cur
	*item = *cloneScores(cur)
	return nil
}

func (s *Store) UpsertFinancials(_ context.Context, item *models.Financials) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	cur, ok := s.financials[item.DealID]
	if !ok {
		cur = models.Financials{DealID: item.DealID, CreatedAt: s.now()}
	}
	cur.Merge(item)
	cur.UpdatedAt = s.now()
	s.financials[item.DealID] = cur
	*item = *cloneFinancials(cur)
	return nil
}

// --- memos -------------------------------------------------------------------

func (s *Store) CreateMemo(_ context.Context, item *models.Memo) error {
	if item == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	versions := s.memos[item.DealID]
	s.nextMemoID++
	item.ID = s.nextMemoID
	item.Version = len(versions) + 1
	item.CreatedAt = s.now()
	s.memos[item.DealID] = append(versions, *item)
	return nil
}

func (s *Store) ListMemos(_ context.Context, dealID string) ([]models.Memo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	versions := s.memos[dealID]
	out := make([]models.Memo, 0, len(versions))
	for i := len(versions) - 1; i >= 0; i-- {
		out = append(out, versions[i])
	}
	return out, nil
}

// --- aggregate ---------------------------------------------------------------

func (s *Store) GetCompleteDeal(_ context.Context, id string) (*repository.CompleteDeal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.deals[strings.TrimSpace(id)]
	if !ok {
		return nil, nil
	}
	out := &repository.CompleteDeal{Deal: *cloneDeal(d)}
	if v, ok := s.property[d.ID]; ok {
		out.Property = cloneProperty(v)
	}
	if v, ok := s.lease[d.ID]; ok {
		out.Lease = cloneLease(v)
	}
	if v, ok := s.enrichment[d.ID]; ok {
		out.Enrichment = cloneEnrichment(v)
	}
	if v, ok := s.scores[d.ID]; ok {
		out.Scores = cloneScores(v)
	}
	if v, ok := s.financials[d.ID]; ok {
		out.Financials = cloneFinancials(v)
	}
	if versions := s.memos[d.ID]; len(versions) > 0 {
		latest := versions[len(versions)-1]
		out.LatestMemo = &latest
	}
	return out, nil
}

// --- copies ------------------------------------------------------------------

func cloneDeal(d models.Deal) *models.Deal {
	out := d
	if d.SourceURL != nil {
		u := *d.SourceURL
		out.SourceURL = &u
	}
	return &out
}

func cloneProperty(v models.PropertyAttributes) *models.PropertyAttributes {
	out := models.PropertyAttributes{DealID: v.DealID, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
	out.Merge(&v)
	return &out
}

func cloneLease(v models.LeaseTerms) *models.LeaseTerms {
	out := models.LeaseTerms{DealID: v.DealID, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
	out.Merge(&v)
	return &out
}

func cloneEnrichment(v models.Enrichment) *models.Enrichment {
	out := models.Enrichment{DealID: v.DealID, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
	out.Merge(&v)
	return &out
}

func cloneScores(v models.Scores) *models.Scores {
	out := models.Scores{DealID: v.DealID, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
	out.Merge(&v)
	return &out
}

func cloneFinancials(v models.Financials) *models.Financials {
	out := models.Financials{DealID: v.DealID, CreatedAt: v.CreatedAt, UpdatedAt: v.UpdatedAt}
	out.Merge(&v)
	return &out
}

func trimmed(p *string) string {
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
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
