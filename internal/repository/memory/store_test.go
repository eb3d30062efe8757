package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"

	"dealflow/internal/models"
	"dealflow/internal/repository"
)

func strPtr(v string) *string   { return &v }
func f64Ptr(v float64) *float64 { return &v }
func intPtr(v int) *int         { return &v }

var ignoreTimestamps = cmpopts.IgnoreFields(models.PropertyAttributes{}, "CreatedAt", "UpdatedAt")

func TestStore_RoundTripThroughCompleteDeal(t *testing.T) {
	ctx := context.Background()
	s := New()
	deal := &models.Deal{Name: "Dallas DC", SourceKind: models.SourceDocument}
	require.NoError(t, s.CreateDeal(ctx, deal))
	require.NotEmpty(t, deal.ID)
	require.Equal(t, models.DealStatusDraft, deal.Status)

	prop := models.PropertyAttributes{
		DealID:       deal.ID,
		Address:      strPtr("100 Logistics Way, Dallas, TX"),
		PropertyType: strPtr("industrial"),
		BuildingSqft: f64Ptr(100000),
		YearBuilt:    intPtr(2004),
		DockDoors:    intPtr(12),
	}
	lease := models.LeaseTerms{
		DealID:         deal.ID,
		TenantName:     strPtr("Acme Logistics"),
		LeaseStart:     strPtr("2022-01-01"),
		LeaseEnd:       strPtr("2032-12-31"),
		BaseRentAnnual: f64Ptr(500000),
		Escalations:    []models.RentEscalation{{Year: 2, BumpPercent: 3}},
		Options:        []models.LeaseOption{{Type: "renewal", Years: 5}},
	}
	write := prop
	require.NoError(t, s.UpsertPropertyAttributes(ctx, &write))
	writeLease := lease
	require.NoError(t, s.UpsertLeaseTerms(ctx, &writeLease))

	got, err := s.GetCompleteDeal(ctx, deal.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	if diff := cmp.Diff(prop, *got.Property, ignoreTimestamps); diff != "" {
		t.Fatalf("property mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(lease, *got.Lease, cmpopts.IgnoreFields(models.LeaseTerms{}, "CreatedAt", "UpdatedAt")); diff != "" {
		t.Fatalf("lease mismatch (-want +got):\n%s", diff)
	}
	require.Nil(t, got.Scores)
	require.Nil(t, got.LatestMemo)
}

func TestStore_UpsertMergesAndIsolatesCallers(t *testing.T) {
	ctx := context.Background()
	s := New()
	first := &models.PropertyAttributes{DealID: "d1", Address: strPtr("1 Main St")}
	require.NoError(t, s.UpsertPropertyAttributes(ctx, first))
	require.NoError(t, s.UpsertPropertyAttributes(ctx, &models.PropertyAttributes{DealID: "d1", Latitude: f64Ptr(32.7)}))

	*first.Address = "mutated"
	got, err := s.GetPropertyAttributes(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, "1 Main St", *got.Address)
	require.Equal(t, 32.7, *got.Latitude)

	missing, err := s.GetEnrichment(ctx, "nope")
	require.NoError(t, err)
	require.Nil(t, missing)
}

func TestStore_MemosAreVersionedNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := New()
	for i := 0; i < 3; i++ {
		m := &models.Memo{DealID: "d1", Body: "memo", Recommendation: models.RecommendationApprove}
		require.NoError(t, s.CreateMemo(ctx, m))
		require.Equal(t, i+1, m.Version)
	}
	items, err := s.ListMemos(ctx, "d1")
	require.NoError(t, err)
	require.Len(t, items, 3)
	require.Equal(t, 3, items[0].Version)
	require.Equal(t, 1, items[2].Version)
}

func TestStore_ListDealsFilters(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	a := &models.Deal{Name: "A", SourceKind: models.SourceManual}
	b := &models.Deal{Name: "B", SourceKind: models.SourceManual}
	c := &models.Deal{Name: "C", SourceKind: models.SourceManual}
	for _, d := range []*models.Deal{a, b, c} {
		require.NoError(t, s.CreateDeal(ctx, d))
	}
	require.NoError(t, s.UpsertLeaseTerms(ctx, &models.LeaseTerms{DealID: a.ID, TenantName: strPtr("Acme Corp")}))
	require.NoError(t, s.UpsertEnrichment(ctx, &models.Enrichment{DealID: b.ID, Submarket: strPtr("DFW Airport")}))
	require.NoError(t, s.UpdateDealStatus(ctx, c.ID, models.DealStatusArchived))

	all, err := s.ListDeals(ctx, repository.ListDealsParams{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	require.Equal(t, "C", all[0].Name)

	tenant := "acme"
	byTenant, err := s.ListDeals(ctx, repository.ListDealsParams{Tenant: &tenant})
	require.NoError(t, err)
	require.Len(t, byTenant, 1)
	require.Equal(t, a.ID, byTenant[0].ID)

	market := "dfw"
	n, err := s.CountDeals(ctx, repository.ListDealsParams{Market: &market})
	require.NoError(t, err)
	require.EqualValues(t, 1, n)

	active, err := s.CountDeals(ctx, repository.ListDealsParams{ExcludeArchived: true})
	require.NoError(t, err)
	require.EqualValues(t, 2, active)

	page, err := s.ListDeals(ctx, repository.ListDealsParams{Limit: 1, Offset: 5})
	require.NoError(t, err)
	require.Empty(t, page)
}

func TestStore_ListDealsHonoursOrderBy(t *testing.T) {
	ctx := context.Background()
	s := New()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	s.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}
	names := []string{"Charlie", "Alpha", "Bravo"}
	ids := map[string]string{}
	for _, name := range names {
		d := &models.Deal{Name: name, SourceKind: models.SourceManual}
		require.NoError(t, s.CreateDeal(ctx, d))
		ids[name] = d.ID
	}
	// Touch the oldest deal last so updated_at order differs from created_at.
	require.NoError(t, s.UpdateDealStatus(ctx, ids["Charlie"], models.DealStatusIngested))

	dealNames := func(items []models.Deal) []string {
		out := make([]string, 0, len(items))
		for _, d := range items {
			out = append(out, d.Name)
		}
		return out
	}
	asc := true
	cases := []struct {
		name    string
		orderBy string
		asc     *bool
		want    []string
	}{
		{"default newest first", "", nil, []string{"Bravo", "Alpha", "Charlie"}},
		{"name asc", "name", &asc, []string{"Alpha", "Bravo", "Charlie"}},
		{"name desc", "name", nil, []string{"Charlie", "Bravo", "Alpha"}},
		{"updated_at desc", "updated_at", nil, []string{"Charlie", "Bravo", "Alpha"}},
		{"qualified column", "deals.created_at", &asc, []string{"Charlie", "Alpha", "Bravo"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			items, err := s.ListDeals(ctx, repository.ListDealsParams{OrderBy: tc.orderBy, Asc: tc.asc})
			require.NoError(t, err)
			if diff := cmp.Diff(tc.want, dealNames(items)); diff != "" {
				t.Fatalf("order mismatch (-want +got):\n%s", diff)
			}
		})
	}

	byStatus, err := s.ListDeals(ctx, repository.ListDealsParams{OrderBy: "status"})
	require.NoError(t, err)
	require.Equal(t, "Charlie", byStatus[0].Name)
}

func TestStore_DeleteDealCascades(t *testing.T) {
	ctx := context.Background()
	s := New()
	d := &models.Deal{Name: "X", SourceKind: models.SourceManual}
	require.NoError(t, s.CreateDeal(ctx, d))
	require.NoError(t, s.UpsertScores(ctx, &models.Scores{DealID: d.ID, Overall: 60}))
	require.NoError(t, s.CreateMemo(ctx, &models.Memo{DealID: d.ID, Body: "b"}))
	require.NoError(t, s.DeleteDeal(ctx, d.ID))

	got, err := s.GetCompleteDeal(ctx, d.ID)
	require.NoError(t, err)
	require.Nil(t, got)
	memos, err := s.ListMemos(ctx, d.ID)
	require.NoError(t, err)
	require.Empty(t, memos)
}
