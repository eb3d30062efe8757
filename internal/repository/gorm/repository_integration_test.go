//go:build integration

package gormrepository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"dealflow/internal/config"
	"dealflow/internal/db"
	"dealflow/internal/models"
	"dealflow/internal/repository"
)

func startPostgres(t *testing.T) *Store {
	t.Helper()
	ctx := context.Background()
	ctr, err := testcontainers.Run(ctx, "postgres:16-alpine",
		testcontainers.WithExposedPorts("5432/tcp"),
		testcontainers.WithEnv(map[string]string{
			"POSTGRES_USER":     "dealflow",
			"POSTGRES_PASSWORD": "dealflow",
			"POSTGRES_DB":       "dealflow",
		}),
		testcontainers.WithWaitStrategy(
			wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections").WithOccurrence(2),
			).WithDeadline(60*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = ctr.Terminate(cleanupCtx)
	})

	host, err := ctr.Host(ctx)
	require.NoError(t, err)
	port, err := ctr.MappedPort(ctx, "5432/tcp")
	require.NoError(t, err)

	dsn := fmt.Sprintf("host=%s port=%s user=dealflow password=dealflow dbname=dealflow sslmode=disable", host, port.Port())
	conn, err := db.Open(config.DBConfig{DSN: dsn, MaxOpenConns: 5, MaxIdleConns: 2})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close(conn) })
	require.NoError(t, db.AutoMigrate(conn))
	return New(conn.Gorm)
}

func strPtr(v string) *string   { return &v }
func f64Ptr(v float64) *float64 { return &v }

func TestStore_Postgres(t *testing.T) {
	s := startPostgres(t)
	ctx := context.Background()

	deal := &models.Deal{Name: "Reno Cross-Dock", SourceKind: models.SourceDocument}
	require.NoError(t, s.CreateDeal(ctx, deal))

	t.Run("merge upsert keeps earlier fields", func(t *testing.T) {
		require.NoError(t, s.UpsertPropertyAttributes(ctx, &models.PropertyAttributes{
			DealID:       deal.ID,
			Address:      strPtr("55 Valley Rd, Reno, NV"),
			BuildingSqft: f64Ptr(250000),
		}))
		require.NoError(t, s.UpsertPropertyAttributes(ctx, &models.PropertyAttributes{
			DealID:    deal.ID,
			Latitude:  f64Ptr(39.52),
			Longitude: f64Ptr(-119.81),
		}))
		got, err := s.GetPropertyAttributes(ctx, deal.ID)
		require.NoError(t, err)
		require.Equal(t, "55 Valley Rd, Reno, NV", *got.Address)
		require.Equal(t, 39.52, *got.Latitude)
	})

	t.Run("round trip through complete deal", func(t *testing.T) {
		lease := models.LeaseTerms{
			DealID:         deal.ID,
			TenantName:     strPtr("Northwind Freight"),
			LeaseEnd:       strPtr("2031-06-30"),
			BaseRentAnnual: f64Ptr(1250000),
			Escalations:    []models.RentEscalation{{Year: 3, BumpPercent: 2.5}},
		}
		scores := models.Scores{
			DealID: deal.ID, Overall: 71.5, Location: 80, TenantCredit: 70, Downside: 60, MarketDepth: 70,
			RiskFlags: []string{"single tenant"},
		}
		w1, w2 := lease, scores
		require.NoError(t, s.UpsertLeaseTerms(ctx, &w1))
		require.NoError(t, s.UpsertScores(ctx, &w2))

		got, err := s.GetCompleteDeal(ctx, deal.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		opts := cmp.Options{
			cmpopts.IgnoreFields(models.LeaseTerms{}, "CreatedAt", "UpdatedAt"),
			cmpopts.IgnoreFields(models.Scores{}, "CreatedAt", "UpdatedAt"),
			cmpopts.EquateEmpty(),
		}
		if diff := cmp.Diff(lease, *got.Lease, opts); diff != "" {
			t.Fatalf("lease mismatch (-want +got):\n%s", diff)
		}
		if diff := cmp.Diff(scores, *got.Scores, opts); diff != "" {
			t.Fatalf("scores mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("memo versions append", func(t *testing.T) {
		for i := 1; i <= 2; i++ {
			m := &models.Memo{DealID: deal.ID, Body: "body", Recommendation: models.RecommendationDecline}
			require.NoError(t, s.CreateMemo(ctx, m))
			require.Equal(t, i, m.Version)
		}
		items, err := s.ListMemos(ctx, deal.ID)
		require.NoError(t, err)
		require.Len(t, items, 2)
		require.Equal(t, 2, items[0].Version)
	})

	t.Run("tenant filter joins lease terms", func(t *testing.T) {
		tenant := "northwind"
		items, err := s.ListDeals(ctx, repository.ListDealsParams{Tenant: &tenant})
		require.NoError(t, err)
		require.Len(t, items, 1)
		total, err := s.CountDeals(ctx, repository.ListDealsParams{Tenant: &tenant})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
	})

	t.Run("delete cascades", func(t *testing.T) {
		require.NoError(t, s.DeleteDeal(ctx, deal.ID))
		got, err := s.GetCompleteDeal(ctx, deal.ID)
		require.NoError(t, err)
		require.Nil(t, got)
		lease, err := s.GetLeaseTerms(ctx, deal.ID)
		require.NoError(t, err)
		require.Nil(t, lease)
	})
}
