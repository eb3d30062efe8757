package service

import (
	"context"
	"errors"
	"testing"

	"dealflow/internal/apperr"
	"dealflow/internal/models"
	"dealflow/internal/portfolio"
	"dealflow/internal/repository/memory"
	"dealflow/internal/stage"
)

func strp(v string) *string { return &v }

func TestCreate_Validation(t *testing.T) {
	svc := &DealService{Repo: memory.New()}
	cases := []CreateDealInput{
		{Name: " "},
		{Name: "x", SourceKind: "fax"},
		{Name: "x", SourceKind: "link"},
		{Name: "x", SourceKind: "link", SourceURL: strp("ftp://host/file")},
	}
	for _, in := range cases {
		if _, err := svc.Create(context.Background(), in); !apperr.Is(err, apperr.KindValidation) {
			t.Fatalf("in=%+v err=%v", in, err)
		}
	}
	d, err := svc.Create(context.Background(), CreateDealInput{Name: " Dallas DC ", SourceKind: "LINK", SourceURL: strp("https://example.com/l/1")})
	if err != nil {
		t.Fatalf("err=%v", err)
	}
	if d.Name != "Dallas DC" || d.SourceKind != models.SourceLink || d.Status != models.DealStatusDraft || d.ID == "" {
		t.Fatalf("deal=%+v", d)
	}
}

func TestArchive_And_Delete(t *testing.T) {
	ctx := context.Background()
	svc := &DealService{Repo: memory.New()}
	d, err := svc.Create(ctx, CreateDealInput{Name: "A"})
	if err != nil {
		t.Fatal(err)
	}
	got, err := svc.Archive(ctx, d.ID)
	if err != nil || got.Status != models.DealStatusArchived {
		t.Fatalf("got=%+v err=%v", got, err)
	}
	if _, err := svc.Archive(ctx, d.ID); err != nil {
		t.Fatalf("second archive: %v", err)
	}
	if err := svc.Delete(ctx, d.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := svc.Get(ctx, d.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err=%v", err)
	}
	if err := svc.Delete(ctx, d.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err=%v", err)
	}
}

func TestList_RejectsUnknownStatus(t *testing.T) {
	svc := &DealService{Repo: memory.New()}
	if _, _, err := svc.List(context.Background(), ListDealsInput{Status: strp("closed")}); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("err=%v", err)
	}
}

type stubInsights struct {
	ins *portfolio.Insights
	err error
}

func (s stubInsights) Compute(context.Context) (*portfolio.Insights, error) { return s.ins, s.err }

func TestDigest(t *testing.T) {
	ins := &portfolio.Insights{
		TopOverall:    []stage.DealSummary{{Name: "A"}, {Name: "B"}},
		SystemicRisks: []string{"tenant concentration"},
		Concentration: stage.Concentration{TotalDeals: 2},
	}
	d := Digest(ins, 1)
	if names := d["top_overall"].([]string); len(names) != 1 || names[0] != "A" {
		t.Fatalf("top=%v", names)
	}
	if d["total_deals"] != 2 {
		t.Fatalf("total=%v", d["total_deals"])
	}

	svc := &DigestService{Insights: stubInsights{ins: ins}}
	if err := svc.RunOnce(context.Background()); err != nil {
		t.Fatalf("err=%v", err)
	}
	svc = &DigestService{Insights: stubInsights{err: errors.New("boom")}}
	if err := svc.RunOnce(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}
