package models

import "testing"

func strPtr(v string) *string   { return &v }
func f64Ptr(v float64) *float64 { return &v }

func TestPropertyMerge_KeepsExistingOnNil(t *testing.T) {
	dst := &PropertyAttributes{DealID: "d1", Address: strPtr("1 Main St"), BuildingSqft: f64Ptr(100000)}
	src := &PropertyAttributes{Latitude: f64Ptr(33.1), Longitude: f64Ptr(-97.2)}
	dst.Merge(src)
	if dst.Address == nil || *dst.Address != "1 Main St" {
		t.Fatalf("address=%v", dst.Address)
	}
	if dst.BuildingSqft == nil || *dst.BuildingSqft != 100000 {
		t.Fatalf("sqft=%v", dst.BuildingSqft)
	}
	if dst.Latitude == nil || *dst.Latitude != 33.1 {
		t.Fatalf("lat=%v", dst.Latitude)
	}
	*src.Latitude = 0
	if *dst.Latitude != 33.1 {
		t.Fatalf("merge aliased source pointer")
	}
}

func TestLeaseMerge_CollectionsReplacedOnlyWhenPresent(t *testing.T) {
	dst := &LeaseTerms{
		TenantName:  strPtr("Acme"),
		Escalations: []RentEscalation{{Year: 2, BumpPercent: 3}},
	}
	dst.Merge(&LeaseTerms{BaseRentAnnual: f64Ptr(500000)})
	if len(dst.Escalations) != 1 {
		t.Fatalf("escalations=%v want kept", dst.Escalations)
	}
	dst.Merge(&LeaseTerms{Escalations: []RentEscalation{}})
	if len(dst.Escalations) != 0 {
		t.Fatalf("escalations=%v want cleared", dst.Escalations)
	}
	if dst.TenantName == nil || *dst.TenantName != "Acme" {
		t.Fatalf("tenant=%v", dst.TenantName)
	}
}

func TestScoresMerge_ExplanationsSurviveRescore(t *testing.T) {
	dst := &Scores{Overall: 50, Explanations: ScoreExplanations{Overall: strPtr("solid")}}
	dst.Merge(&Scores{Overall: 70, Location: 80})
	if dst.Overall != 70 || dst.Location != 80 {
		t.Fatalf("scores=%+v", dst)
	}
	if dst.Explanations.Overall == nil || *dst.Explanations.Overall != "solid" {
		t.Fatalf("explanation lost")
	}
}

func TestScoresMerge_ResetDropsStaleExplanations(t *testing.T) {
	dst := &Scores{Overall: 50, Explanations: ScoreExplanations{Overall: strPtr("solid"), Location: strPtr("infill")}}
	dst.Merge(&Scores{Overall: 30, ResetExplanations: true})
	if dst.Overall != 30 {
		t.Fatalf("overall=%v", dst.Overall)
	}
	if dst.Explanations.Overall != nil || dst.Explanations.Location != nil {
		t.Fatalf("explanations=%+v want cleared", dst.Explanations)
	}
	if dst.ResetExplanations {
		t.Fatalf("reset flag must not stick to the stored record")
	}
}

func TestDealStatus_CanAdvanceTo(t *testing.T) {
	cases := []struct {
		from, to DealStatus
		want     bool
	}{
		{DealStatusDraft, DealStatusIngested, true},
		{DealStatusIngested, DealStatusMemoGenerated, true},
		{DealStatusUnderwritten, DealStatusIngested, false},
		{DealStatusEnriched, DealStatusEnriched, false},
		{DealStatusArchived, DealStatusMemoGenerated, false},
		{DealStatusDraft, DealStatusArchived, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanAdvanceTo(tc.to); got != tc.want {
			t.Fatalf("%s->%s=%v want %v", tc.from, tc.to, got, tc.want)
		}
	}
	if _, ok := ParseDealStatus(" Enriched "); !ok {
		t.Fatalf("parse should accept mixed case")
	}
	if _, ok := ParseDealStatus("closed"); ok {
		t.Fatalf("parse should reject unknown")
	}
}
