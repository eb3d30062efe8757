package models

// Merge methods fold a newer artifact into the stored one. A nil field in src
// keeps the stored value; collections are replaced only when src carries one.

func mergePtr[T any](dst **T, src *T) {
	if src == nil {
		return
	}
	v := *src
	*dst = &v
}

func (p *PropertyAttributes) Merge(src *PropertyAttributes) {
	if p == nil || src == nil {
		return
	}
	mergePtr(&p.Address, src.Address)
	mergePtr(&p.PropertyType, src.PropertyType)
	mergePtr(&p.BuildingSqft, src.BuildingSqft)
	mergePtr(&p.LandAcres, src.LandAcres)
	mergePtr(&p.YearBuilt, src.YearBuilt)
	mergePtr(&p.ClearHeightFt, src.ClearHeightFt)
	mergePtr(&p.DockDoors, src.DockDoors)
	mergePtr(&p.DriveInDoors, src.DriveInDoors)
	mergePtr(&p.Latitude, src.Latitude)
	mergePtr(&p.Longitude, src.Longitude)
	mergePtr(&p.PurchasePrice, src.PurchasePrice)
}

func (l *LeaseTerms) Merge(src *LeaseTerms) {
	if l == nil || src == nil {
		return
	}
	mergePtr(&l.TenantName, src.TenantName)
	mergePtr(&l.LeaseType, src.LeaseType)
	mergePtr(&l.LeaseStart, src.LeaseStart)
	mergePtr(&l.LeaseEnd, src.LeaseEnd)
	mergePtr(&l.BaseRentAnnual, src.BaseRentAnnual)
	mergePtr(&l.RentPerSqft, src.RentPerSqft)
	if src.Escalations != nil {
		l.Escalations = append(l.Escalations[:0:0], src.Escalations...)
	}
	if src.Options != nil {
		l.Options = append(l.Options[:0:0], src.Options...)
	}
}

func (e *Enrichment) Merge(src *Enrichment) {
	if e == nil || src == nil {
		return
	}
	mergePtr(&e.Latitude, src.Latitude)
	mergePtr(&e.Longitude, src.Longitude)
	mergePtr(&e.Submarket, src.Submarket)
	mergePtr(&e.MarketRank, src.MarketRank)
	mergePtr(&e.TenantIndustry, src.TenantIndustry)
	mergePtr(&e.TenantSizeBucket, src.TenantSizeBucket)
	mergePtr(&e.TenantPublic, src.TenantPublic)
	mergePtr(&e.CreditTier, src.CreditTier)
}

// Merge on scores always takes the numeric scores from src since they are
// never absent. Explanations are merged field by field, after being cleared
// when src asks for a reset.
func (s *Scores) Merge(src *Scores) {
	if s == nil || src == nil {
		return
	}
	s.Overall = src.Overall
	s.Location = src.Location
	s.TenantCredit = src.TenantCredit
	s.Downside = src.Downside
	s.MarketDepth = src.MarketDepth
	if src.RiskFlags != nil {
		s.RiskFlags = append(s.RiskFlags[:0:0], src.RiskFlags...)
	}
	if src.ResetExplanations {
		s.Explanations = ScoreExplanations{}
	}
	s.Explanations.Merge(&src.Explanations)
}

func (x *ScoreExplanations) Merge(src *ScoreExplanations) {
	if x == nil || src == nil {
		return
	}
	mergePtr(&x.Overall, src.Overall)
	mergePtr(&x.Location, src.Location)
	mergePtr(&x.TenantCredit, src.TenantCredit)
	mergePtr(&x.Downside, src.Downside)
	mergePtr(&x.MarketDepth, src.MarketDepth)
}

func (f *Financials) Merge(src *Financials) {
	if f == nil || src == nil {
		return
	}
	mergePtr(&f.PurchasePrice, src.PurchasePrice)
	mergePtr(&f.NOIYear1, src.NOIYear1)
	mergePtr(&f.CapRate, src.CapRate)
	mergePtr(&f.LTV, src.LTV)
	mergePtr(&f.InterestRate, src.InterestRate)
	mergePtr(&f.IOPeriodYears, src.IOPeriodYears)
	mergePtr(&f.AmortizationYears, src.AmortizationYears)
	mergePtr(&f.ExitCapRate, src.ExitCapRate)
	mergePtr(&f.HoldPeriodYears, src.HoldPeriodYears)
	mergePtr(&f.LeveredIRR, src.LeveredIRR)
	mergePtr(&f.UnleveredIRR, src.UnleveredIRR)
	mergePtr(&f.MinDSCR, src.MinDSCR)
	mergePtr(&f.CashOnCashYear1, src.CashOnCashYear1)
	mergePtr(&f.AvgCashOnCash, src.AvgCashOnCash)
	mergePtr(&f.EquityMultiple, src.EquityMultiple)
	mergePtr(&f.LoanAmount, src.LoanAmount)
}
