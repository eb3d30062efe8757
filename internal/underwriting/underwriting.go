// Package underwriting holds the deterministic part of underwriting: the
// weighted overall score and the hold-period cash-flow projection behind the
// financial metrics.
package underwriting

import (
	"math"

	"github.com/shopspring/decimal"

	"dealflow/internal/apperr"
	"dealflow/internal/models"
)

const (
	WeightLocation     = 0.25
	WeightTenantCredit = 0.35
	WeightDownside     = 0.15
	WeightMarketDepth  = 0.25

	DefaultLTV               = 0.65
	DefaultInterestRate      = 0.0625
	DefaultIOYears           = 2
	DefaultAmortizationYears = 25
	DefaultHoldYears         = 7
	DefaultExitCapSpread     = 0.005

	MaxHoldYears         = 50
	MaxAmortizationYears = 40
)

// OverallScore is the fixed weighted combination of the component scores.
func OverallScore(location, tenantCredit, downside, marketDepth float64) float64 {
	return WeightLocation*location +
		WeightTenantCredit*tenantCredit +
		WeightDownside*downside +
		WeightMarketDepth*marketDepth
}

// ClampScore bounds v to [0, 100].
func ClampScore(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

// Assumptions override the financing defaults. Nil fields use the default.
type Assumptions struct {
	LTV               *float64 `json:"ltv,omitempty"`
	InterestRate      *float64 `json:"interest_rate,omitempty"`
	IOYears           *int     `json:"io_period_years,omitempty"`
	AmortizationYears *int     `json:"amortization_years,omitempty"`
	HoldYears         *int     `json:"hold_period_years,omitempty"`
	ExitCapRate       *float64 `json:"exit_cap_rate,omitempty"`
}

// Validate rejects assumptions outside the supported ranges: hold 1-50
// years, amortization 1-40 years, interest-only 0 up to the hold period,
// LTV in [0, 1), rates in [0, 1].
func (a Assumptions) Validate() error {
	hold := DefaultHoldYears
	if a.HoldYears != nil {
		if *a.HoldYears < 1 || *a.HoldYears > MaxHoldYears {
			return apperr.Validation("hold_period_years must be between 1 and %d", MaxHoldYears)
		}
		hold = *a.HoldYears
	}
	if a.AmortizationYears != nil && (*a.AmortizationYears < 1 || *a.AmortizationYears > MaxAmortizationYears) {
		return apperr.Validation("amortization_years must be between 1 and %d", MaxAmortizationYears)
	}
	if a.IOYears != nil && (*a.IOYears < 0 || *a.IOYears > hold) {
		return apperr.Validation("io_period_years must be between 0 and the hold period (%d)", hold)
	}
	if a.LTV != nil && (!isFinite(*a.LTV) || *a.LTV < 0 || *a.LTV >= 1) {
		return apperr.Validation("ltv must be in [0, 1)")
	}
	if a.InterestRate != nil && (!isFinite(*a.InterestRate) || *a.InterestRate < 0 || *a.InterestRate > 1) {
		return apperr.Validation("interest_rate must be in [0, 1]")
	}
	if a.ExitCapRate != nil && (!isFinite(*a.ExitCapRate) || *a.ExitCapRate <= 0 || *a.ExitCapRate > 1) {
		return apperr.Validation("exit_cap_rate must be in (0, 1]")
	}
	return nil
}

type Inputs struct {
	PurchasePrice  *float64
	BaseRentAnnual *float64
	Escalations    []models.RentEscalation
	Assumptions    Assumptions
}

// Project computes the financial metrics. Fields that cannot be derived from
// the inputs stay nil; no field is ever NaN or infinite.
func Project(in Inputs) models.Financials {
	a := resolve(in.Assumptions)
	out := models.Financials{
		PurchasePrice:     finite(in.PurchasePrice),
		NOIYear1:          finite(in.BaseRentAnnual),
		LTV:               &a.ltv,
		InterestRate:      &a.rate,
		IOPeriodYears:     &a.ioYears,
		AmortizationYears: &a.amortYears,
		HoldPeriodYears:   &a.holdYears,
	}

	if out.PurchasePrice != nil && out.NOIYear1 != nil && *out.PurchasePrice > 0 {
		out.CapRate = ratio(*out.NOIYear1, *out.PurchasePrice)
	}
	switch {
	case in.Assumptions.ExitCapRate != nil:
		out.ExitCapRate = finite(in.Assumptions.ExitCapRate)
	case out.CapRate != nil:
		v := decimal.NewFromFloat(*out.CapRate).Add(decimal.NewFromFloat(DefaultExitCapSpread)).Round(6).InexactFloat64()
		out.ExitCapRate = &v
	}

	if out.CapRate == nil {
		return out
	}
	price := *out.PurchasePrice
	loan := price * a.ltv
	equity := price - loan
	out.LoanAmount = round(loan, 2)

	noi := noiSchedule(*out.NOIYear1, in.Escalations, a.holdYears+1)
	debt := debtSchedule(loan, a.rate, a.ioYears, a.amortYears, a.holdYears)

	minDSCR := math.Inf(1)
	cocSum := 0.0
	for y := 0; y < a.holdYears; y++ {
		if debt[y] > 0 {
			minDSCR = math.Min(minDSCR, noi[y]/debt[y])
		}
		if equity > 0 {
			cocSum += (noi[y] - debt[y]) / equity
		}
	}
	if !math.IsInf(minDSCR, 1) {
		out.MinDSCR = round(minDSCR, 6)
	}
	if equity > 0 {
		out.CashOnCashYear1 = round((noi[0]-debt[0])/equity, 6)
		out.AvgCashOnCash = round(cocSum/float64(a.holdYears), 6)
	}

	if out.ExitCapRate == nil || *out.ExitCapRate <= 0 {
		return out
	}
	salePrice := noi[a.holdYears] / *out.ExitCapRate
	balance := loanBalance(loan, a.rate, a.ioYears, a.amortYears, a.holdYears)

	unlevered := make([]float64, a.holdYears+1)
	levered := make([]float64, a.holdYears+1)
	unlevered[0] = -price
	levered[0] = -equity
	for y := 1; y <= a.holdYears; y++ {
		unlevered[y] = noi[y-1]
		levered[y] = noi[y-1] - debt[y-1]
	}
	unlevered[a.holdYears] += salePrice
	levered[a.holdYears] += salePrice - balance

	if irr, ok := IRR(unlevered); ok {
		out.UnleveredIRR = round(irr, 6)
	}
	if equity > 0 {
		if irr, ok := IRR(levered); ok {
			out.LeveredIRR = round(irr, 6)
		}
		distributed := 0.0
		for _, cf := range levered[1:] {
			distributed += cf
		}
		out.EquityMultiple = round(distributed/equity, 6)
	}
	return out
}

type resolved struct {
	ltv        float64
	rate       float64
	ioYears    int
	amortYears int
	holdYears  int
}

func resolve(a Assumptions) resolved {
	r := resolved{
		ltv:        DefaultLTV,
		rate:       DefaultInterestRate,
		ioYears:    DefaultIOYears,
		amortYears: DefaultAmortizationYears,
		holdYears:  DefaultHoldYears,
	}
	if a.LTV != nil && isFinite(*a.LTV) && *a.LTV >= 0 && *a.LTV < 1 {
		r.ltv = *a.LTV
	}
	if a.InterestRate != nil && isFinite(*a.InterestRate) && *a.InterestRate >= 0 {
		r.rate = *a.InterestRate
	}
	if a.IOYears != nil && *a.IOYears >= 0 && *a.IOYears <= MaxHoldYears {
		r.ioYears = *a.IOYears
	}
	if a.AmortizationYears != nil && *a.AmortizationYears > 0 && *a.AmortizationYears <= MaxAmortizationYears {
		r.amortYears = *a.AmortizationYears
	}
	if a.HoldYears != nil && *a.HoldYears > 0 && *a.HoldYears <= MaxHoldYears {
		r.holdYears = *a.HoldYears
	}
	return r
}

// noiSchedule returns NOI for lease years 1..years. An escalation for year y
// bumps rent from year y onward by its percentage.
func noiSchedule(base float64, escalations []models.RentEscalation, years int) []float64 {
	bumps := make(map[int]float64, len(escalations))
	for _, e := range escalations {
		if e.Year >= 2 && isFinite(e.BumpPercent) {
			bumps[e.Year] += e.BumpPercent
		}
	}
	out := make([]float64, years)
	cur := base
	for y := 1; y <= years; y++ {
		if pct, ok := bumps[y]; ok {
			cur *= 1 + pct/100
		}
		out[y-1] = cur
	}
	return out
}

// debtSchedule returns annual debt service for years 1..holdYears:
// interest only for ioYears, then a level monthly amortizing payment.
func debtSchedule(loan, rate float64, ioYears, amortYears, holdYears int) []float64 {
	out := make([]float64, holdYears)
	payment := annualPayment(loan, rate, amortYears)
	for y := 0; y < holdYears; y++ {
		if y < ioYears {
			out[y] = loan * rate
		} else {
			out[y] = payment
		}
	}
	return out
}

func annualPayment(loan, rate float64, amortYears int) float64 {
	n := float64(amortYears * 12)
	if loan <= 0 || n <= 0 {
		return 0
	}
	r := rate / 12
	if r == 0 {
		return loan / n * 12
	}
	return loan * r / (1 - math.Pow(1+r, -n)) * 12
}

// loanBalance is the outstanding principal after holdYears.
func loanBalance(loan, rate float64, ioYears, amortYears, holdYears int) float64 {
	k := float64((holdYears - ioYears) * 12)
	if k <= 0 || loan <= 0 {
		return loan
	}
	n := float64(amortYears * 12)
	if k >= n {
		return 0
	}
	monthly := annualPayment(loan, rate, amortYears) / 12
	r := rate / 12
	if r == 0 {
		return loan - monthly*k
	}
	growth := math.Pow(1+r, k)
	return loan*growth - monthly*(growth-1)/r
}

// IRR finds the rate where the NPV of flows is zero by bisection. ok is false
// when the NPV does not change sign over (-99%, 1000%).
func IRR(flows []float64) (float64, bool) {
	if len(flows) < 2 {
		return 0, false
	}
	lo, hi := -0.99, 10.0
	fLo, fHi := npv(lo, flows), npv(hi, flows)
	if !isFinite(fLo) || !isFinite(fHi) || fLo*fHi > 0 {
		return 0, false
	}
	for i := 0; i < 200; i++ {
		mid := (lo + hi) / 2
		fMid := npv(mid, flows)
		if math.Abs(fMid) < 1e-9 || (hi-lo)/2 < 1e-12 {
			return mid, true
		}
		if fLo*fMid < 0 {
			hi = mid
		} else {
			lo, fLo = mid, fMid
		}
	}
	return (lo + hi) / 2, true
}

func npv(rate float64, flows []float64) float64 {
	total := 0.0
	for t, cf := range flows {
		total += cf / math.Pow(1+rate, float64(t))
	}
	return total
}

func ratio(num, den float64) *float64 {
	if den == 0 || !isFinite(num) || !isFinite(den) {
		return nil
	}
	v := decimal.NewFromFloat(num).DivRound(decimal.NewFromFloat(den), 12).Round(6).InexactFloat64()
	return &v
}

func round(v float64, places int32) *float64 {
	if !isFinite(v) {
		return nil
	}
	r := decimal.NewFromFloat(v).Round(places).InexactFloat64()
	return &r
}

func finite(p *float64) *float64 {
	if p == nil || !isFinite(*p) {
		return nil
	}
	v := *p
	return &v
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
