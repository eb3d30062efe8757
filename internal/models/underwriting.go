package models

import (
	"time"

	"gorm.io/datatypes"
)

type ScoreExplanations struct {
	Overall      *string `gorm:"type:text" json:"overall,omitempty"`
	Location     *string `gorm:"type:text" json:"location,omitempty"`
	TenantCredit *string `gorm:"type:text" json:"tenant_credit,omitempty"`
	Downside     *string `gorm:"type:text" json:"downside,omitempty"`
	MarketDepth  *string `gorm:"type:text" json:"market_depth,omitempty"`
}

// Scores are 0-100. Overall is always the weighted combination of the four
// components.
type Scores struct {
	DealID string `gorm:"type:varchar(36);primaryKey" json:"deal_id"`

	Overall      float64 `gorm:"type:double precision;not null;default:0;index" json:"overall"`
	Location     float64 `gorm:"type:double precision;not null;default:0" json:"location"`
	TenantCredit float64 `gorm:"type:double precision;not null;default:0" json:"tenant_credit"`
	Downside     float64 `gorm:"type:double precision;not null;default:0" json:"downside"`
	MarketDepth  float64 `gorm:"type:double precision;not null;default:0" json:"market_depth"`

	RiskFlags    datatypes.JSONSlice[string] `gorm:"type:jsonb" json:"risk_flags"`
	Explanations ScoreExplanations           `gorm:"embedded;embeddedPrefix:explanation_" json:"explanations"`

	// ResetExplanations drops stored explanations on merge. Underwrite sets it
	// because explanations describe the scores they were written for.
	ResetExplanations bool `gorm:"-" json:"-"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Scores) TableName() string {
	return "scores"
}

type Financials struct {
	DealID string `gorm:"type:varchar(36);primaryKey" json:"deal_id"`

	PurchasePrice     *float64 `gorm:"type:double precision" json:"purchase_price,omitempty"`
	NOIYear1          *float64 `gorm:"column:noi_year1;type:double precision" json:"noi_year1,omitempty"`
	CapRate           *float64 `gorm:"type:double precision" json:"cap_rate,omitempty"`
	LTV               *float64 `gorm:"column:ltv;type:double precision" json:"ltv,omitempty"`
	InterestRate      *float64 `gorm:"type:double precision" json:"interest_rate,omitempty"`
	IOPeriodYears     *int     `gorm:"column:io_period_years" json:"io_period_years,omitempty"`
	AmortizationYears *int     `json:"amortization_years,omitempty"`
	ExitCapRate       *float64 `gorm:"type:double precision" json:"exit_cap_rate,omitempty"`
	HoldPeriodYears   *int     `json:"hold_period_years,omitempty"`
	LeveredIRR        *float64 `gorm:"column:levered_irr;type:double precision" json:"levered_irr,omitempty"`
	UnleveredIRR      *float64 `gorm:"column:unlevered_irr;type:double precision" json:"unlevered_irr,omitempty"`
	MinDSCR           *float64 `gorm:"column:min_dscr;type:double precision" json:"min_dscr,omitempty"`
	CashOnCashYear1   *float64 `gorm:"column:cash_on_cash_year1;type:double precision" json:"cash_on_cash_year1,omitempty"`
	AvgCashOnCash     *float64 `gorm:"type:double precision" json:"avg_cash_on_cash,omitempty"`
	EquityMultiple    *float64 `gorm:"type:double precision" json:"equity_multiple,omitempty"`
	LoanAmount        *float64 `gorm:"type:double precision" json:"loan_amount,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Financials) TableName() string {
	return "financials"
}
