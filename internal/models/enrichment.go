package models

import "time"

type Enrichment struct {
	DealID string `gorm:"type:varchar(36);primaryKey" json:"deal_id"`

	Latitude         *float64 `gorm:"type:double precision" json:"latitude,omitempty"`
	Longitude        *float64 `gorm:"type:double precision" json:"longitude,omitempty"`
	Submarket        *string  `gorm:"type:varchar(255);index" json:"submarket,omitempty"`
	MarketRank       *int     `json:"market_rank,omitempty"`
	TenantIndustry   *string  `gorm:"type:varchar(255)" json:"tenant_industry,omitempty"`
	TenantSizeBucket *string  `gorm:"type:varchar(50)" json:"tenant_size_bucket,omitempty"`
	TenantPublic     *bool    `json:"tenant_public,omitempty"`
	CreditTier       *string  `gorm:"type:varchar(50)" json:"credit_tier,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Enrichment) TableName() string {
	return "enrichments"
}
