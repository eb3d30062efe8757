package models

import (
	"time"

	"gorm.io/datatypes"
)

// PropertyAttributes holds the physical facts of a deal. Enrichment may later
// fill the geocode.
type PropertyAttributes struct {
	DealID string `gorm:"type:varchar(36);primaryKey" json:"deal_id"`

	Address       *string  `gorm:"type:text" json:"address,omitempty"`
	PropertyType  *string  `gorm:"type:varchar(100)" json:"property_type,omitempty"`
	BuildingSqft  *float64 `gorm:"type:double precision" json:"building_sqft,omitempty"`
	LandAcres     *float64 `gorm:"type:double precision" json:"land_acres,omitempty"`
	YearBuilt     *int     `json:"year_built,omitempty"`
	ClearHeightFt *float64 `gorm:"type:double precision" json:"clear_height_ft,omitempty"`
	DockDoors     *int     `json:"dock_doors,omitempty"`
	DriveInDoors  *int     `json:"drive_in_doors,omitempty"`
	Latitude      *float64 `gorm:"type:double precision" json:"latitude,omitempty"`
	Longitude     *float64 `gorm:"type:double precision" json:"longitude,omitempty"`
	PurchasePrice *float64 `gorm:"type:double precision" json:"purchase_price,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (PropertyAttributes) TableName() string {
	return "property_attributes"
}

type RentEscalation struct {
	Year        int     `json:"year"`
	BumpPercent float64 `json:"bump_percent"`
}

type LeaseOption struct {
	Type  string `json:"type"`
	Years int    `json:"years"`
}

type LeaseTerms struct {
	DealID string `gorm:"type:varchar(36);primaryKey" json:"deal_id"`

	TenantName     *string  `gorm:"type:varchar(255);index" json:"tenant_name,omitempty"`
	LeaseType      *string  `gorm:"type:varchar(50)" json:"lease_type,omitempty"`
	LeaseStart     *string  `gorm:"type:varchar(10)" json:"lease_start,omitempty"`
	LeaseEnd       *string  `gorm:"type:varchar(10)" json:"lease_end,omitempty"`
	BaseRentAnnual *float64 `gorm:"type:double precision" json:"base_rent_annual,omitempty"`
	RentPerSqft    *float64 `gorm:"type:double precision" json:"rent_per_sqft,omitempty"`

	Escalations datatypes.JSONSlice[RentEscalation] `gorm:"type:jsonb" json:"escalations,omitempty"`
	Options     datatypes.JSONSlice[LeaseOption]    `gorm:"type:jsonb" json:"options,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (LeaseTerms) TableName() string {
	return "lease_terms"
}
