package stage

import (
	"dealflow/internal/models"
	"dealflow/internal/underwriting"
)

// ParsedFacts is the parse stage output. Every field is independently
// nullable; nil means the value was not confidently extracted.
type ParsedFacts struct {
	Address        *string                 `json:"address"`
	TenantName     *string                 `json:"tenant_name"`
	PropertyType   *string                 `json:"property_type"`
	BuildingSqft   *float64                `json:"building_sqft"`
	LandAcres      *float64                `json:"land_acres"`
	YearBuilt      *int                    `json:"year_built"`
	ClearHeightFt  *float64                `json:"clear_height_ft"`
	DockDoors      *int                    `json:"dock_doors"`
	DriveInDoors   *int                    `json:"drive_in_doors"`
	LeaseType      *string                 `json:"lease_type"`
	LeaseStart     *string                 `json:"lease_start"`
	LeaseEnd       *string                 `json:"lease_end"`
	BaseRentAnnual *float64                `json:"base_rent_annual"`
	RentPerSqft    *float64                `json:"rent_per_sqft"`
	PurchasePrice  *float64                `json:"purchase_price"`
	Escalations    []models.RentEscalation `json:"escalations"`
	Options        []models.LeaseOption    `json:"options"`
}

func (p ParsedFacts) Property(dealID string) *models.PropertyAttributes {
	return &models.PropertyAttributes{
		DealID:        dealID,
		Address:       p.Address,
		PropertyType:  p.PropertyType,
		BuildingSqft:  p.BuildingSqft,
		LandAcres:     p.LandAcres,
		YearBuilt:     p.YearBuilt,
		ClearHeightFt: p.ClearHeightFt,
		DockDoors:     p.DockDoors,
		DriveInDoors:  p.DriveInDoors,
		PurchasePrice: p.PurchasePrice,
	}
}

func (p ParsedFacts) Lease(dealID string) *models.LeaseTerms {
	return &models.LeaseTerms{
		DealID:         dealID,
		TenantName:     p.TenantName,
		LeaseType:      p.LeaseType,
		LeaseStart:     p.LeaseStart,
		LeaseEnd:       p.LeaseEnd,
		BaseRentAnnual: p.BaseRentAnnual,
		RentPerSqft:    p.RentPerSqft,
		Escalations:    p.Escalations,
		Options:        p.Options,
	}
}

// ParseInput carries either a document body or caller-entered facts. Manual
// facts bypass the completion service.
type ParseInput struct {
	Document string       `json:"document,omitempty"`
	Manual   *ParsedFacts `json:"manual_data,omitempty"`
}

// EnrichInput is the reduced view of the parsed facts sent to enrichment.
type EnrichInput struct {
	Address      *string  `json:"address"`
	TenantName   *string  `json:"tenant_name"`
	PropertyType *string  `json:"property_type"`
	BuildingSqft *float64 `json:"building_sqft"`
	YearBuilt    *int     `json:"year_built"`
}

func EnrichInputFrom(p *models.PropertyAttributes, l *models.LeaseTerms) EnrichInput {
	var in EnrichInput
	if p != nil {
		in.Address = p.Address
		in.PropertyType = p.PropertyType
		in.BuildingSqft = p.BuildingSqft
		in.YearBuilt = p.YearBuilt
	}
	if l != nil {
		in.TenantName = l.TenantName
	}
	return in
}

type EnrichmentFacts struct {
	Latitude         *float64 `json:"latitude"`
	Longitude        *float64 `json:"longitude"`
	Submarket        *string  `json:"submarket"`
	MarketRank       *int     `json:"market_rank"`
	TenantIndustry   *string  `json:"tenant_industry"`
	TenantSizeBucket *string  `json:"tenant_size_bucket"`
	TenantPublic     *bool    `json:"tenant_public"`
	CreditTier       *string  `json:"credit_tier"`
}

func (e EnrichmentFacts) Model(dealID string) *models.Enrichment {
	return &models.Enrichment{
		DealID:           dealID,
		Latitude:         e.Latitude,
		Longitude:        e.Longitude,
		Submarket:        e.Submarket,
		MarketRank:       e.MarketRank,
		TenantIndustry:   e.TenantIndustry,
		TenantSizeBucket: e.TenantSizeBucket,
		TenantPublic:     e.TenantPublic,
		CreditTier:       e.CreditTier,
	}
}

// Geocode is the part of enrichment merged back into property attributes.
// It returns nil when enrichment has no coordinates.
func (e EnrichmentFacts) Geocode(dealID string) *models.PropertyAttributes {
	if e.Latitude == nil || e.Longitude == nil {
		return nil
	}
	return &models.PropertyAttributes{DealID: dealID, Latitude: e.Latitude, Longitude: e.Longitude}
}

type UnderwriteInput struct {
	Property      *models.PropertyAttributes `json:"property,omitempty"`
	Lease         *models.LeaseTerms         `json:"lease,omitempty"`
	Enrichment    *models.Enrichment         `json:"enrichment,omitempty"`
	PurchasePrice *float64                   `json:"purchase_price,omitempty"`
	Assumptions   underwriting.Assumptions   `json:"assumptions"`
}

type UnderwritingResult struct {
	Scores     models.Scores     `json:"scores"`
	Financials models.Financials `json:"financials"`
}

type MemoResult struct {
	Body  string `json:"body"`
	Model string `json:"model"`
}

type Explanations struct {
	Overall      string `json:"overall"`
	Location     string `json:"location"`
	TenantCredit string `json:"tenant_credit"`
	Downside     string `json:"downside"`
	MarketDepth  string `json:"market_depth"`
}

func (x Explanations) Model() models.ScoreExplanations {
	return models.ScoreExplanations{
		Overall:      &x.Overall,
		Location:     &x.Location,
		TenantCredit: &x.TenantCredit,
		Downside:     &x.Downside,
		MarketDepth:  &x.MarketDepth,
	}
}

// DealSummary is one deal as the portfolio review sees it.
type DealSummary struct {
	DealID        string   `json:"deal_id"`
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	Address       *string  `json:"address,omitempty"`
	Submarket     *string  `json:"submarket,omitempty"`
	TenantName    *string  `json:"tenant_name,omitempty"`
	CreditTier    *string  `json:"credit_tier,omitempty"`
	LeaseEnd      *string  `json:"lease_end,omitempty"`
	OverallScore  *float64 `json:"overall_score,omitempty"`
	LocationScore *float64 `json:"location_score,omitempty"`
	PurchasePrice *float64 `json:"purchase_price,omitempty"`
	CapRate       *float64 `json:"cap_rate,omitempty"`
	LeveredIRR    *float64 `json:"levered_irr,omitempty"`
}

type Share struct {
	Key   string  `json:"key"`
	Count int     `json:"count"`
	Share float64 `json:"share"`
}

type YearCount struct {
	Year  int `json:"year"`
	Count int `json:"count"`
}

// Concentration holds the deterministic portfolio statistics.
type Concentration struct {
	TotalDeals       int         `json:"total_deals"`
	Tenants          []Share     `json:"tenants"`
	Submarkets       []Share     `json:"submarkets"`
	LeaseExpirations []YearCount `json:"lease_expirations"`
	CreditTiers      []Share     `json:"credit_tiers"`
}

type PortfolioRequest struct {
	Deals         []DealSummary `json:"deals"`
	Concentration Concentration `json:"concentration"`
}

type PortfolioAnalysis struct {
	SystemicRisks []string `json:"systemic_risks"`
	Summary       string   `json:"summary"`
}
