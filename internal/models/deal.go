package models

import (
	"strings"
	"time"
)

type SourceKind string

const (
	SourceDocument SourceKind = "document"
	SourceLink     SourceKind = "link"
	SourceManual   SourceKind = "manual"
)

func (k SourceKind) Valid() bool {
	switch k {
	case SourceDocument, SourceLink, SourceManual:
		return true
	}
	return false
}

// DealStatus is the lifecycle state of a deal. The pipeline only moves it
// forward; archived is reachable from any state through the archive operation.
type DealStatus string

const (
	DealStatusDraft         DealStatus = "draft"
	DealStatusIngested      DealStatus = "ingested"
	DealStatusEnriched      DealStatus = "enriched"
	DealStatusUnderwritten  DealStatus = "underwritten"
	DealStatusMemoGenerated DealStatus = "memo_generated"
	DealStatusArchived      DealStatus = "archived"
)

var dealStatusRank = map[DealStatus]int{
	DealStatusDraft:         0,
	DealStatusIngested:      1,
	DealStatusEnriched:      2,
	DealStatusUnderwritten:  3,
	DealStatusMemoGenerated: 4,
	DealStatusArchived:      5,
}

func ParseDealStatus(raw string) (DealStatus, bool) {
	s := DealStatus(strings.ToLower(strings.TrimSpace(raw)))
	_, ok := dealStatusRank[s]
	return s, ok
}

func (s DealStatus) Rank() int {
	if r, ok := dealStatusRank[s]; ok {
		return r
	}
	return -1
}

// CanAdvanceTo reports whether a pipeline stage may move a deal from s to next.
// Archived deals never advance and the pipeline never produces archived.
func (s DealStatus) CanAdvanceTo(next DealStatus) bool {
	if s == DealStatusArchived || next == DealStatusArchived {
		return false
	}
	return next.Rank() > s.Rank()
}

type Deal struct {
	ID         string     `gorm:"type:varchar(36);primaryKey" json:"id"`
	Name       string     `gorm:"type:varchar(255);not null" json:"name"`
	SourceKind SourceKind `gorm:"type:varchar(20);not null;index" json:"source_kind"`
	SourceURL  *string    `gorm:"type:text" json:"source_url,omitempty"`
	Status     DealStatus `gorm:"type:varchar(30);not null;index" json:"status"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime;index" json:"created_at"`
	UpdatedAt time.Time `gorm:"type:timestamptz;autoUpdateTime" json:"updated_at"`
}

func (Deal) TableName() string {
	return "deals"
}
