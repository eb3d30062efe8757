package models

import "time"

type Recommendation string

const (
	RecommendationApprove               Recommendation = "approve"
	RecommendationApproveWithConditions Recommendation = "approve_with_conditions"
	RecommendationDecline               Recommendation = "decline"
	RecommendationUndetermined          Recommendation = "undetermined"
)

// Memo versions are append-only; a new generation never touches older rows.
type Memo struct {
	ID             uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	DealID         string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_memos_deal_version,priority:1" json:"deal_id"`
	Version        int            `gorm:"not null;uniqueIndex:idx_memos_deal_version,priority:2" json:"version"`
	Body           string         `gorm:"type:text;not null" json:"body"`
	Recommendation Recommendation `gorm:"type:varchar(30);not null;index" json:"recommendation"`
	Model          string         `gorm:"type:varchar(100)" json:"model,omitempty"`

	CreatedAt time.Time `gorm:"type:timestamptz;autoCreateTime" json:"created_at"`
}

func (Memo) TableName() string {
	return "memos"
}
