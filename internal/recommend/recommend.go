// Package recommend classifies a memo body into a recommendation.
package recommend

import (
	"strings"

	"dealflow/internal/models"
)

// Extract is a case-insensitive substring check in fixed priority order:
// "approve with conditions", then "decline", then "approve". A memo that
// mentions a declined alternative in passing can be misclassified.
func Extract(body string) models.Recommendation {
	text := strings.ToLower(body)
	switch {
	case strings.Contains(text, "approve with conditions"):
		return models.RecommendationApproveWithConditions
	case strings.Contains(text, "decline"):
		return models.RecommendationDecline
	case strings.Contains(text, "approve"):
		return models.RecommendationApprove
	default:
		return models.RecommendationUndetermined
	}
}
