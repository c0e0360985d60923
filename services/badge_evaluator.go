package services

import (
	"sort"

	"github.com/kendall-kelly/stitchwise-api/config"
	"github.com/kendall-kelly/stitchwise-api/models"
)

// TailorSnapshot is the reputation state the badge rules look at
type TailorSnapshot struct {
	TotalOrders         int
	CompletedOrders     int
	CompletionRate      float64
	AverageRating       float64
	AverageResponseTime float64 // hours, 0 when unknown
}

// SnapshotOf copies the reputation fields of a profile
func SnapshotOf(profile *models.TailorProfile) TailorSnapshot {
	return TailorSnapshot{
		TotalOrders:         profile.TotalOrders,
		CompletedOrders:     profile.CompletedOrders,
		CompletionRate:      profile.CompletionRate,
		AverageRating:       profile.AverageRating,
		AverageResponseTime: profile.AverageResponseTime,
	}
}

// BadgeEvaluator applies badge rules to a tailor. It has no side effects.
type BadgeEvaluator struct {
	rules []config.BadgeRule
}

// NewBadgeEvaluator creates an evaluator for the given rules
func NewBadgeEvaluator(rules []config.BadgeRule) *BadgeEvaluator {
	return &BadgeEvaluator{rules: rules}
}

// Evaluate returns every badge type the tailor currently qualifies for, sorted by type
func (e *BadgeEvaluator) Evaluate(snapshot TailorSnapshot, reviews ReviewSummary) []models.BadgeType {
	var earned []models.BadgeType
	for _, rule := range e.rules {
		if qualifies(rule, snapshot, reviews) {
			earned = append(earned, models.BadgeType(rule.Type))
		}
	}
	sort.Slice(earned, func(i, j int) bool { return earned[i] < earned[j] })
	return earned
}

func qualifies(rule config.BadgeRule, snapshot TailorSnapshot, reviews ReviewSummary) bool {
	rating := snapshot.AverageRating
	if rating == 0 {
		rating = reviews.AverageRating
	}

	if rule.MinAverageRating > 0 && rating < rule.MinAverageRating {
		return false
	}
	if rule.MinCompletedOrders > 0 && snapshot.CompletedOrders < rule.MinCompletedOrders {
		return false
	}
	if rule.MinCompletionRate > 0 && snapshot.CompletionRate < rule.MinCompletionRate {
		return false
	}
	if rule.MaxResponseHours > 0 {
		if snapshot.AverageResponseTime <= 0 || snapshot.AverageResponseTime > rule.MaxResponseHours {
			return false
		}
	}
	if rule.MinReviews > 0 && reviews.Count < rule.MinReviews {
		return false
	}
	if rule.MinReviewRating > 0 && reviews.AverageRating < rule.MinReviewRating {
		return false
	}
	if rule.MinQualityRating > 0 && reviews.AverageQuality < rule.MinQualityRating {
		return false
	}
	if rule.MinCommunicationRating > 0 && reviews.AverageCommunication < rule.MinCommunicationRating {
		return false
	}
	if rule.MinTimelinessRating > 0 && reviews.AverageTimeliness < rule.MinTimelinessRating {
		return false
	}
	return true
}
