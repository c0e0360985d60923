package services

import (
	"fmt"

	"github.com/kendall-kelly/stitchwise-api/models"
	"gorm.io/gorm"
)

// ReviewSummary aggregates the reviews a tailor has received
type ReviewSummary struct {
	Count                int
	AverageRating        float64
	AverageQuality       float64
	AverageCommunication float64
	AverageTimeliness    float64
}

// ReviewStore reads review history. Reviews are written by another part of the system.
type ReviewStore struct{}

// NewReviewStore creates a review store
func NewReviewStore() *ReviewStore {
	return &ReviewStore{}
}

// Summary aggregates all reviews of a tailor using db, which may be a transaction
func (s *ReviewStore) Summary(db *gorm.DB, tailorID uint) (ReviewSummary, error) {
	var row struct {
		Count                int
		AverageRating        float64
		AverageQuality       float64
		AverageCommunication float64
		AverageTimeliness    float64
	}

	err := db.Model(&models.Review{}).
		Select(`COUNT(*) AS count,
			COALESCE(AVG(rating), 0) AS average_rating,
			COALESCE(AVG(quality_rating), 0) AS average_quality,
			COALESCE(AVG(communication_rating), 0) AS average_communication,
			COALESCE(AVG(timeliness_rating), 0) AS average_timeliness`).
		Where("tailor_id = ?", tailorID).
		Scan(&row).Error
	if err != nil {
		return ReviewSummary{}, fmt.Errorf("failed to summarize reviews: %w", err)
	}

	return ReviewSummary(row), nil
}
