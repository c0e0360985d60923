package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReputationLedger owns the reputation counters and badge set of tailors.
// Methods taking a *gorm.DB run inside the caller's transaction.
type ReputationLedger struct {
	db        *gorm.DB
	evaluator *BadgeEvaluator
	reviews   *ReviewStore
	logger    *slog.Logger
}

// NewReputationLedger creates a ledger backed by db
func NewReputationLedger(db *gorm.DB, evaluator *BadgeEvaluator, reviews *ReviewStore, logger *slog.Logger) *ReputationLedger {
	return &ReputationLedger{
		db:        db,
		evaluator: evaluator,
		reviews:   reviews,
		logger:    logger,
	}
}

// CompletionRate returns completed/total as a percentage rounded to two decimals
func CompletionRate(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*10000) / 100
}

// Profile loads the reputation record of a tailor with its badges
func (l *ReputationLedger) Profile(ctx context.Context, tailorID uint) (*models.TailorProfile, error) {
	return l.findProfile(l.db.WithContext(ctx), tailorID)
}

// ActiveTailor returns the profile of tailorID when it belongs to an active tailor account
func (l *ReputationLedger) ActiveTailor(tx *gorm.DB, tailorID uint) (*models.TailorProfile, error) {
	var user models.User
	if err := tx.First(&user, tailorID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewValidationError("TAILOR_NOT_FOUND", "tailor %d does not exist", tailorID)
		}
		return nil, fmt.Errorf("failed to load tailor: %w", err)
	}
	if user.Role != models.RoleTailor {
		return nil, utils.NewValidationError("NOT_A_TAILOR", "user %d is not a tailor", tailorID)
	}

	var profile models.TailorProfile
	if err := tx.Where("user_id = ?", tailorID).First(&profile).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewValidationError("TAILOR_NOT_ACTIVE", "tailor %d has no active profile", tailorID)
		}
		return nil, fmt.Errorf("failed to load tailor profile: %w", err)
	}
	if !profile.Active {
		return nil, utils.NewValidationError("TAILOR_NOT_ACTIVE", "tailor %d is not accepting orders", tailorID)
	}
	return &profile, nil
}

// RecordOrderCreated counts a new order against the tailor
func (l *ReputationLedger) RecordOrderCreated(tx *gorm.DB, tailorID uint) error {
	res := tx.Model(&models.TailorProfile{}).
		Where("user_id = ?", tailorID).
		Update("total_orders", gorm.Expr("total_orders + 1"))
	if res.Error != nil {
		return fmt.Errorf("failed to increment total orders: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return utils.NewNotFoundError("TAILOR_NOT_FOUND", "tailor profile %d not found", tailorID)
	}

	profile, err := l.findProfile(tx, tailorID)
	if err != nil {
		return err
	}
	return l.saveRate(tx, profile)
}

// RecordCompletion counts a completed order, recomputes the completion rate and
// awards any newly earned badges. It returns the badges awarded by this call.
func (l *ReputationLedger) RecordCompletion(tx *gorm.DB, order *models.Order, at time.Time) ([]models.TailorBadge, error) {
	res := tx.Model(&models.TailorProfile{}).
		Where("user_id = ?", order.TailorID).
		Update("completed_orders", gorm.Expr("completed_orders + 1"))
	if res.Error != nil {
		return nil, fmt.Errorf("failed to increment completed orders: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, utils.NewNotFoundError("TAILOR_NOT_FOUND", "tailor profile %d not found", order.TailorID)
	}

	profile, err := l.findProfile(tx, order.TailorID)
	if err != nil {
		return nil, err
	}
	if err := l.saveRate(tx, profile); err != nil {
		return nil, err
	}

	return l.awardBadges(tx, profile, &order.ID, at)
}

// Rebuild recomputes a tailor's counters from order history and re-runs the
// badge rules. Badges are never removed. The profile row stays locked while
// counting so order creations and completions of this tailor wait for the rebuild.
func (l *ReputationLedger) Rebuild(ctx context.Context, tailorID uint) (*models.TailorProfile, []models.TailorBadge, error) {
	var (
		profile *models.TailorProfile
		awarded []models.TailorBadge
	)

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProfile(tx, tailorID); err != nil {
			return err
		}

		var total, completed int64
		if err := tx.Model(&models.Order{}).Where("tailor_id = ?", tailorID).Count(&total).Error; err != nil {
			return fmt.Errorf("failed to count orders: %w", err)
		}
		if err := tx.Model(&models.Order{}).
			Where("tailor_id = ? AND status = ?", tailorID, models.OrderStatusCompleted).
			Count(&completed).Error; err != nil {
			return fmt.Errorf("failed to count completed orders: %w", err)
		}

		res := tx.Model(&models.TailorProfile{}).
			Where("user_id = ?", tailorID).
			Updates(map[string]any{
				"total_orders":     total,
				"completed_orders": completed,
				"completion_rate":  CompletionRate(int(completed), int(total)),
			})
		if res.Error != nil {
			return fmt.Errorf("failed to update tailor counters: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return utils.NewNotFoundError("TAILOR_NOT_FOUND", "tailor profile %d not found", tailorID)
		}

		var err error
		profile, err = l.findProfile(tx, tailorID)
		if err != nil {
			return err
		}
		awarded, err = l.awardBadges(tx, profile, nil, time.Now())
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	logging.FromContext(ctx, l.logger).Info("tailor reputation rebuilt",
		"tailor_id", tailorID,
		"total_orders", profile.TotalOrders,
		"completed_orders", profile.CompletedOrders,
		"badges_awarded", len(awarded),
	)
	return profile, awarded, nil
}

// lockProfile takes the row lock that the counter updates of RecordOrderCreated
// and RecordCompletion also need
func lockProfile(tx *gorm.DB, tailorID uint) error {
	var profile models.TailorProfile
	err := tx.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
		Select("id").
		Where("user_id = ?", tailorID).
		First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.NewNotFoundError("TAILOR_NOT_FOUND", "tailor profile %d not found", tailorID)
		}
		return fmt.Errorf("failed to lock tailor profile: %w", err)
	}
	return nil
}

func (l *ReputationLedger) findProfile(tx *gorm.DB, tailorID uint) (*models.TailorProfile, error) {
	var profile models.TailorProfile
	err := tx.Preload("Badges", func(db *gorm.DB) *gorm.DB {
		return db.Order("awarded_at ASC, id ASC")
	}).Where("user_id = ?", tailorID).First(&profile).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("TAILOR_NOT_FOUND", "tailor profile %d not found", tailorID)
		}
		return nil, fmt.Errorf("failed to load tailor profile: %w", err)
	}
	return &profile, nil
}

func (l *ReputationLedger) saveRate(tx *gorm.DB, profile *models.TailorProfile) error {
	profile.CompletionRate = CompletionRate(profile.CompletedOrders, profile.TotalOrders)
	if err := tx.Model(&models.TailorProfile{}).
		Where("id = ?", profile.ID).
		Update("completion_rate", profile.CompletionRate).Error; err != nil {
		return fmt.Errorf("failed to update completion rate: %w", err)
	}
	return nil
}

// awardBadges unions the evaluator's output into the profile's badge set
func (l *ReputationLedger) awardBadges(tx *gorm.DB, profile *models.TailorProfile, orderID *uint, at time.Time) ([]models.TailorBadge, error) {
	summary, err := l.reviews.Summary(tx, profile.UserID)
	if err != nil {
		return nil, err
	}

	var awarded []models.TailorBadge
	for _, badgeType := range l.evaluator.Evaluate(SnapshotOf(profile), summary) {
		if profile.HasBadge(badgeType) {
			continue
		}

		badge := models.TailorBadge{
			TailorProfileID: profile.ID,
			Type:            badgeType,
			OrderID:         orderID,
			AwardedAt:       at,
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&badge)
		if res.Error != nil {
			return nil, fmt.Errorf("failed to award badge %s: %w", badgeType, res.Error)
		}
		if res.RowsAffected == 0 {
			continue
		}
		profile.Badges = append(profile.Badges, badge)
		awarded = append(awarded, badge)
	}
	return awarded, nil
}
