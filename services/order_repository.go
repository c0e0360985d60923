package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// OrderFilter narrows down an order listing
type OrderFilter struct {
	Status models.OrderStatus
	Page   int
	Limit  int
	Sort   string // newest (default) or oldest
}

// Normalize applies paging defaults and validates the status and sort
func (f *OrderFilter) Normalize() error {
	if f.Status != "" && !f.Status.IsValid() {
		return utils.NewValidationError("INVALID_STATUS", "unknown order status %q", f.Status)
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	switch f.Sort {
	case "", "newest":
		f.Sort = "newest"
	case "oldest":
	default:
		return utils.NewValidationError("INVALID_SORT", "sort must be newest or oldest")
	}
	return nil
}

// OrderRepository reads and writes orders and their owned rows
type OrderRepository struct {
	db *gorm.DB
}

// NewOrderRepository creates a repository on db
func NewOrderRepository(db *gorm.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func errOrderNotFound(orderID uint) error {
	return utils.NewNotFoundError("ORDER_NOT_FOUND", "order %d not found", orderID)
}

// FindByID loads an order with its parties, revisions, messages and timeline
func (r *OrderRepository) FindByID(ctx context.Context, orderID uint) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Tailor").
		Preload("Revisions", func(db *gorm.DB) *gorm.DB {
			return db.Order("revision_number ASC")
		}).
		Preload("Messages", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC, id ASC")
		}).
		Preload("Messages.Sender").
		Preload("Timeline", func(db *gorm.DB) *gorm.DB {
			return db.Order("recorded_at ASC, id ASC")
		}).
		First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrderNotFound(orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// findHeader loads the order row alone
func (r *OrderRepository) findHeader(db *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	if err := db.First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrderNotFound(orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// loadForUpdate loads the order with the revisions a mutation may touch
func (r *OrderRepository) loadForUpdate(tx *gorm.DB, orderID uint) (*models.Order, error) {
	var order models.Order
	err := tx.Preload("Revisions", func(db *gorm.DB) *gorm.DB {
		return db.Order("revision_number ASC")
	}).First(&order, orderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errOrderNotFound(orderID)
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}
	return &order, nil
}

// create inserts a new order and its initial timeline
func (r *OrderRepository) create(tx *gorm.DB, order *models.Order) error {
	if err := tx.Omit(clause.Associations).Create(order).Error; err != nil {
		return fmt.Errorf("failed to create order: %w", err)
	}
	return r.appendTimeline(tx, order)
}

// save writes the order if it still carries prevVersion, then its revisions
// and any new timeline entries
func (r *OrderRepository) save(tx *gorm.DB, order *models.Order, prevVersion int) error {
	order.Version = prevVersion + 1
	res := tx.Model(order).
		Where("version = ?", prevVersion).
		Select("*").
		Omit(clause.Associations, "CreatedAt").
		Updates(order)
	if res.Error != nil {
		return fmt.Errorf("failed to update order: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		order.Version = prevVersion
		return utils.NewConflictError("ORDER_MODIFIED", "order %d was modified concurrently, reload and retry", order.ID)
	}

	for i := range order.Revisions {
		revision := &order.Revisions[i]
		revision.OrderID = order.ID
		if err := tx.Save(revision).Error; err != nil {
			return fmt.Errorf("failed to save revision #%d: %w", revision.RevisionNumber, err)
		}
	}

	return r.appendTimeline(tx, order)
}

func (r *OrderRepository) appendTimeline(tx *gorm.DB, order *models.Order) error {
	for i := range order.Timeline {
		entry := &order.Timeline[i]
		if entry.ID != 0 {
			continue
		}
		entry.OrderID = order.ID
		if err := tx.Create(entry).Error; err != nil {
			return fmt.Errorf("failed to record timeline entry: %w", err)
		}
	}
	return nil
}

// List returns one page of the orders visible to actor and the total match count
func (r *OrderRepository) List(ctx context.Context, actor models.Actor, filter OrderFilter) ([]models.Order, int64, error) {
	if err := filter.Normalize(); err != nil {
		return nil, 0, err
	}

	var visible func(db *gorm.DB) *gorm.DB
	switch actor.Role {
	case models.RoleCustomer:
		visible = func(db *gorm.DB) *gorm.DB { return db.Where("customer_id = ?", actor.UserID) }
	case models.RoleTailor:
		visible = func(db *gorm.DB) *gorm.DB { return db.Where("tailor_id = ?", actor.UserID) }
	case models.RoleAdmin:
		visible = func(db *gorm.DB) *gorm.DB { return db }
	default:
		return nil, 0, utils.NewAuthorizationError("FORBIDDEN", "role %q cannot list orders", actor.Role)
	}
	byStatus := func(db *gorm.DB) *gorm.DB {
		if filter.Status == "" {
			return db
		}
		return db.Where("status = ?", filter.Status)
	}

	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Order{}).Scopes(visible, byStatus).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count orders: %w", err)
	}

	orderBy := "created_at DESC, id DESC"
	if filter.Sort == "oldest" {
		orderBy = "created_at ASC, id ASC"
	}

	var orders []models.Order
	err := r.db.WithContext(ctx).
		Scopes(visible, byStatus).
		Preload("Customer").
		Preload("Tailor").
		Order(orderBy).
		Offset((filter.Page - 1) * filter.Limit).
		Limit(filter.Limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list orders: %w", err)
	}
	return orders, total, nil
}

// Timeline returns the audit trail of an order, oldest first
func (r *OrderRepository) Timeline(ctx context.Context, orderID uint) ([]models.TimelineEntry, error) {
	var entries []models.TimelineEntry
	if err := r.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("recorded_at ASC, id ASC").
		Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("failed to load timeline: %w", err)
	}
	return entries, nil
}
