package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kendall-kelly/stitchwise-api/logging"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/utils"
	"gorm.io/gorm"
)

// OrderService runs the order lifecycle and the revision workflow.
//
// Every mutation holds the order lock, loads the order inside a transaction,
// applies the domain change and writes the order, its tailor counters and its
// outbox events in that same transaction.
type OrderService struct {
	db     *gorm.DB
	orders *OrderRepository
	ledger *ReputationLedger
	locker OrderLocker
	policy StatusPolicy
	logger *slog.Logger
	now    func() time.Time
}

var orderServiceInstance *OrderService

// NewOrderService wires the order engine
func NewOrderService(db *gorm.DB, ledger *ReputationLedger, locker OrderLocker, policy StatusPolicy, logger *slog.Logger) *OrderService {
	return &OrderService{
		db:     db,
		orders: NewOrderRepository(db),
		ledger: ledger,
		locker: locker,
		policy: policy,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// GetOrderService returns the service registered at startup
func GetOrderService() *OrderService {
	return orderServiceInstance
}

// SetOrderService registers the order service (also used by tests)
func SetOrderService(service *OrderService) {
	orderServiceInstance = service
}

// Ledger returns the reputation ledger the service updates
func (s *OrderService) Ledger() *ReputationLedger {
	return s.ledger
}

// CreateOrderInput carries the commercial terms of a new order
type CreateOrderInput struct {
	TailorID                uint
	ServiceType             string
	GarmentType             string
	Quantity                int
	MeasurementID           *uint
	BasePrice               *float64
	FabricCost              float64
	AdditionalCharges       float64
	Discount                float64
	TotalPrice              *float64
	Notes                   string
	EstimatedCompletionDate *time.Time
}

func (in *CreateOrderInput) validate() error {
	if in.TailorID == 0 {
		return utils.NewValidationError("TAILOR_REQUIRED", "tailor is required")
	}
	if strings.TrimSpace(in.ServiceType) == "" {
		return utils.NewValidationError("SERVICE_TYPE_REQUIRED", "service type is required")
	}
	if strings.TrimSpace(in.GarmentType) == "" {
		return utils.NewValidationError("GARMENT_TYPE_REQUIRED", "garment type is required")
	}
	if in.BasePrice == nil {
		return utils.NewValidationError("BASE_PRICE_REQUIRED", "base price is required")
	}
	if in.Quantity < 0 {
		return utils.NewValidationError("INVALID_QUANTITY", "quantity must be at least 1")
	}
	if in.Quantity == 0 {
		in.Quantity = 1
	}
	if err := validatePrices(in.BasePrice, &in.FabricCost, &in.AdditionalCharges, &in.Discount, in.TotalPrice); err != nil {
		return err
	}
	return validateDiscount(*in.BasePrice, in.Quantity, in.FabricCost, in.AdditionalCharges, in.Discount)
}

func validatePrices(values ...*float64) error {
	for _, v := range values {
		if v != nil && *v < 0 {
			return utils.NewValidationError("INVALID_PRICE", "prices cannot be negative")
		}
	}
	return nil
}

// validateDiscount keeps the discount within the pre-discount total
func validateDiscount(basePrice float64, quantity int, fabricCost, additionalCharges, discount float64) error {
	subtotal := basePrice*float64(quantity) + fabricCost + additionalCharges
	if discount > subtotal {
		return utils.NewValidationError("DISCOUNT_TOO_LARGE", "discount %.2f exceeds the order subtotal %.2f", discount, subtotal)
	}
	return nil
}

// orderChange is the working state of one mutation
type orderChange struct {
	order  *models.Order
	actor  models.Actor
	at     time.Time
	events []OrderEvent
}

func (c *orderChange) emit(eventType string, modify func(*OrderEvent)) {
	event := newOrderEvent(eventType, c.order, c.at)
	if modify != nil {
		modify(&event)
	}
	c.events = append(c.events, event)
}

func (c *orderChange) setStatus(status models.OrderStatus, description string) bool {
	return c.order.SetStatus(status, description, &c.actor.UserID, c.at)
}

func writeEvents(tx *gorm.DB, events []OrderEvent) error {
	for _, event := range events {
		row, err := event.outboxRow()
		if err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to store %s event: %w", event.Type, err)
		}
	}
	return nil
}

// Create opens a new order from a customer to a tailor
func (s *OrderService) Create(ctx context.Context, actor models.Actor, in CreateOrderInput) (*models.Order, error) {
	if actor.Role != models.RoleCustomer {
		return nil, utils.NewAuthorizationError("ONLY_CUSTOMERS", "only customers can create orders")
	}
	if err := in.validate(); err != nil {
		return nil, err
	}

	at := s.now()
	order := &models.Order{
		OrderNumber:             GenerateOrderNumber(at),
		CustomerID:              actor.UserID,
		TailorID:                in.TailorID,
		ServiceType:             strings.TrimSpace(in.ServiceType),
		GarmentType:             strings.TrimSpace(in.GarmentType),
		Quantity:                in.Quantity,
		MeasurementID:           in.MeasurementID,
		BasePrice:               *in.BasePrice,
		FabricCost:              in.FabricCost,
		AdditionalCharges:       in.AdditionalCharges,
		Discount:                in.Discount,
		Notes:                   in.Notes,
		EstimatedCompletionDate: in.EstimatedCompletionDate,
		Version:                 1,
	}
	if in.TotalPrice != nil {
		order.TotalPrice = *in.TotalPrice
	} else {
		order.TotalPrice = models.ComputeTotalPrice(order.BasePrice, order.Quantity, order.FabricCost, order.AdditionalCharges, order.Discount)
	}
	order.SetStatus(models.OrderStatusPending, "Order created", &actor.UserID, at)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.ledger.ActiveTailor(tx, in.TailorID); err != nil {
			return err
		}
		if err := s.orders.create(tx, order); err != nil {
			return err
		}
		if err := s.ledger.RecordOrderCreated(tx, in.TailorID); err != nil {
			return err
		}
		return writeEvents(tx, []OrderEvent{newOrderEvent(models.EventOrderCreated, order, at)})
	})
	if err != nil {
		return nil, err
	}

	logging.FromContext(ctx, s.logger).Info("order created",
		"order_id", order.ID,
		"order_number", order.OrderNumber,
		"customer_id", order.CustomerID,
		"tailor_id", order.TailorID,
		"total_price", order.TotalPrice,
	)
	return s.orders.FindByID(ctx, order.ID)
}

// mutate runs fn against the locked order and persists the result
func (s *OrderService) mutate(ctx context.Context, actor models.Actor, orderID uint, fn func(c *orderChange) error) (*models.Order, error) {
	unlock, err := s.locker.Lock(ctx, orderID)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var (
		prevStatus models.OrderStatus
		newStatus  models.OrderStatus
		awarded    []models.TailorBadge
	)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := s.orders.loadForUpdate(tx, orderID)
		if err != nil {
			return err
		}
		prevVersion := order.Version
		prevStatus = order.Status

		change := &orderChange{order: order, actor: actor, at: s.now()}
		if err := fn(change); err != nil {
			return err
		}
		newStatus = order.Status

		if newStatus != prevStatus {
			change.emit(models.EventOrderStatusChanged, func(e *OrderEvent) { e.PreviousStatus = prevStatus })
		}
		if newStatus == models.OrderStatusCompleted && prevStatus != models.OrderStatusCompleted {
			if order.ActualCompletionDate == nil {
				order.ActualCompletionDate = &change.at
			}
			awarded, err = s.ledger.RecordCompletion(tx, order, change.at)
			if err != nil {
				return err
			}
			change.emit(models.EventOrderCompleted, nil)
			for _, badge := range awarded {
				change.emit(models.EventBadgeAwarded, func(e *OrderEvent) { e.Badge = badge.Type })
			}
		}

		if err := s.orders.save(tx, order, prevVersion); err != nil {
			return err
		}
		return writeEvents(tx, change.events)
	})
	if err != nil {
		return nil, err
	}

	logger := logging.FromContext(ctx, s.logger)
	if newStatus != prevStatus {
		logger.Info("order status changed",
			"order_id", orderID,
			"from", prevStatus,
			"to", newStatus,
			"actor_id", actor.UserID,
		)
	}
	for _, badge := range awarded {
		logger.Info("badge awarded", "order_id", orderID, "badge", badge.Type)
	}

	return s.orders.FindByID(ctx, orderID)
}

func requireParty(order *models.Order, actor models.Actor) error {
	if !order.IsParty(actor.UserID) {
		return utils.NewAuthorizationError("NOT_ORDER_PARTY", "you are not a party to this order")
	}
	return nil
}

func requireTailor(order *models.Order, actor models.Actor) error {
	if order.TailorID != actor.UserID {
		return utils.NewAuthorizationError("ONLY_TAILOR", "only the tailor of this order can do this")
	}
	return nil
}

func requireCustomer(order *models.Order, actor models.Actor) error {
	if order.CustomerID != actor.UserID {
		return utils.NewAuthorizationError("ONLY_CUSTOMER", "only the customer of this order can do this")
	}
	return nil
}

func requireOpen(order *models.Order) error {
	if order.IsClosed() {
		return utils.NewConflictError("ORDER_CLOSED", "order is already %s", order.Status)
	}
	return nil
}

// canView reports whether actor may read the order
func canView(order *models.Order, actor models.Actor) error {
	if actor.Role == models.RoleAdmin {
		return nil
	}
	return requireParty(order, actor)
}

// ScheduleConsultationInput books the consultation
type ScheduleConsultationInput struct {
	Date  *time.Time
	Type  string
	Link  string
	Notes string
}

// ScheduleConsultation books a consultation. A pending order moves to
// consultation_scheduled; booking over an earlier date marks it rescheduled.
func (s *OrderService) ScheduleConsultation(ctx context.Context, actor models.Actor, orderID uint, in ScheduleConsultationInput) (*models.Order, error) {
	return s.mutate(ctx, actor, orderID, func(c *orderChange) error {
		if err := requireParty(c.order, actor); err != nil {
			return err
		}
		if err := requireOpen(c.order); err != nil {
			return err
		}
		if in.Date == nil {
			return utils.NewValidationError("CONSULTATION_DATE_REQUIRED", "consultation date is required")
		}

		status := models.ConsultationScheduled
		if c.order.Consultation.Date != nil {
			status = models.ConsultationRescheduled
		}
		c.order.Consultation = models.Consultation{
			Date:   in.Date,
			Type:   in.Type,
			Status: status,
			Link:   in.Link,
			Notes:  in.Notes,
		}
		if c.order.Status == models.OrderStatusPending {
			c.setStatus(models.OrderStatusConsultationScheduled, "Consultation scheduled")
		}
		return nil
	})
}

// UpdateConsultationStatus records the outcome of the consultation
func (s *OrderService) UpdateConsultationStatus(ctx context.Context, actor models.Actor, orderID uint, status models.ConsultationStatus) (*models.Order, error) {
	return s.mutate(ctx, actor, orderID, func(c *orderChange) error {
		if err := requireParty(c.order, actor); err != nil {
			return err
		}
		if err := requireOpen(c.order); err != nil {
			return err
		}
		if !status.IsValid() {
			return utils.NewValidationError("INVALID_CONSULTATION_STATUS", "unknown consultation status %q", status)
		}
		if c.order.Consultation.Date == nil {
			return utils.NewValidationError("CONSULTATION_NOT_SCHEDULED", "no consultation has been scheduled")
		}

		c.order.Consultation.Status = status
		if status == models.ConsultationCompleted && c.order.Status == models.OrderStatusConsultationScheduled {
			c.setStatus(models.OrderStatusConsultationCompleted, "Consultation completed")
		}
		return nil
	})
}

// UpdateFabric records the tailor's fabric choice and moves the order to fabric_selected
func (s *OrderService) UpdateFabric(ctx context.Context, actor models.Actor, orderID uint, fabric models.FabricDetails) (*models.Order, error) {
	return s.mutate(ctx, actor, orderID, func(c *orderChange) error {
		if err := requireTailor(c.order, actor); err != nil {
			return err
		}
		if err := requireOpen(c.order); err != nil {
			return err
		}
		if strings.TrimSpace(fabric.Type) == "" {
			return utils.NewValidationError("FABRIC_TYPE_REQUIRED", "fabric type is required")
		}
		if fabric.Quantity < 0 {
			return utils.NewValidationError("INVALID_FABRIC_QUANTITY", "fabric quantity cannot be negative")
		}

		c.order.Fabric = fabric
		c.order.FabricSelected = true
		c.setStatus(models.OrderStatusFabricSelected, "Fabric selected")
		return nil
	})
}

// UpdatePricingInput changes the commercial terms. Nil fields are left alone.
type UpdatePricingInput struct {
	BasePrice               *float64
	FabricCost              *float64
	AdditionalCharges       *float64
	Discount                *float64
	TotalPrice              *float64
	EstimatedCompletionDate *time.Time
}

func (in UpdatePricingInput) empty() bool {
	return in.BasePrice == nil && in.FabricCost == nil && in.AdditionalCharges == nil &&
		in.Discount == nil && in.TotalPrice == nil && in.EstimatedCompletionDate == nil
}

// UpdatePricing lets the tailor adjust price components. The total only changes when supplied.
func (s *OrderService) UpdatePricing(ctx context.Context, actor models.Actor, orderID uint, in UpdatePricingInput) (*models.Order, error) {
	return s.mutate(ctx, actor, orderID, func(c *orderChange) error {
		if err := requireTailor(c.order, actor); err != nil {
			return err
		}
		if err := requireOpen(c.order); err != nil {
			return err
		}
		if in.empty() {
			return utils.NewValidationError("NO_CHANGES", "no pricing fields were provided")
		}
		if err := validatePrices(in.BasePrice, in.FabricCost, in.AdditionalCharges, in.Discount, in.TotalPrice); err != nil {
			return err
		}

		if in.BasePrice != nil {
			c.order.BasePrice = *in.BasePrice
		}
		if in.FabricCost != nil {
			c.order.FabricCost = *in.FabricCost
		}
		if in.AdditionalCharges != nil {
			c.order.AdditionalCharges = *in.AdditionalCharges
		}
		if in.Discount != nil {
			c.order.Discount = *in.Discount
		}
		if in.TotalPrice != nil {
			c.order.TotalPrice = *in.TotalPrice
		}
		if in.EstimatedCompletionDate != nil {
			c.order.EstimatedCompletionDate = in.EstimatedCompletionDate
		}
		return validateDiscount(c.order.BasePrice, c.order.Quantity, c.order.FabricCost, c.order.AdditionalCharges, c.order.Discount)
	})
}

// UpdateOrderStatus sets the status directly. Moving to completed records the
// completion on the tailor's reputation.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, actor models.Actor, orderID uint, status models.OrderStatus, notes string) (*models.Order, error) {
	return s.mutate(ctx, actor, orderID, func(c *orderChange) error {
		if err := requireParty(c.order, actor); err != nil {
			return err
		}
		if err := s.policy.Check(c.order.Status, status, actor.Role); err != nil {
			return err
		}

		description := notes
		if description == "" {
			description = fmt.Sprintf("Status changed to %s", status)
		}
		c.setStatus(status, description)
		return nil
	})
}

// AddRevision lets the customer request a change. The order moves to revision_requested.
func (s *OrderService) AddRevision(ctx context.Context, actor models.Actor, orderID uint, description string, images []string) (*models.Order, error) {
	return s.mutate(ctx, actor, orderID, func(c *orderChange) error {
		if err := requireCustomer(c.order, actor); err != nil {
			return err
		}
		if err := requireOpen(c.order); err != nil {
			return err
		}
		if strings.TrimSpace(description) == "" {
			return utils.NewValidationError("DESCRIPTION_REQUIRED", "revision description is required")
		}

		revision := c.order.AddRevision(models.RoleCustomer, description, images, c.at)
		number := revision.RevisionNumber
		c.setStatus(models.OrderStatusRevisionRequested, fmt.Sprintf("Revision #%d requested", number))
		c.emit(models.EventRevisionRequested, func(e *OrderEvent) { e.RevisionNumber = number })
		return nil
	})
}

// reviseRevision runs step on one revision of an open order after authorize passes
func (s *OrderService) reviseRevision(ctx context.Context, actor models.Actor, orderID uint, number int,
	authorize func(*models.Order, models.Actor) error, step func(c *orderChange, revision *models.Revision) error) (*models.Order, error) {
	return s.mutate(ctx, actor, orderID, func(c *orderChange) error {
		if err := authorize(c.order, actor); err != nil {
			return err
		}
		if err := requireOpen(c.order); err != nil {
			return err
		}
		revision := c.order.RevisionByNumber(number)
		if revision == nil {
			return utils.NewNotFoundError("REVISION_NOT_FOUND", "revision #%d not found", number)
		}
		return step(c, revision)
	})
}

// ApproveRevision accepts a pending revision and puts the order back in progress
func (s *OrderService) ApproveRevision(ctx context.Context, actor models.Actor, orderID uint, number int, notes string) (*models.Order, error) {
	return s.reviseRevision(ctx, actor, orderID, number, requireTailor, func(c *orderChange, revision *models.Revision) error {
		if err := revision.Approve(actor.UserID, notes, c.at); err != nil {
			return err
		}
		c.setStatus(models.OrderStatusInProgress, fmt.Sprintf("Revision #%d approved", number))
		return nil
	})
}

// RejectRevision declines a pending revision. The order returns to in_progress
// once no pending revision is left.
func (s *OrderService) RejectRevision(ctx context.Context, actor models.Actor, orderID uint, number int, reason string) (*models.Order, error) {
	return s.reviseRevision(ctx, actor, orderID, number, requireTailor, func(c *orderChange, revision *models.Revision) error {
		if err := revision.Reject(actor.UserID, reason, c.at); err != nil {
			return err
		}
		if c.order.Status == models.OrderStatusRevisionRequested && !c.order.HasRevisionIn(models.RevisionStatusPending) {
			c.setStatus(models.OrderStatusInProgress, fmt.Sprintf("Revision #%d rejected", number))
		}
		return nil
	})
}

// StartRevision begins work on an approved revision
func (s *OrderService) StartRevision(ctx context.Context, actor models.Actor, orderID uint, number int) (*models.Order, error) {
	return s.reviseRevision(ctx, actor, orderID, number, requireTailor, func(c *orderChange, revision *models.Revision) error {
		if err := revision.Start(c.at); err != nil {
			return err
		}
		c.setStatus(models.OrderStatusInProgress, fmt.Sprintf("Work started on revision #%d", number))
		return nil
	})
}

// revisionsResolvedForReview are the statuses that no longer need tailor work
var revisionsResolvedForReview = []models.RevisionStatus{
	models.RevisionStatusCompleted,
	models.RevisionStatusRejected,
	models.RevisionStatusCustomerApproved,
	models.RevisionStatusCustomerRejected,
}

// revisionsResolvedForCompletion are the statuses an order can be completed with
var revisionsResolvedForCompletion = []models.RevisionStatus{
	models.RevisionStatusCustomerApproved,
	models.RevisionStatusRejected,
	models.RevisionStatusCustomerRejected,
}

// CompleteRevision finishes the work on a revision. When no revision needs
// tailor work any more the order enters quality_check.
func (s *OrderService) CompleteRevision(ctx context.Context, actor models.Actor, orderID uint, number int, images []string, notes string) (*models.Order, error) {
	return s.reviseRevision(ctx, actor, orderID, number, requireTailor, func(c *orderChange, revision *models.Revision) error {
		if err := revision.Complete(actor.UserID, images, notes, c.at); err != nil {
			return err
		}
		if c.order.AllRevisionsIn(revisionsResolvedForReview...) {
			c.order.QualityCheck = models.QualityCheck{
				Passed:      true,
				CheckedByID: &actor.UserID,
				CheckedAt:   &c.at,
				Notes:       notes,
			}
			c.setStatus(models.OrderStatusQualityCheck, "All revisions completed, awaiting customer approval")
		}
		return nil
	})
}

// CustomerApproveRevision accepts the finished work. The order completes once
// every revision is settled and it is waiting in quality_check.
func (s *OrderService) CustomerApproveRevision(ctx context.Context, actor models.Actor, orderID uint, number int) (*models.Order, error) {
	return s.reviseRevision(ctx, actor, orderID, number, requireCustomer, func(c *orderChange, revision *models.Revision) error {
		if err := revision.CustomerApprove(c.at); err != nil {
			return err
		}
		if c.order.Status == models.OrderStatusQualityCheck && c.order.AllRevisionsIn(revisionsResolvedForCompletion...) {
			if c.order.QualityCheck.CheckedAt == nil {
				c.order.QualityCheck = models.QualityCheck{
					Passed:      true,
					CheckedByID: &actor.UserID,
					CheckedAt:   &c.at,
				}
			}
			c.setStatus(models.OrderStatusCompleted, "Order completed")
		}
		return nil
	})
}

// CustomerRejectRevision refuses the finished work and opens a follow-up revision
func (s *OrderService) CustomerRejectRevision(ctx context.Context, actor models.Actor, orderID uint, number int, reason string) (*models.Order, error) {
	return s.reviseRevision(ctx, actor, orderID, number, requireCustomer, func(c *orderChange, revision *models.Revision) error {
		if err := revision.CustomerReject(reason, c.at); err != nil {
			return err
		}

		next := c.order.CurrentRevision + 1
		revision.SupersededBy = &next

		description := reason
		if strings.TrimSpace(description) == "" {
			description = fmt.Sprintf("Rework of revision #%d", number)
		}
		// AddRevision may reallocate the slice, so revision is not used past this point.
		c.order.AddRevision(models.RoleCustomer, description, nil, c.at)
		c.order.QualityCheck = models.QualityCheck{}

		c.setStatus(models.OrderStatusRevisionRequested, fmt.Sprintf("Revision #%d rejected by customer, revision #%d requested", number, next))
		c.emit(models.EventRevisionRequested, func(e *OrderEvent) { e.RevisionNumber = next })
		return nil
	})
}

// GetOrder returns the full order when actor may see it
func (s *OrderService) GetOrder(ctx context.Context, actor models.Actor, orderID uint) (*models.Order, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := canView(order, actor); err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders pages through the orders visible to actor
func (s *OrderService) ListOrders(ctx context.Context, actor models.Actor, filter OrderFilter) ([]models.Order, int64, error) {
	return s.orders.List(ctx, actor, filter)
}

// GetTimeline returns the status history of an order
func (s *OrderService) GetTimeline(ctx context.Context, actor models.Actor, orderID uint) ([]models.TimelineEntry, error) {
	order, err := s.orders.findHeader(s.db.WithContext(ctx), orderID)
	if err != nil {
		return nil, err
	}
	if err := canView(order, actor); err != nil {
		return nil, err
	}
	return s.orders.Timeline(ctx, orderID)
}

// AddMessage appends a message to the order conversation. Messages are
// allowed on closed orders and do not change the order version.
func (s *OrderService) AddMessage(ctx context.Context, actor models.Actor, orderID uint, text string, attachments []string) (*models.Message, error) {
	db := s.db.WithContext(ctx)
	order, err := s.orders.findHeader(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireParty(order, actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, utils.NewValidationError("MESSAGE_TEXT_REQUIRED", "message text is required")
	}

	message := models.Message{
		OrderID:     order.ID,
		SenderID:    actor.UserID,
		Text:        text,
		Attachments: attachments,
		CreatedAt:   s.now(),
	}
	if err := db.Omit("Sender").Create(&message).Error; err != nil {
		return nil, fmt.Errorf("failed to create message: %w", err)
	}
	if err := db.Preload("Sender").First(&message, message.ID).Error; err != nil {
		return nil, fmt.Errorf("failed to load message: %w", err)
	}

	logging.FromContext(ctx, s.logger).Debug("message added", "order_id", orderID, "message_id", message.ID, "sender_id", actor.UserID)
	return &message, nil
}

// MarkMessageRead flags a message as read by the other party. Reading your own
// message or an already read one changes nothing.
func (s *OrderService) MarkMessageRead(ctx context.Context, actor models.Actor, orderID, messageID uint) (*models.Message, error) {
	db := s.db.WithContext(ctx)
	order, err := s.orders.findHeader(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := requireParty(order, actor); err != nil {
		return nil, err
	}

	var message models.Message
	if err := db.Preload("Sender").Where("order_id = ?", orderID).First(&message, messageID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.NewNotFoundError("MESSAGE_NOT_FOUND", "message %d not found", messageID)
		}
		return nil, fmt.Errorf("failed to load message: %w", err)
	}

	if message.MarkRead(actor.UserID, s.now()) {
		if err := db.Model(&message).Select("read", "read_at").Updates(&message).Error; err != nil {
			return nil, fmt.Errorf("failed to mark message read: %w", err)
		}
	}
	return &message, nil
}

// ListMessages returns the conversation of an order, oldest first
func (s *OrderService) ListMessages(ctx context.Context, actor models.Actor, orderID uint) ([]models.Message, error) {
	db := s.db.WithContext(ctx)
	order, err := s.orders.findHeader(db, orderID)
	if err != nil {
		return nil, err
	}
	if err := canView(order, actor); err != nil {
		return nil, err
	}

	var messages []models.Message
	if err := db.Where("order_id = ?", orderID).
		Preload("Sender").
		Order("created_at ASC, id ASC").
		Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}
