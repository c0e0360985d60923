package models

// OrderStatus is the top-level lifecycle state of an order
type OrderStatus string

const (
	OrderStatusPending               OrderStatus = "pending"
	OrderStatusConsultationScheduled OrderStatus = "consultation_scheduled"
	OrderStatusConsultationCompleted OrderStatus = "consultation_completed"
	OrderStatusFabricSelected        OrderStatus = "fabric_selected"
	OrderStatusInProgress            OrderStatus = "in_progress"
	OrderStatusRevisionRequested     OrderStatus = "revision_requested"
	OrderStatusQualityCheck          OrderStatus = "quality_check"
	OrderStatusCompleted             OrderStatus = "completed"
	OrderStatusCancelled             OrderStatus = "cancelled"
)

// OrderStatuses lists every valid order status in lifecycle order
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusConsultationScheduled,
	OrderStatusConsultationCompleted,
	OrderStatusFabricSelected,
	OrderStatusInProgress,
	OrderStatusRevisionRequested,
	OrderStatusQualityCheck,
	OrderStatusCompleted,
	OrderStatusCancelled,
}

// IsValid reports whether s is one of the nine order statuses
func (s OrderStatus) IsValid() bool {
	for _, status := range OrderStatuses {
		if s == status {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further lifecycle change is allowed
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// ParseOrderStatus converts raw input into an OrderStatus
func ParseOrderStatus(value string) (OrderStatus, bool) {
	status := OrderStatus(value)
	return status, status.IsValid()
}

// ConsultationStatus tracks the consultation sub-state
type ConsultationStatus string

const (
	ConsultationScheduled   ConsultationStatus = "scheduled"
	ConsultationCompleted   ConsultationStatus = "completed"
	ConsultationRescheduled ConsultationStatus = "rescheduled"
)

// IsValid reports whether s is a known consultation status
func (s ConsultationStatus) IsValid() bool {
	switch s {
	case ConsultationScheduled, ConsultationCompleted, ConsultationRescheduled:
		return true
	}
	return false
}
