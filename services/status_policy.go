package services

import (
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/utils"
)

// StatusPolicy decides whether a direct status update is allowed.
//
// In permissive mode any valid status may be set by either party as long as the
// order is still open. Strict mode additionally enforces statusTransitions.
type StatusPolicy struct {
	Strict bool
}

type roleSet []models.Role

var (
	eitherParty = roleSet{models.RoleCustomer, models.RoleTailor}
	tailorOnly  = roleSet{models.RoleTailor}
)

// statusTransitions lists the edges allowed in strict mode and who may take them
var statusTransitions = map[models.OrderStatus]map[models.OrderStatus]roleSet{
	models.OrderStatusPending: {
		models.OrderStatusConsultationScheduled: eitherParty,
		models.OrderStatusFabricSelected:        tailorOnly,
		models.OrderStatusInProgress:            tailorOnly,
		models.OrderStatusCancelled:             eitherParty,
	},
	models.OrderStatusConsultationScheduled: {
		models.OrderStatusConsultationCompleted: eitherParty,
		models.OrderStatusCancelled:             eitherParty,
	},
	models.OrderStatusConsultationCompleted: {
		models.OrderStatusFabricSelected: tailorOnly,
		models.OrderStatusInProgress:     tailorOnly,
		models.OrderStatusCancelled:      eitherParty,
	},
	models.OrderStatusFabricSelected: {
		models.OrderStatusInProgress: tailorOnly,
		models.OrderStatusCancelled:  eitherParty,
	},
	models.OrderStatusInProgress: {
		models.OrderStatusQualityCheck: tailorOnly,
		models.OrderStatusCancelled:    eitherParty,
	},
	models.OrderStatusRevisionRequested: {
		models.OrderStatusInProgress: tailorOnly,
		models.OrderStatusCancelled:  eitherParty,
	},
	models.OrderStatusQualityCheck: {
		models.OrderStatusCompleted:  roleSet{models.RoleCustomer},
		models.OrderStatusInProgress: tailorOnly,
		models.OrderStatusCancelled:  eitherParty,
	},
}

// Check validates moving an order from current to requested on behalf of role
func (p StatusPolicy) Check(current, requested models.OrderStatus, role models.Role) error {
	if !requested.IsValid() {
		return utils.NewValidationError("INVALID_STATUS", "unknown order status %q", requested)
	}
	if current.IsTerminal() {
		return utils.NewConflictError("ORDER_CLOSED", "order is already %s", current)
	}
	if current == requested {
		return utils.NewConflictError("STATUS_UNCHANGED", "order is already %s", current)
	}
	if !p.Strict {
		return nil
	}

	allowed, ok := statusTransitions[current][requested]
	if !ok {
		return utils.NewValidationError("INVALID_TRANSITION", "cannot move order from %s to %s", current, requested)
	}
	for _, r := range allowed {
		if r == role {
			return nil
		}
	}
	return utils.NewAuthorizationError("TRANSITION_NOT_ALLOWED", "%s cannot move order from %s to %s", role, current, requested)
}
