package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/services"
)

// AddRevisionRequest represents the request body for a customer change request
type AddRevisionRequest struct {
	Description string   `json:"description" binding:"required"`
	Images      []string `json:"images"`
}

// RevisionNotesRequest carries the optional text of a revision step
type RevisionNotesRequest struct {
	Notes  string   `json:"notes"`
	Reason string   `json:"reason"`
	Images []string `json:"images"`
}

// bindOptionalJSON binds the body when one was sent
func bindOptionalJSON(c *gin.Context, obj any) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(obj); err != nil {
		respondValidationError(c, err)
		return false
	}
	return true
}

// AddRevision handles POST /api/v1/orders/:id/revisions (customer only)
func AddRevision(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req AddRevisionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.GetOrderService().AddRevision(c.Request.Context(), actor, orderID, req.Description, req.Images)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, order)
}

// revisionStep is one of the service operations on a numbered revision
type revisionStep func(c *gin.Context, actor models.Actor, orderID uint, number int, req RevisionNotesRequest) (*models.Order, error)

// handleRevisionStep parses :id, :number and the optional body, then runs step
func handleRevisionStep(step revisionStep) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		orderID, ok := orderIDParam(c)
		if !ok {
			return
		}
		number, ok := uintParam(c, "number", "INVALID_REVISION_NUMBER")
		if !ok {
			return
		}

		var req RevisionNotesRequest
		if !bindOptionalJSON(c, &req) {
			return
		}

		order, err := step(c, actor, orderID, int(number), req)
		if err != nil {
			respondServiceError(c, err)
			return
		}

		respondOK(c, http.StatusOK, order)
	}
}

// ApproveRevision handles PUT /api/v1/orders/:id/revisions/:number/approve (tailor only)
var ApproveRevision = handleRevisionStep(func(c *gin.Context, actor models.Actor, orderID uint, number int, req RevisionNotesRequest) (*models.Order, error) {
	return services.GetOrderService().ApproveRevision(c.Request.Context(), actor, orderID, number, req.Notes)
})

// RejectRevision handles PUT /api/v1/orders/:id/revisions/:number/reject (tailor only)
var RejectRevision = handleRevisionStep(func(c *gin.Context, actor models.Actor, orderID uint, number int, req RevisionNotesRequest) (*models.Order, error) {
	return services.GetOrderService().RejectRevision(c.Request.Context(), actor, orderID, number, req.Reason)
})

// StartRevision handles PUT /api/v1/orders/:id/revisions/:number/start (tailor only)
var StartRevision = handleRevisionStep(func(c *gin.Context, actor models.Actor, orderID uint, number int, _ RevisionNotesRequest) (*models.Order, error) {
	return services.GetOrderService().StartRevision(c.Request.Context(), actor, orderID, number)
})

// CompleteRevision handles PUT /api/v1/orders/:id/revisions/:number/complete (tailor only)
var CompleteRevision = handleRevisionStep(func(c *gin.Context, actor models.Actor, orderID uint, number int, req RevisionNotesRequest) (*models.Order, error) {
	return services.GetOrderService().CompleteRevision(c.Request.Context(), actor, orderID, number, req.Images, req.Notes)
})

// CustomerApproveRevision handles PUT /api/v1/orders/:id/revisions/:number/customer-approve
var CustomerApproveRevision = handleRevisionStep(func(c *gin.Context, actor models.Actor, orderID uint, number int, _ RevisionNotesRequest) (*models.Order, error) {
	return services.GetOrderService().CustomerApproveRevision(c.Request.Context(), actor, orderID, number)
})

// CustomerRejectRevision handles PUT /api/v1/orders/:id/revisions/:number/customer-reject
var CustomerRejectRevision = handleRevisionStep(func(c *gin.Context, actor models.Actor, orderID uint, number int, req RevisionNotesRequest) (*models.Order, error) {
	return services.GetOrderService().CustomerRejectRevision(c.Request.Context(), actor, orderID, number, req.Reason)
})
