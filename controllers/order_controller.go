package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/models"
	"github.com/kendall-kelly/stitchwise-api/services"
)

// CreateOrderRequest represents the request body for creating an order
type CreateOrderRequest struct {
	TailorID                uint       `json:"tailor_id" binding:"required"`
	ServiceType             string     `json:"service_type" binding:"required"`
	GarmentType             string     `json:"garment_type" binding:"required"`
	Quantity                int        `json:"quantity"`
	MeasurementID           *uint      `json:"measurement_id"`
	BasePrice               *float64   `json:"base_price"`
	FabricCost              float64    `json:"fabric_cost"`
	AdditionalCharges       float64    `json:"additional_charges"`
	Discount                float64    `json:"discount"`
	TotalPrice              *float64   `json:"total_price"`
	Notes                   string     `json:"notes"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
}

// CreateOrder handles POST /api/v1/orders - creates a new order (customers only)
func CreateOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var req CreateOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.GetOrderService().Create(c.Request.Context(), actor, services.CreateOrderInput{
		TailorID:                req.TailorID,
		ServiceType:             req.ServiceType,
		GarmentType:             req.GarmentType,
		Quantity:                req.Quantity,
		MeasurementID:           req.MeasurementID,
		BasePrice:               req.BasePrice,
		FabricCost:              req.FabricCost,
		AdditionalCharges:       req.AdditionalCharges,
		Discount:                req.Discount,
		TotalPrice:              req.TotalPrice,
		Notes:                   req.Notes,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, order)
}

// ListOrdersQuery holds the query parameters of an order listing
type ListOrdersQuery struct {
	Status string `form:"status"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1"`
	Sort   string `form:"sort"`
}

// ListOrders handles GET /api/v1/orders - lists the orders visible to the caller
func ListOrders(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	var query ListOrdersQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		respondValidationError(c, err)
		return
	}

	filter := services.OrderFilter{
		Status: models.OrderStatus(query.Status),
		Page:   query.Page,
		Limit:  query.Limit,
		Sort:   query.Sort,
	}
	if err := filter.Normalize(); err != nil {
		respondServiceError(c, err)
		return
	}

	orders, total, err := services.GetOrderService().ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	totalPages := (total + int64(filter.Limit) - 1) / int64(filter.Limit)

	respondOK(c, http.StatusOK, gin.H{
		"orders": orders,
		"pagination": gin.H{
			"page":        filter.Page,
			"limit":       filter.Limit,
			"total":       total,
			"total_pages": totalPages,
		},
	})
}

// GetOrder handles GET /api/v1/orders/:id - returns an order with its revisions, messages and timeline
func GetOrder(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	order, err := services.GetOrderService().GetOrder(c.Request.Context(), actor, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// ScheduleConsultationRequest represents the request body for booking a consultation
type ScheduleConsultationRequest struct {
	Date  *time.Time `json:"date"`
	Type  string     `json:"type" binding:"omitempty,oneof=in_person video phone"`
	Link  string     `json:"link" binding:"omitempty,url"`
	Notes string     `json:"notes"`
}

// ScheduleConsultation handles PUT /api/v1/orders/:id/consultation
func ScheduleConsultation(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req ScheduleConsultationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.GetOrderService().ScheduleConsultation(c.Request.Context(), actor, orderID, services.ScheduleConsultationInput{
		Date:  req.Date,
		Type:  req.Type,
		Link:  req.Link,
		Notes: req.Notes,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// UpdateConsultationStatusRequest represents the request body for a consultation outcome
type UpdateConsultationStatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// UpdateConsultationStatus handles PUT /api/v1/orders/:id/consultation/status
func UpdateConsultationStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdateConsultationStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.GetOrderService().UpdateConsultationStatus(c.Request.Context(), actor, orderID, models.ConsultationStatus(req.Status))
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// UpdateFabricRequest represents the request body for the tailor's fabric choice
type UpdateFabricRequest struct {
	Type       string  `json:"type"`
	Color      string  `json:"color"`
	Quantity   float64 `json:"quantity"`
	SupplierID *uint   `json:"supplier_id"`
}

// UpdateFabric handles PUT /api/v1/orders/:id/fabric (tailor only)
func UpdateFabric(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdateFabricRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.GetOrderService().UpdateFabric(c.Request.Context(), actor, orderID, models.FabricDetails{
		Type:       req.Type,
		Color:      req.Color,
		Quantity:   req.Quantity,
		SupplierID: req.SupplierID,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// UpdatePricingRequest represents the request body for a price adjustment.
// Omitted fields keep their current value.
type UpdatePricingRequest struct {
	BasePrice               *float64   `json:"base_price"`
	FabricCost              *float64   `json:"fabric_cost"`
	AdditionalCharges       *float64   `json:"additional_charges"`
	Discount                *float64   `json:"discount"`
	TotalPrice              *float64   `json:"total_price"`
	EstimatedCompletionDate *time.Time `json:"estimated_completion_date"`
}

// UpdatePricing handles PUT /api/v1/orders/:id/pricing (tailor only)
func UpdatePricing(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdatePricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.GetOrderService().UpdatePricing(c.Request.Context(), actor, orderID, services.UpdatePricingInput{
		BasePrice:               req.BasePrice,
		FabricCost:              req.FabricCost,
		AdditionalCharges:       req.AdditionalCharges,
		Discount:                req.Discount,
		TotalPrice:              req.TotalPrice,
		EstimatedCompletionDate: req.EstimatedCompletionDate,
	})
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// UpdateOrderStatusRequest represents the request body for a direct status change
type UpdateOrderStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Notes  string `json:"notes"`
}

// UpdateOrderStatus handles PUT /api/v1/orders/:id/status
func UpdateOrderStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req UpdateOrderStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	order, err := services.GetOrderService().UpdateOrderStatus(c.Request.Context(), actor, orderID, models.OrderStatus(req.Status), req.Notes)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, order)
}

// GetOrderTimeline handles GET /api/v1/orders/:id/timeline
func GetOrderTimeline(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	entries, err := services.GetOrderService().GetTimeline(c.Request.Context(), actor, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, entries)
}
