package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/services"
)

// SendMessageRequest represents the request body for sending a message
type SendMessageRequest struct {
	Text        string   `json:"text" binding:"required"`
	Attachments []string `json:"attachments"`
}

// SendMessage handles POST /api/v1/orders/:id/messages - sends a message on an order
func SendMessage(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondValidationError(c, err)
		return
	}

	message, err := services.GetOrderService().AddMessage(c.Request.Context(), actor, orderID, req.Text, req.Attachments)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, message)
}

// ListMessages handles GET /api/v1/orders/:id/messages - lists messages for an order
func ListMessages(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}

	messages, err := services.GetOrderService().ListMessages(c.Request.Context(), actor, orderID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, messages)
}

// MarkMessageRead handles PUT /api/v1/orders/:id/messages/:messageId/read
func MarkMessageRead(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	orderID, ok := orderIDParam(c)
	if !ok {
		return
	}
	messageID, ok := uintParam(c, "messageId", "INVALID_MESSAGE_ID")
	if !ok {
		return
	}

	message, err := services.GetOrderService().MarkMessageRead(c.Request.Context(), actor, orderID, messageID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, message)
}
