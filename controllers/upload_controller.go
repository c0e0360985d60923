package controllers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/services"
	"github.com/kendall-kelly/stitchwise-api/utils"
)

// UploadImage handles POST /api/v1/uploads - stores a revision image or
// message attachment and returns its storage key with a temporary URL.
// An optional order_id form field files the image under that order.
func UploadImage(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	images := services.GetImageService()
	if images == nil {
		respondError(c, http.StatusServiceUnavailable, "STORAGE_NOT_CONFIGURED", "Image storage is not configured")
		return
	}

	var orderID uint
	if raw := c.PostForm("order_id"); raw != "" {
		value, err := strconv.ParseUint(raw, 10, 64)
		if err != nil || value == 0 {
			respondError(c, http.StatusBadRequest, "INVALID_ORDER_ID", "Invalid order_id")
			return
		}
		orderID = uint(value)

		// Only parties of the order may attach images to it
		if _, err := services.GetOrderService().GetOrder(c.Request.Context(), actor, orderID); err != nil {
			respondServiceError(c, err)
			return
		}
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		respondError(c, http.StatusBadRequest, "MISSING_FILE", "No image file was provided")
		return
	}

	key, err := images.UploadImage(c.Request.Context(), fileHeader, orderID)
	if err != nil {
		var uploadErr *utils.FileUploadError
		if errors.As(err, &uploadErr) {
			respondError(c, http.StatusBadRequest, uploadErr.Code, uploadErr.Message)
			return
		}
		respondServiceError(c, err)
		return
	}

	url, err := images.ImageURL(c.Request.Context(), key)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusCreated, gin.H{
		"key": key,
		"url": url,
	})
}
