package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/kendall-kelly/stitchwise-api/services"
)

// GetTailorReputation handles GET /api/v1/tailors/:id/reputation
func GetTailorReputation(c *gin.Context) {
	tailorID, ok := uintParam(c, "id", "INVALID_TAILOR_ID")
	if !ok {
		return
	}

	profile, err := services.GetOrderService().Ledger().Profile(c.Request.Context(), tailorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, profile)
}

// RebuildTailorReputation handles POST /api/v1/admin/tailors/:id/reputation/rebuild.
// Counters are recomputed from order history; badges already held are kept.
func RebuildTailorReputation(c *gin.Context) {
	tailorID, ok := uintParam(c, "id", "INVALID_TAILOR_ID")
	if !ok {
		return
	}

	profile, awarded, err := services.GetOrderService().Ledger().Rebuild(c.Request.Context(), tailorID)
	if err != nil {
		respondServiceError(c, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"profile":        profile,
		"badges_awarded": awarded,
	})
}
