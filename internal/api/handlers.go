package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"marketplace/internal/auth"
	"marketplace/internal/queue"
	"marketplace/internal/trust"
)

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, trust.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, trust.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func mustClaims(c *gin.Context) auth.Claims {
	claims, _ := auth.ClaimsFrom(c)
	return claims
}

func (h *handler) createSession(c *gin.Context) {
	var req struct {
		SubjectID string `json:"subject_id" binding:"required"`
		Role      string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	role := auth.Role(strings.ToLower(req.Role))

	tokens, err := h.Issuer.Issue(req.SubjectID, role)
	switch {
	case errors.Is(err, auth.ErrNotAdmin):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
		return
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// A vendor opening a session counts as activity.
	if role == auth.RoleVendor {
		if err := h.Trust.RecordActivity(c.Request.Context(), req.SubjectID); err != nil {
			writeError(c, err)
			return
		}
	}

	c.JSON(http.StatusCreated, tokenBody(tokens))
}

func (h *handler) refreshSession(c *gin.Context) {
	var req struct {
		RefreshToken string `json:"refresh_token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	tokens, err := h.Issuer.Refresh(req.RefreshToken)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, tokenBody(tokens))
}

func tokenBody(t auth.TokenPair) gin.H {
	return gin.H{
		"access_token":  t.AccessToken,
		"refresh_token": t.RefreshToken,
		"expires_at":    t.AccessExp.Unix(),
	}
}

func (h *handler) logContact(c *gin.Context) {
	var req struct {
		VendorID  string `json:"vendor_id" binding:"required"`
		Method    string `json:"method"`
		ProductID string `json:"product_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	claims := mustClaims(c)

	contact, err := h.Trust.LogContact(c.Request.Context(), req.VendorID, claims.Subject, trust.ContactMethod(req.Method), req.ProductID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"contact_id": contact.ID, "contact": contact})
}

func (h *handler) submitFeedback(c *gin.Context) {
	var req trust.FeedbackInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx := c.Request.Context()
	contactID := c.Param("id")

	contact, err := h.Trust.GetContact(ctx, contactID)
	if err != nil {
		writeError(c, err)
		return
	}
	if contact.StudentID != mustClaims(c).Subject {
		c.JSON(http.StatusForbidden, gin.H{"error": "contact belongs to another student"})
		return
	}

	res, err := h.Trust.SubmitFeedback(ctx, contactID, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *handler) pendingFeedback(c *gin.Context) {
	pending, err := h.Trust.GetPendingFeedbackFor(c.Request.Context(), mustClaims(c).Subject)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": pending})
}

func (h *handler) getVendorMetrics(c *gin.Context) {
	vendorID := c.Param("id")
	m, err := h.Trust.GetVendorMetrics(c.Request.Context(), vendorID)
	if err != nil {
		writeError(c, err)
		return
	}
	// metrics is null for a vendor without feedback yet.
	c.JSON(http.StatusOK, gin.H{"vendor_id": vendorID, "metrics": m})
}

func (h *handler) listVendorContacts(c *gin.Context) {
	vendorID := c.Param("id")
	claims := mustClaims(c)
	if claims.Role != auth.RoleAdmin && !(claims.Role == auth.RoleVendor && claims.Subject == vendorID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "not allowed to view these contacts"})
		return
	}
	contacts, err := h.Trust.ListContactsForVendor(c.Request.Context(), vendorID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"contacts": contacts})
}

func (h *handler) recordActivity(c *gin.Context) {
	if err := h.Trust.RecordActivity(c.Request.Context(), mustClaims(c).Subject); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *handler) enqueueRecompute(c *gin.Context) {
	if h.Queue == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "job queue not configured"})
		return
	}
	job := queue.Job{
		Type:        queue.JobRecompute,
		VendorID:    c.Param("id"),
		RequestedBy: mustClaims(c).Subject,
		RequestedAt: time.Now().UTC(),
	}
	if err := h.Queue.Publish(c.Request.Context(), job); err != nil {
		h.Log.Error("queue publish failed", "vendor_id", job.VendorID, "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "could not enqueue recompute"})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"vendor_id": job.VendorID, "status": "queued"})
}

func (h *handler) setVerification(c *gin.Context) {
	var req struct {
		Level string `json:"level" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	vendorID := c.Param("id")
	level := trust.VerificationLevel(strings.ToLower(req.Level))
	if err := h.Trust.SetVerificationLevel(c.Request.Context(), vendorID, level); err != nil {
		writeError(c, err)
		return
	}
	h.Log.Info("verification level set", "vendor_id", vendorID, "level", level, "by", mustClaims(c).Subject)
	c.JSON(http.StatusOK, gin.H{"vendor_id": vendorID, "verification_level": level})
}

func (h *handler) sweep(c *gin.Context) {
	n, err := h.Trust.SweepInactive(c.Request.Context(), h.InactivityThreshold)
	body := gin.H{"deactivated": n}
	if err != nil {
		body["error"] = err.Error()
		c.JSON(http.StatusMultiStatus, body)
		return
	}
	c.JSON(http.StatusOK, body)
}
