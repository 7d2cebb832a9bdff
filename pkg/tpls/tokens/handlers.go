// Package tokens manages the caller's Traffic Portal credential. The token
// is supplied by the owner (obtained from the portal itself) and stored on
// the user row; it is never derived from local identity.
package tokens

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trafficportal/tpls/pkg/tpls/auth"
	"github.com/trafficportal/tpls/pkg/tpls/models"
)

const (
	// TokenPrefixLength is the number of characters echoed back for
	// identification; the full token is never returned once stored.
	TokenPrefixLength = 4
)

// Handler handles portal token requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new tokens handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// SetTokenRequest represents a request to store the portal token
type SetTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// TokenResponse describes the stored portal token without revealing it
type TokenResponse struct {
	Present     bool      `json:"present"`
	TokenPrefix string    `json:"token_prefix,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func tokenToResponse(user models.User) TokenResponse {
	resp := TokenResponse{
		Present:   user.HasPortalToken(),
		UpdatedAt: user.UpdatedAt,
	}
	if resp.Present && len(user.PortalToken) > TokenPrefixLength {
		resp.TokenPrefix = user.PortalToken[:TokenPrefixLength]
	}
	return resp
}

func (h *Handler) currentUser(c *gin.Context) (models.User, bool) {
	userID, _ := auth.GetUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return models.User{}, false
	}
	return user, true
}

// Get describes the caller's stored portal token
// @Summary Get portal token status
// @Description Report whether the caller has a Traffic Portal token on file
// @Tags portal
// @Produce json
// @Success 200 {object} TokenResponse
// @Security BearerAuth
// @Router /portal/token [get]
func (h *Handler) Get(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, tokenToResponse(user))
}

// Set stores the caller's portal token
// @Summary Set portal token
// @Description Store the caller's Traffic Portal token for link creation
// @Tags portal
// @Accept json
// @Produce json
// @Param request body SetTokenRequest true "Portal token"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} map[string]string "Validation error"
// @Security BearerAuth
// @Router /portal/token [put]
func (h *Handler) Set(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req SetTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.db.Model(&user).Update("portal_token", req.Token).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store token"})
		return
	}

	c.JSON(http.StatusOK, tokenToResponse(user))
}

// Delete clears the caller's portal token
// @Summary Delete portal token
// @Description Remove the caller's stored Traffic Portal token
// @Tags portal
// @Produce json
// @Success 200 {object} map[string]string "Token removed"
// @Security BearerAuth
// @Router /portal/token [delete]
func (h *Handler) Delete(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	if err := h.db.Model(&user).Update("portal_token", "").Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Token removed"})
}

// RegisterRoutes registers portal token routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/portal/token", h.Get)
	rg.PUT("/portal/token", h.Set)
	rg.DELETE("/portal/token", h.Delete)
}
