package links

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trafficportal/tpls/pkg/tpls/api"
	"github.com/trafficportal/tpls/pkg/tpls/auth"
	"github.com/trafficportal/tpls/pkg/tpls/models"
)

// Handler handles link-related requests
type Handler struct {
	db      *gorm.DB
	service *Service
}

// NewHandler creates a new links handler
func NewHandler(db *gorm.DB, service *Service) *Handler {
	return &Handler{db: db, service: service}
}

// CreateLinkRequest represents the request to create a link
type CreateLinkRequest struct {
	Key         string `json:"tpkey" binding:"required"`
	Destination string `json:"destination" binding:"required"`
	Domain      string `json:"domain"`
}

// UpdateLinkRequest represents the request to update a link's destination
type UpdateLinkRequest struct {
	Destination string `json:"destination" binding:"required"`
}

// LinkResponse represents a link in API responses
type LinkResponse struct {
	ID          uint   `json:"id"`
	OwnerID     uint   `json:"owner_id"`
	Key         string `json:"tpkey"`
	Destination string `json:"destination"`
	Domain      string `json:"domain"`
	Status      string `json:"status"`
	ShortURL    string `json:"short_url"`
	ClickCount  uint   `json:"click_count"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// CreateLinkResponse is the create response, with an optional warning when
// the local mirror write failed after the portal accepted the link.
type CreateLinkResponse struct {
	LinkResponse
	Warning string `json:"warning,omitempty"`
}

// ListLinksResponse is one page of the owner's links
type ListLinksResponse struct {
	Items      []LinkResponse `json:"items"`
	TotalCount int64          `json:"total_count"`
}

// AvailabilityResponse reports whether a key is free on the portal
type AvailabilityResponse struct {
	Available bool   `json:"available"`
	Message   string `json:"message,omitempty"`
}

func linkToResponse(link models.Link) LinkResponse {
	return LinkResponse{
		ID:          link.ID,
		OwnerID:     link.OwnerID,
		Key:         link.Key,
		Destination: link.Destination,
		Domain:      link.Domain,
		Status:      string(link.Status),
		ShortURL:    link.ShortURL(),
		ClickCount:  link.ClickCount,
		CreatedAt:   link.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:   link.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}

// currentUser loads the authenticated user's row.
func (h *Handler) currentUser(c *gin.Context) (models.User, bool) {
	userID, _ := auth.GetUserID(c)

	var user models.User
	if err := h.db.First(&user, userID).Error; err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
		return models.User{}, false
	}
	return user, true
}

func parseLinkID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid link ID"})
		return 0, false
	}
	return uint(id), true
}

// Validate checks key availability on the portal
// @Summary Check key availability
// @Description Validate the key format and check availability with the Traffic Portal
// @Tags links
// @Produce json
// @Param tpkey query string true "Short key"
// @Param domain query string false "Portal domain" default(trfc.link)
// @Success 200 {object} AvailabilityResponse
// @Failure 400 {object} api.HTTPError "Invalid key format"
// @Failure 502 {object} api.HTTPError "Portal error"
// @Security BearerAuth
// @Router /links/validate [get]
func (h *Handler) Validate(c *gin.Context) {
	result, err := h.service.CheckAvailability(c.Request.Context(), c.Query("tpkey"), c.Query("domain"))
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, AvailabilityResponse{
		Available: result.Available,
		Message:   result.Message,
	})
}

// Create creates a new short link
// @Summary Create a short link
// @Description Validate input, check availability, create the link on the Traffic Portal and mirror it locally
// @Tags links
// @Accept json
// @Produce json
// @Param request body CreateLinkRequest true "Link details"
// @Success 201 {object} CreateLinkResponse
// @Failure 400 {object} api.HTTPError "Validation error"
// @Failure 401 {object} api.HTTPError "No portal token"
// @Failure 409 {object} api.HTTPError "Key unavailable"
// @Failure 502 {object} api.HTTPError "Portal error"
// @Security BearerAuth
// @Router /links [post]
func (h *Handler) Create(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	var req CreateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, warning, err := h.service.Create(c.Request.Context(), user, req.Key, req.Domain, req.Destination)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusCreated, CreateLinkResponse{
		LinkResponse: linkToResponse(*link),
		Warning:      warning,
	})
}

// List returns the owner's links
// @Summary List links
// @Description List the caller's links from the local mirror, newest first
// @Tags links
// @Produce json
// @Param page query int false "Page (default 1)"
// @Param page_size query int false "Page size (default 20, max 100)"
// @Success 200 {object} ListLinksResponse
// @Security BearerAuth
// @Router /links [get]
func (h *Handler) List(c *gin.Context) {
	userID, _ := auth.GetUserID(c)

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	pageSize, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))

	items, total, err := h.service.List(c.Request.Context(), userID, page, pageSize)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	responses := make([]LinkResponse, len(items))
	for i, link := range items {
		responses[i] = linkToResponse(link)
	}

	c.JSON(http.StatusOK, ListLinksResponse{Items: responses, TotalCount: total})
}

// Update changes a link's destination
// @Summary Update a link
// @Description Point an existing link at a new destination URL
// @Tags links
// @Accept json
// @Produce json
// @Param id path int true "Link ID"
// @Param request body UpdateLinkRequest true "New destination"
// @Success 200 {object} LinkResponse
// @Failure 400 {object} api.HTTPError "Validation error"
// @Failure 404 {object} api.HTTPError "Link not found"
// @Security BearerAuth
// @Router /links/{id} [put]
func (h *Handler) Update(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseLinkID(c)
	if !ok {
		return
	}

	var req UpdateLinkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	link, err := h.service.UpdateDestination(c.Request.Context(), id, userID, req.Destination)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkToResponse(*link))
}

// Toggle flips a link between active and inactive
// @Summary Toggle link status
// @Description Flip a link between active and inactive
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} LinkResponse
// @Failure 404 {object} api.HTTPError "Link not found"
// @Security BearerAuth
// @Router /links/{id}/toggle [post]
func (h *Handler) Toggle(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseLinkID(c)
	if !ok {
		return
	}

	link, err := h.service.ToggleStatus(c.Request.Context(), id, userID)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, linkToResponse(*link))
}

// Delete removes a link from the local mirror
// @Summary Delete a link
// @Description Delete the caller's link from the local mirror
// @Tags links
// @Produce json
// @Param id path int true "Link ID"
// @Success 200 {object} map[string]bool "deleted flag"
// @Security BearerAuth
// @Router /links/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	userID, _ := auth.GetUserID(c)
	id, ok := parseLinkID(c)
	if !ok {
		return
	}

	deleted, err := h.service.Delete(c.Request.Context(), id, userID)
	if err != nil {
		api.WriteError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

// RegisterRoutes registers link routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/links/validate", h.Validate)
	rg.POST("/links", h.Create)
	rg.GET("/links", h.List)
	rg.PUT("/links/:id", h.Update)
	rg.POST("/links/:id/toggle", h.Toggle)
	rg.DELETE("/links/:id", h.Delete)
}
