package admin

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/trafficportal/tpls/pkg/tpls/models"
)

// Handler handles admin requests
type Handler struct {
	db *gorm.DB
}

// NewHandler creates a new admin handler
func NewHandler(db *gorm.DB) *Handler {
	return &Handler{db: db}
}

// LinkResponse represents a link in admin responses, including its owner
type LinkResponse struct {
	ID          uint   `json:"id"`
	OwnerID     uint   `json:"owner_id"`
	OwnerEmail  string `json:"owner_email"`
	Key         string `json:"tpkey"`
	Destination string `json:"destination"`
	Domain      string `json:"domain"`
	Status      string `json:"status"`
	ClickCount  uint   `json:"click_count"`
	CreatedAt   string `json:"created_at"`
}

// StatsResponse represents system statistics
type StatsResponse struct {
	TotalUsers     int64 `json:"total_users"`
	UsersWithToken int64 `json:"users_with_token"`
	TotalLinks     int64 `json:"total_links"`
	ActiveLinks    int64 `json:"active_links"`
	InactiveLinks  int64 `json:"inactive_links"`
	TotalClicks    int64 `json:"total_clicks"`
	AdminUsers     int64 `json:"admin_users"`
}

// ListLinks returns links across all owners (admin only)
// @Summary List all links
// @Description List links across all owners from the local mirror
// @Tags admin
// @Produce json
// @Param q query string false "Search key or destination"
// @Param owner_id query int false "Filter by owner"
// @Param status query string false "Filter by status"
// @Success 200 {array} LinkResponse
// @Security BearerAuth
// @Router /admin/links [get]
func (h *Handler) ListLinks(c *gin.Context) {
	query := h.db.Preload("Owner").Order("created_at DESC, id ASC")

	if search := c.Query("q"); search != "" {
		query = query.Where("tpkey LIKE ? OR destination LIKE ?", "%"+search+"%", "%"+search+"%")
	}
	if ownerID := c.Query("owner_id"); ownerID != "" {
		query = query.Where("owner_id = ?", ownerID)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	limit := 100
	if l := c.Query("limit"); l != "" {
		if parsed, err := strconv.Atoi(l); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}
	query = query.Limit(limit)

	var links []models.Link
	if err := query.Find(&links).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch links"})
		return
	}

	responses := make([]LinkResponse, len(links))
	for i, link := range links {
		responses[i] = LinkResponse{
			ID:          link.ID,
			OwnerID:     link.OwnerID,
			OwnerEmail:  link.Owner.Email,
			Key:         link.Key,
			Destination: link.Destination,
			Domain:      link.Domain,
			Status:      string(link.Status),
			ClickCount:  link.ClickCount,
			CreatedAt:   link.CreatedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	c.JSON(http.StatusOK, responses)
}

// GetStats returns system statistics (admin only)
// @Summary System statistics
// @Description Totals over users and the local link mirror
// @Tags admin
// @Produce json
// @Success 200 {object} StatsResponse
// @Security BearerAuth
// @Router /admin/stats [get]
func (h *Handler) GetStats(c *gin.Context) {
	var stats StatsResponse

	h.db.Model(&models.User{}).Count(&stats.TotalUsers)
	h.db.Model(&models.User{}).Where("portal_token != ''").Count(&stats.UsersWithToken)
	h.db.Model(&models.User{}).Where("system_role = ?", models.SystemRoleAdmin).Count(&stats.AdminUsers)
	h.db.Model(&models.Link{}).Count(&stats.TotalLinks)
	h.db.Model(&models.Link{}).Where("status = ?", models.LinkStatusActive).Count(&stats.ActiveLinks)
	h.db.Model(&models.Link{}).Where("status = ?", models.LinkStatusInactive).Count(&stats.InactiveLinks)
	h.db.Model(&models.Link{}).Select("COALESCE(SUM(click_count), 0)").Scan(&stats.TotalClicks)

	c.JSON(http.StatusOK, stats)
}

// RegisterRoutes registers admin routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/links", h.ListLinks)
	rg.GET("/stats", h.GetStats)
}
