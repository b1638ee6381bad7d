package handlers

import (
	"github.com/gin-gonic/gin"

	"telemed-server/internal/consultation"
	"telemed-server/internal/middleware"
	"telemed-server/internal/models"
	"telemed-server/internal/utils"
)

// HealthIssueHandler serves the health-issue catalog.
type HealthIssueHandler struct {
	Catalog *consultation.Catalog
}

// NewHealthIssueHandler creates a new HealthIssueHandler.
func NewHealthIssueHandler(catalog *consultation.Catalog) *HealthIssueHandler {
	return &HealthIssueHandler{Catalog: catalog}
}

// List returns catalog entries. ?category= filters by programme; patients only
// ever see active issues.
func (h *HealthIssueHandler) List(c *gin.Context) {
	role, _ := middleware.GetUserRoleFromContext(c)
	filter := consultation.IssueFilter{
		Category:   models.IssueCategory(c.Query("category")),
		ActiveOnly: role == models.RolePatient || c.Query("active") == "true",
	}
	utils.Success(c, "Health issues fetched successfully", h.Catalog.List(filter))
}

// AddHealthIssueRequest represents the request body for a new catalog entry.
type AddHealthIssueRequest struct {
	Name        string               `json:"name" binding:"required"`
	Category    models.IssueCategory `json:"category" binding:"required"`
	Description string               `json:"description"`
	Icon        string               `json:"icon"`
}

// Add appends an issue to the catalog (admin).
func (h *HealthIssueHandler) Add(c *gin.Context) {
	var req AddHealthIssueRequest
	if !utils.BindAndValidate(c, &req) {
		return
	}
	issue, err := h.Catalog.Add(req.Name, req.Category, req.Description, req.Icon)
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	utils.Created(c, "Health issue added successfully", issue)
}

// Toggle flips an issue between active and inactive (admin).
func (h *HealthIssueHandler) Toggle(c *gin.Context) {
	issue, err := h.Catalog.ToggleStatus(c.Param("id"))
	if err != nil {
		utils.ConsultationError(c, err)
		return
	}
	utils.Success(c, "Health issue status updated", issue)
}
