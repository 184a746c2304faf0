package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"contractorvet/internal/model"
	"contractorvet/internal/service/project"
	"contractorvet/pkg/logger"
)

type ProjectService interface {
	Create(ctx context.Context, userID string, in project.CreateProjectInput) (*model.Project, error)
	Update(ctx context.Context, userID, id string, in project.UpdateProjectInput) (*model.Project, error)
	Delete(ctx context.Context, userID, id string) error
	AddMilestone(ctx context.Context, userID, projectID string, in project.CreateMilestoneInput) (*model.Milestone, error)
	UpdateMilestone(ctx context.Context, userID, id string, in project.UpdateMilestoneInput) (*model.Milestone, error)
}

type ProjectHandler struct {
	svc    ProjectService
	logger *zap.Logger
}

func NewProjectHandler(svc ProjectService, logger *zap.Logger) *ProjectHandler {
	return &ProjectHandler{svc: svc, logger: logger}
}

// CreateProject POST /api/projects
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "create_project", err)
		return
	}

	var req project.CreateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "create_project", bindError(err))
		return
	}

	logger.WithTrace(c.Request.Context(), h.logger).Debug("Create project request received",
		zap.String("user_id", id.UserID),
		zap.String("name", req.Name),
	)

	p, err := h.svc.Create(c.Request.Context(), id.UserID, req)
	if err != nil {
		writeError(c, h.logger, "create_project", err)
		return
	}

	c.JSON(http.StatusCreated, p)
}

// UpdateProject PATCH /api/projects/:id
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "update_project", err)
		return
	}
	projectID, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, h.logger, "update_project", err)
		return
	}

	var req project.UpdateProjectInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "update_project", bindError(err))
		return
	}

	p, err := h.svc.Update(c.Request.Context(), id.UserID, projectID, req)
	if err != nil {
		writeError(c, h.logger, "update_project", err)
		return
	}

	c.JSON(http.StatusOK, p)
}

// DeleteProject DELETE /api/projects/:id
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "delete_project", err)
		return
	}
	projectID, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, h.logger, "delete_project", err)
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id.UserID, projectID); err != nil {
		writeError(c, h.logger, "delete_project", err)
		return
	}

	c.Status(http.StatusNoContent)
}

// AddMilestone POST /api/projects/:id/milestones
func (h *ProjectHandler) AddMilestone(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "add_milestone", err)
		return
	}
	projectID, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, h.logger, "add_milestone", err)
		return
	}

	var req project.CreateMilestoneInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "add_milestone", bindError(err))
		return
	}

	m, err := h.svc.AddMilestone(c.Request.Context(), id.UserID, projectID, req)
	if err != nil {
		writeError(c, h.logger, "add_milestone", err)
		return
	}

	c.JSON(http.StatusCreated, m)
}

// UpdateMilestone PATCH /api/milestones/:id
func (h *ProjectHandler) UpdateMilestone(c *gin.Context) {
	id, err := identity(c)
	if err != nil {
		writeError(c, h.logger, "update_milestone", err)
		return
	}
	milestoneID, err := uuidParam(c, "id")
	if err != nil {
		writeError(c, h.logger, "update_milestone", err)
		return
	}

	var req project.UpdateMilestoneInput
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, h.logger, "update_milestone", bindError(err))
		return
	}

	m, err := h.svc.UpdateMilestone(c.Request.Context(), id.UserID, milestoneID, req)
	if err != nil {
		writeError(c, h.logger, "update_milestone", err)
		return
	}

	c.JSON(http.StatusOK, m)
}
