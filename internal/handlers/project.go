package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/dto"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/services"
)

// ProjectHandler coordinates project-related HTTP handlers.
type ProjectHandler struct {
	projectService *services.ProjectService
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{
		projectService: projectService,
	}
}

// CreateProject creates a new project owned by the current user.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateRequest struct {
		Name string `json:"name" binding:"required,min=1,max=255"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.CreateProject(req.Name, userID)
	if err != nil {
		apierrors.InternalError(c, "Failed to create project")
		return
	}

	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project, true))
}

// ListProjects lists the current user's projects.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	memberships, err := h.projectService.ListProjects(userID)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to fetch projects")
		return
	}

	projects := make([]dto.ProjectWithRoleDTO, len(memberships))
	for i, m := range memberships {
		projects[i] = dto.ToProjectWithRoleDTO(m)
	}

	c.JSON(http.StatusOK, gin.H{"projects": projects})
}

// GetProject returns a project with its members.
// The project is already authorized by RequireProjectAccess.
func (h *ProjectHandler) GetProject(c *gin.Context) {
	project, ok := projectFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	_, members, err := h.projectService.GetProject(project.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDetailDTO(project, members))
}

// UpdateProject renames a project.
func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	project, ok := projectFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	type UpdateRequest struct {
		Name string `json:"name" binding:"required,min=1,max=255"`
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	updated, err := h.projectService.UpdateProject(project.ID, userID, req.Name)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*updated, true))
}

// DeleteProject deletes a project and all related data.
func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	project, ok := projectFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	if err := h.projectService.DeleteProject(project.ID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Project deleted"})
}

// JoinProject adds the current user to the project matching an invite code.
func (h *ProjectHandler) JoinProject(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type JoinRequest struct {
		InviteCode string `json:"invite_code" binding:"required"`
	}

	var req JoinRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.JoinProject(req.InviteCode, userID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*project, false))
}

// RegenerateInviteCode replaces the project's invite code.
func (h *ProjectHandler) RegenerateInviteCode(c *gin.Context) {
	project, ok := projectFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	updated, err := h.projectService.RegenerateInviteCode(project.ID)
	if err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToProjectDTO(*updated, true))
}

// RemoveMember removes a member from the project.
func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	project, ok := projectFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Project not found in context")
		return
	}

	memberID, err := strconv.ParseUint(c.Param("user_id"), 10, 64)
	if err != nil {
		apierrors.BadRequest(c, "Invalid user ID")
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := h.projectService.RemoveMember(project.ID, userID, memberID); err != nil {
		respondProjectError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Member removed"})
}

func projectFromContext(c *gin.Context) (models.Project, bool) {
	projectInterface, exists := c.Get(constants.ContextKeyProject)
	if !exists {
		return models.Project{}, false
	}
	project, ok := projectInterface.(models.Project)
	return project, ok
}

func respondProjectError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrMemberNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotProjectOwner),
		errors.Is(err, services.ErrCannotRemoveOwner):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrInvalidInviteCode),
		errors.Is(err, services.ErrAlreadyMember):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
