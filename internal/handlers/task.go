package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskboard-api/internal/constants"
	"github.com/yukikurage/taskboard-api/internal/database"
	"github.com/yukikurage/taskboard-api/internal/dto"
	apierrors "github.com/yukikurage/taskboard-api/internal/errors"
	"github.com/yukikurage/taskboard-api/internal/middleware"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/services"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

// TaskHandler coordinates task-related HTTP handlers. Task mutations are the
// main notification producers.
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// ListTasks returns tasks visible to the current user.
// Supports ?project_id=, ?status=, ?mine= and pagination.
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := currentUser(c)
	if !ok {
		apierrors.Unauthorized(c, "")
		return
	}

	input := services.ListTasksInput{Actor: actor}

	if projectIDStr := c.Query("project_id"); projectIDStr != "" {
		projectID, err := strconv.ParseUint(projectIDStr, 10, 64)
		if err != nil {
			apierrors.BadRequest(c, "Invalid project_id")
			return
		}
		input.ProjectID = &projectID
	}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.TaskStatus(statusStr)
		input.Status = &status
	}
	if mineStr := c.Query("mine"); mineStr != "" {
		mine, err := strconv.ParseBool(mineStr)
		if err != nil {
			apierrors.BadRequest(c, "Invalid mine filter")
			return
		}
		input.Mine = mine
	}

	params := utils.GetPaginationParams(c)
	input.Page = params.Page
	input.PageSize = params.Limit

	tasks, total, err := h.taskService.ListTasks(input)
	if err != nil {
		apierrors.ServiceUnavailable(c, "Failed to fetch tasks")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total))
}

// GetTask returns a specific task by ID.
// The task is already loaded and authorized by RequireTaskAccess.
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := taskFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(task))
}

// CreateTask creates a task in one of the user's projects.
func (h *TaskHandler) CreateTask(c *gin.Context) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		apierrors.Unauthorized(c, "")
		return
	}

	type CreateRequest struct {
		Title       string            `json:"title" binding:"required"`
		Description string            `json:"description"`
		Status      models.TaskStatus `json:"status"`
		ProjectID   uint64            `json:"project_id" binding:"required"`
	}

	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	task, err := h.taskService.CreateTask(services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		ProjectID:   req.ProjectID,
		CreatorID:   userID,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToTaskDTO(*task))
}

// UpdateTask applies a partial patch to a task.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	task, ok := taskFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type UpdateRequest struct {
		Title       *string            `json:"title"`
		Description *string            `json:"description"`
		Status      *models.TaskStatus `json:"status"`
	}

	var req UpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	updated, err := h.taskService.UpdateTask(task.ID, services.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
	})
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// DeleteTask deletes a task.
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	task, ok := taskFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := h.taskService.DeleteTask(task.ID, userID); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Task deleted"})
}

// AssignTask sets the task's assignee.
func (h *TaskHandler) AssignTask(c *gin.Context) {
	task, ok := taskFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type AssignRequest struct {
		UserID uint64 `json:"user_id" binding:"required"`
	}

	var req AssignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	updated, err := h.taskService.AssignTask(task.ID, userID, req.UserID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// UnassignTask clears the task's assignee.
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	task, ok := taskFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	userID, _ := middleware.GetUserID(c)
	updated, err := h.taskService.UnassignTask(task.ID, userID)
	if err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*updated))
}

// Comment posts a comment event on the task, optionally mentioning users.
func (h *TaskHandler) Comment(c *gin.Context) {
	task, ok := taskFromContext(c)
	if !ok {
		apierrors.InternalError(c, "Task not found in context")
		return
	}

	type CommentRequest struct {
		Body     string   `json:"body" binding:"required"`
		Mentions []uint64 `json:"mentions"`
	}

	var req CommentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	userID, _ := middleware.GetUserID(c)
	if err := h.taskService.Comment(services.CommentInput{
		TaskID:   task.ID,
		ActorID:  userID,
		Body:     req.Body,
		Mentions: req.Mentions,
	}); err != nil {
		respondTaskError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"message": "Comment posted"})
}

func taskFromContext(c *gin.Context) (models.Task, bool) {
	taskInterface, exists := c.Get(constants.ContextKeyTask)
	if !exists {
		return models.Task{}, false
	}
	task, ok := taskInterface.(models.Task)
	return task, ok
}

func currentUser(c *gin.Context) (*models.User, bool) {
	userID, exists := middleware.GetUserID(c)
	if !exists {
		return nil, false
	}
	var user models.User
	if err := database.GetDB().First(&user, userID).Error; err != nil {
		return nil, false
	}
	return &user, true
}

func respondTaskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, services.ErrTaskNotFound):
		apierrors.NotFound(c, err.Error())
	case errors.Is(err, services.ErrNotTaskCreator):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrNotProjectMember):
		apierrors.Forbidden(c, err.Error())
	case errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrTitleEmpty),
		errors.Is(err, services.ErrInvalidTaskAssignee),
		errors.Is(err, services.ErrCommentBodyRequired):
		apierrors.BadRequest(c, err.Error())
	default:
		apierrors.InternalError(c, "Internal server error")
	}
}
