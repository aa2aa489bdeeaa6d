package dto

import (
	"time"

	"github.com/yukikurage/taskboard-api/internal/models"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID       uint64          `json:"id"`
	Username string          `json:"username"`
	Role     models.UserRole `json:"role"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID         uint64 `json:"id"`
	Name       string `json:"name"`
	InviteCode string `json:"invite_code,omitempty"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Status      models.TaskStatus `json:"status"`
	DueDate     *time.Time        `json:"due_date"`
	CreatorID   uint64            `json:"creator_id"`
	AssigneeID  *uint64           `json:"assignee_id"`
	ProjectID   uint64            `json:"project_id"`
	CreatedAt   time.Time         `json:"created_at"`
	UpdatedAt   time.Time         `json:"updated_at"`
	Creator     *UserDTO          `json:"creator,omitempty"`
	Assignee    *UserDTO          `json:"assignee,omitempty"`
	Project     *ProjectDTO       `json:"project,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
}

// ToUserDTO converts a User model to UserDTO
func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:       user.ID,
		Username: user.Username,
		Role:     user.Role,
	}
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project, includeInviteCode bool) ProjectDTO {
	dto := ProjectDTO{
		ID:   project.ID,
		Name: project.Name,
	}
	if includeInviteCode {
		dto.InviteCode = project.InviteCode
	}
	return dto
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
		CreatorID:   task.CreatorID,
		AssigneeID:  task.AssigneeID,
		ProjectID:   task.ProjectID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
	}

	if task.Creator.ID != 0 {
		creator := ToUserDTO(task.Creator)
		dto.Creator = &creator
	}
	if task.Assignee != nil && task.Assignee.ID != 0 {
		assignee := ToUserDTO(*task.Assignee)
		dto.Assignee = &assignee
	}
	if task.Project.ID != 0 {
		project := ToProjectDTO(task.Project, false)
		dto.Project = &project
	}

	return dto
}

// ToTaskListResponse converts a slice of tasks to TaskListResponse
func ToTaskListResponse(tasks []models.Task, page, pageSize int, totalCount int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
	}
}
