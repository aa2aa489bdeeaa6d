package services

import (
	"errors"
	"fmt"

	"github.com/yukikurage/taskboard-api/internal/event"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrTaskNotFound        = errors.New("task not found")
	ErrNotTaskCreator      = errors.New("only the task creator can perform this action")
	ErrNotProjectMember    = errors.New("user is not a member of the project")
	ErrTitleRequired       = errors.New("title is required")
	ErrTitleEmpty          = errors.New("title cannot be empty")
	ErrInvalidTaskAssignee = errors.New("assignee is not a member of the project")
	ErrCommentBodyRequired = errors.New("comment body is required")
)

// EventDispatcher is the producer-side contract of the fanout engine.
// Services construct events after their own mutation succeeds and hand them
// over; delivery decisions are entirely the engine's concern.
type EventDispatcher interface {
	Dispatch(ev *event.Event)
}

// TaskService handles task business logic and produces task-related
// notification events.
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	dispatcher  EventDispatcher
}

// NewTaskService creates a new TaskService.
func NewTaskService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, dispatcher EventDispatcher) *TaskService {
	return &TaskService{
		taskRepo:    taskRepo,
		projectRepo: projectRepo,
		dispatcher:  dispatcher,
	}
}

// ListTasksInput represents filters for listing tasks.
type ListTasksInput struct {
	Actor     *models.User
	ProjectID *uint64
	Status    *models.TaskStatus
	Mine      bool
	Page      int
	PageSize  int
}

// ListTasks returns tasks visible to the actor under the provided filters.
func (s *TaskService) ListTasks(input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		Actor:     input.Actor,
		ProjectID: input.ProjectID,
		Status:    input.Status,
		Page:      input.Page,
		PageSize:  input.PageSize,
	}
	if input.Mine {
		filter.AssigneeID = &input.Actor.ID
	}

	tasks, total, err := s.taskRepo.List(filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task with related data.
func (s *TaskService) GetTask(taskID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID, "Creator", "Assignee", "Project")
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

// CreateTaskInput represents input for creating a task.
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	ProjectID   uint64
	CreatorID   uint64
}

// CreateTask creates a new task in the creator's project.
func (s *TaskService) CreateTask(input CreateTaskInput) (*models.Task, error) {
	if input.Title == "" {
		return nil, ErrTitleRequired
	}
	if err := s.ensureProjectMember(input.ProjectID, input.CreatorID); err != nil {
		return nil, err
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}

	task := &models.Task{
		Title:       input.Title,
		Description: input.Description,
		Status:      input.Status,
		ProjectID:   input.ProjectID,
		CreatorID:   input.CreatorID,
	}
	if err := s.taskRepo.Create(task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	return s.taskRepo.FindByID(task.ID, "Creator", "Project")
}

// UpdateTaskInput represents input for updating a task.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Status      *models.TaskStatus
}

// UpdateTask updates an existing task.
func (s *TaskService) UpdateTask(taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if input.Title != nil {
		if *input.Title == "" {
			return nil, ErrTitleEmpty
		}
		task.Title = *input.Title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		task.Status = *input.Status
	}

	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}
	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee", "Project")
}

// DeleteTask deletes a task if the actor is the creator.
func (s *TaskService) DeleteTask(taskID, actorID uint64) error {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	if task.CreatorID != actorID {
		return ErrNotTaskCreator
	}

	if err := s.taskRepo.Delete(taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}
	return nil
}

// AssignTask sets the task's assignee and notifies them.
func (s *TaskService) AssignTask(taskID, actorID, assigneeID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.ensureProjectMember(task.ProjectID, assigneeID); err != nil {
		if errors.Is(err, ErrNotProjectMember) {
			return nil, ErrInvalidTaskAssignee
		}
		return nil, err
	}

	task.AssigneeID = &assigneeID
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	s.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryTaskAssigned,
		Title:      fmt.Sprintf("You were assigned to %q", task.Title),
		SenderID:   &actorID,
		TaskID:     &task.ID,
		ProjectID:  &task.ProjectID,
		Recipients: []uint64{assigneeID},
	})

	return s.taskRepo.FindByID(task.ID, "Creator", "Assignee", "Project")
}

// UnassignTask clears the task's assignee.
func (s *TaskService) UnassignTask(taskID, actorID uint64) (*models.Task, error) {
	task, err := s.taskRepo.FindByID(taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	task.AssigneeID = nil
	if err := s.taskRepo.Update(task); err != nil {
		return nil, fmt.Errorf("failed to unassign task: %w", err)
	}
	return s.taskRepo.FindByID(task.ID, "Creator", "Project")
}

// CommentInput represents a comment posted on a task. Mentions are user ids
// named in the comment body.
type CommentInput struct {
	TaskID   uint64
	ActorID  uint64
	Body     string
	Mentions []uint64
}

// Comment notifies the task's assignee of a new comment and dispatches
// mention events for every user named in it. Comment bodies themselves are
// routine record keeping handled elsewhere; the engine only sees the event.
func (s *TaskService) Comment(input CommentInput) error {
	if input.Body == "" {
		return ErrCommentBodyRequired
	}

	task, err := s.taskRepo.FindByID(input.TaskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return fmt.Errorf("failed to find task: %w", err)
	}

	recipients := make([]uint64, 0, 1)
	if task.AssigneeID != nil {
		recipients = append(recipients, *task.AssigneeID)
	}

	s.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryCommentPosted,
		Title:      fmt.Sprintf("New comment on %q", task.Title),
		Body:       input.Body,
		SenderID:   &input.ActorID,
		TaskID:     &task.ID,
		ProjectID:  &task.ProjectID,
		Recipients: recipients,
	})

	if len(input.Mentions) > 0 {
		s.dispatcher.Dispatch(&event.Event{
			Category:  event.CategoryMention,
			Title:     fmt.Sprintf("You were mentioned on %q", task.Title),
			Body:      input.Body,
			SenderID:  &input.ActorID,
			TaskID:    &task.ID,
			ProjectID: &task.ProjectID,
			Mentions:  input.Mentions,
		})
	}
	return nil
}

// ensureProjectMember verifies that a user belongs to a project.
func (s *TaskService) ensureProjectMember(projectID, userID uint64) error {
	_, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotProjectMember
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	return nil
}
