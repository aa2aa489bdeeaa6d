package repository

import (
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/utils"
)

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(user *models.User) error

	// CreateWithPersonalProject creates a user, their personal project,
	// and corresponding membership within a single transaction.
	CreateWithPersonalProject(user *models.User, project *models.Project, member *models.ProjectMember) error

	// FindByID finds a user by ID
	FindByID(id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(username string) (*models.User, error)

	// ListAdmins lists every user holding the elevated role tag
	ListAdmins() ([]models.User, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a new project
	Create(project *models.Project) error

	// FindByID finds a project by ID
	FindByID(id uint64) (*models.Project, error)

	// FindByInviteCode finds a project by invite code
	FindByInviteCode(code string) (*models.Project, error)

	// Update updates a project
	Update(project *models.Project) error

	// Delete deletes a project and all related data
	Delete(id uint64) error

	// AddMember adds a member to a project
	AddMember(member *models.ProjectMember) error

	// RemoveMember removes a member from a project
	RemoveMember(projectID, userID uint64) error

	// FindMember finds a specific project member
	FindMember(projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembersByUserID lists all projects a user is a member of
	ListMembersByUserID(userID uint64) ([]models.ProjectMember, error)

	// ListMembers lists all members of a project
	ListMembers(projectID uint64) ([]models.ProjectMember, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(task *models.Task) error

	// Delete soft deletes a task
	Delete(id uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	// Actor scopes the listing to what this user may see.
	Actor *models.User

	ProjectID  *uint64
	Status     *models.TaskStatus
	CreatorID  *uint64
	AssigneeID *uint64
	Page       int
	PageSize   int
}

// NotificationRepository defines the interface for the per-user
// notification log. Every operation is scoped to the owning recipient;
// touching another user's rows yields gorm.ErrRecordNotFound, never a
// permission error, so existence is not leaked.
type NotificationRepository interface {
	// Create appends a notification for its recipient
	Create(notification *models.Notification) error

	// List returns a recipient's notifications, newest first, optionally
	// filtered by read state
	List(recipientID uint64, read *bool, params utils.PaginationParams) ([]models.Notification, int64, error)

	// MarkRead flips one notification to read
	MarkRead(recipientID, id uint64) error

	// MarkAllRead flips every unread notification of the recipient
	MarkAllRead(recipientID uint64) error

	// Delete removes one notification
	Delete(recipientID, id uint64) error

	// CountUnread counts the recipient's unread notifications
	CountUnread(recipientID uint64) (int64, error)
}

// SettingsRepository defines the interface for per-user notification
// preferences
type SettingsRepository interface {
	// GetOrCreate returns the user's settings, creating the default row on
	// first access. Creation is idempotent under concurrent first access.
	GetOrCreate(userID uint64) (*models.NotificationSettings, error)

	// Save persists the full settings row
	Save(settings *models.NotificationSettings) error
}
