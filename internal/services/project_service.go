package services

import (
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/taskboard-api/internal/event"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/utils"
	"gorm.io/gorm"
)

var (
	ErrProjectNotFound   = errors.New("project not found")
	ErrNotProjectOwner   = errors.New("only the project owner can perform this action")
	ErrAlreadyMember     = errors.New("user is already a member of the project")
	ErrInvalidInviteCode = errors.New("invalid invite code")
	ErrMemberNotFound    = errors.New("member not found")
	ErrCannotRemoveOwner = errors.New("the project owner cannot be removed")
)

// ProjectService handles project business logic and produces project-related
// notification events.
type ProjectService struct {
	projectRepo repository.ProjectRepository
	dispatcher  EventDispatcher
}

// NewProjectService creates a new ProjectService.
func NewProjectService(projectRepo repository.ProjectRepository, dispatcher EventDispatcher) *ProjectService {
	return &ProjectService{
		projectRepo: projectRepo,
		dispatcher:  dispatcher,
	}
}

// CreateProject creates a project owned by the creator.
func (s *ProjectService) CreateProject(name string, creatorID uint64) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	project := &models.Project{
		Name:       name,
		InviteCode: inviteCode,
		CreatorID:  creatorID,
	}
	if err := s.projectRepo.Create(project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    creatorID,
		Role:      models.ProjectRoleOwner,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add owner membership: %w", err)
	}

	return project, nil
}

// ListProjects lists the projects the user is a member of.
func (s *ProjectService) ListProjects(userID uint64) ([]models.ProjectMember, error) {
	memberships, err := s.projectRepo.ListMembersByUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list projects: %w", err)
	}
	return memberships, nil
}

// GetProject returns a project with its members.
func (s *ProjectService) GetProject(projectID uint64) (*models.Project, []models.ProjectMember, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrProjectNotFound
		}
		return nil, nil, fmt.Errorf("failed to find project: %w", err)
	}

	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to list members: %w", err)
	}
	return project, members, nil
}

// UpdateProject renames a project and notifies its members.
func (s *ProjectService) UpdateProject(projectID, actorID uint64, name string) (*models.Project, error) {
	if name == "" {
		return nil, fmt.Errorf("name is required")
	}

	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	project.Name = name
	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryProjectUpdated,
		Title:      fmt.Sprintf("Project %q was updated", project.Name),
		SenderID:   &actorID,
		ProjectID:  &project.ID,
		Recipients: s.memberIDs(projectID),
	})

	return project, nil
}

// DeleteProject deletes a project and all related data.
func (s *ProjectService) DeleteProject(projectID uint64) error {
	if err := s.projectRepo.Delete(projectID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}
	return nil
}

// JoinProject adds the user to the project matching the invite code and
// notifies existing members.
func (s *ProjectService) JoinProject(inviteCode string, userID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByInviteCode(inviteCode)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidInviteCode
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	if _, err := s.projectRepo.FindMember(project.ID, userID); err == nil {
		return nil, ErrAlreadyMember
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check membership: %w", err)
	}

	existing := s.memberIDs(project.ID)

	member := &models.ProjectMember{
		ProjectID: project.ID,
		UserID:    userID,
		Role:      models.ProjectRoleMember,
		JoinedAt:  time.Now(),
	}
	if err := s.projectRepo.AddMember(member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	s.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryMemberAdded,
		Title:      fmt.Sprintf("A new member joined %q", project.Name),
		SenderID:   &userID,
		ProjectID:  &project.ID,
		Recipients: existing,
	})

	return project, nil
}

// RegenerateInviteCode replaces the project's invite code.
func (s *ProjectService) RegenerateInviteCode(projectID uint64) (*models.Project, error) {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate invite code: %w", err)
	}

	project.InviteCode = inviteCode
	if err := s.projectRepo.Update(project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}
	return project, nil
}

// RemoveMember removes a member from the project and notifies them.
func (s *ProjectService) RemoveMember(projectID, actorID, userID uint64) error {
	project, err := s.projectRepo.FindByID(projectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}

	member, err := s.projectRepo.FindMember(projectID, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrMemberNotFound
		}
		return fmt.Errorf("failed to find member: %w", err)
	}
	if member.Role == models.ProjectRoleOwner {
		return ErrCannotRemoveOwner
	}

	if err := s.projectRepo.RemoveMember(projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	// No project reference on the event: the removed user can no longer
	// see the project, and the notice must still reach them.
	s.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryMemberRemoved,
		Title:      fmt.Sprintf("You were removed from %q", project.Name),
		SenderID:   &actorID,
		Recipients: []uint64{userID},
	})

	return nil
}

// memberIDs returns the current member ids of a project; lookup failures
// degrade to an empty recipient set rather than failing the mutation.
func (s *ProjectService) memberIDs(projectID uint64) []uint64 {
	members, err := s.projectRepo.ListMembers(projectID)
	if err != nil {
		return nil
	}
	ids := make([]uint64, 0, len(members))
	for _, m := range members {
		ids = append(ids, m.UserID)
	}
	return ids
}
