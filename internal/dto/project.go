package dto

import (
	"time"

	"github.com/yukikurage/taskboard-api/internal/models"
)

// ProjectWithRoleDTO represents a project with the user's role
type ProjectWithRoleDTO struct {
	ProjectDTO
	Role models.ProjectRole `json:"role"`
}

// ProjectMemberDTO represents a member in a project
type ProjectMemberDTO struct {
	User     UserDTO            `json:"user"`
	Role     models.ProjectRole `json:"role"`
	JoinedAt time.Time          `json:"joined_at"`
}

// ProjectDetailDTO represents detailed project information
type ProjectDetailDTO struct {
	ProjectDTO
	Members []ProjectMemberDTO `json:"members"`
}

// ToProjectWithRoleDTO converts a project membership to DTO with role
func ToProjectWithRoleDTO(member models.ProjectMember) ProjectWithRoleDTO {
	return ProjectWithRoleDTO{
		ProjectDTO: ToProjectDTO(member.Project, false),
		Role:       member.Role,
	}
}

// ToProjectMemberDTO converts a member to DTO
func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	return ProjectMemberDTO{
		User:     ToUserDTO(member.User),
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

// ToProjectDetailDTO converts a project with members to detailed DTO
func ToProjectDetailDTO(project models.Project, members []models.ProjectMember) ProjectDetailDTO {
	memberDTOs := make([]ProjectMemberDTO, len(members))
	for i, member := range members {
		memberDTOs[i] = ToProjectMemberDTO(member)
	}

	return ProjectDetailDTO{
		ProjectDTO: ToProjectDTO(project, true),
		Members:    memberDTOs,
	}
}
