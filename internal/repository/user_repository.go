package repository

import (
	"github.com/yukikurage/taskboard-api/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

// CreateWithPersonalProject creates a user, their personal project, and the
// owner membership within a single transaction.
func (r *GormUserRepository) CreateWithPersonalProject(user *models.User, project *models.Project, member *models.ProjectMember) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(user).Error; err != nil {
			return err
		}

		project.CreatorID = user.ID
		if err := tx.Create(project).Error; err != nil {
			return err
		}

		member.ProjectID = project.ID
		member.UserID = user.ID
		return tx.Create(member).Error
	})
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByUsername finds a user by username
func (r *GormUserRepository) FindByUsername(username string) (*models.User, error) {
	var user models.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// ListAdmins lists every user holding the elevated role tag
func (r *GormUserRepository) ListAdmins() ([]models.User, error) {
	var users []models.User
	if err := r.db.Where("role = ?", models.UserRoleAdmin).Find(&users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
