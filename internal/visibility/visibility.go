// Package visibility implements the role- and membership-scoped policy that
// decides which records an actor may query or be notified about. The same
// rule is exposed twice: as an instance check (CanViewTask/CanViewProject)
// used when gating event delivery, and as a GORM scope (TaskScope/
// ProjectScope) used when listing. The two forms encode the identical rule
// and must be changed together; visibility_test.go enumerates user×record
// grids to hold them equivalent.
package visibility

import (
	"errors"

	"github.com/yukikurage/taskboard-api/internal/models"
	"gorm.io/gorm"
)

// Evaluator answers visibility questions. It holds no state beyond the
// database handle it reads role and membership data from.
type Evaluator struct {
	db *gorm.DB
}

// NewEvaluator creates an Evaluator over the given database.
func NewEvaluator(db *gorm.DB) *Evaluator {
	return &Evaluator{db: db}
}

// The rule, in priority order:
//  1. An admin-role actor sees everything.
//  2. A task is visible iff the actor is a member of its project, its
//     assignee, its creator, or the task has no assignee at all (an
//     unclaimed task tolerates legacy data with missing memberships).
//  3. A project is visible iff the actor is a member or its creator.
//  4. Deny otherwise.

// CanViewTask checks the rule against a single task instance.
func (e *Evaluator) CanViewTask(actor *models.User, task *models.Task) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if task.AssigneeID == nil {
		return true, nil
	}
	if *task.AssigneeID == actor.ID || task.CreatorID == actor.ID {
		return true, nil
	}
	return e.isMember(task.ProjectID, actor.ID)
}

// CanViewProject checks the rule against a single project instance.
func (e *Evaluator) CanViewProject(actor *models.User, project *models.Project) (bool, error) {
	if actor.IsAdmin() {
		return true, nil
	}
	if project.CreatorID == actor.ID {
		return true, nil
	}
	return e.isMember(project.ID, actor.ID)
}

// TaskScope returns a query predicate selecting exactly the tasks
// CanViewTask would allow for the actor.
func (e *Evaluator) TaskScope(actor *models.User) func(db *gorm.DB) *gorm.DB {
	if actor.IsAdmin() {
		return func(db *gorm.DB) *gorm.DB { return db }
	}

	actorID := actor.ID
	return func(db *gorm.DB) *gorm.DB {
		membership := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.ProjectMember{}).
			Select("project_id").
			Where("user_id = ?", actorID)

		return db.Where(
			"tasks.assignee_id IS NULL OR tasks.assignee_id = ? OR tasks.creator_id = ? OR tasks.project_id IN (?)",
			actorID, actorID, membership,
		)
	}
}

// ProjectScope returns a query predicate selecting exactly the projects
// CanViewProject would allow for the actor.
func (e *Evaluator) ProjectScope(actor *models.User) func(db *gorm.DB) *gorm.DB {
	if actor.IsAdmin() {
		return func(db *gorm.DB) *gorm.DB { return db }
	}

	actorID := actor.ID
	return func(db *gorm.DB) *gorm.DB {
		membership := db.Session(&gorm.Session{NewDB: true}).
			Model(&models.ProjectMember{}).
			Select("project_id").
			Where("user_id = ?", actorID)

		return db.Where(
			"projects.creator_id = ? OR projects.id IN (?)",
			actorID, membership,
		)
	}
}

func (e *Evaluator) isMember(projectID, userID uint64) (bool, error) {
	var member models.ProjectMember
	err := e.db.Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
