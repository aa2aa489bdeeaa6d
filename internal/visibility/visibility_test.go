package visibility

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskboard-api/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// EvaluatorTestSuite defines the test suite for the visibility Evaluator
type EvaluatorTestSuite struct {
	suite.Suite
	db        *gorm.DB
	evaluator *Evaluator
}

// SetupTest runs before each test
func (suite *EvaluatorTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.RoleGrant{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
	)
	suite.Require().NoError(err)

	suite.evaluator = NewEvaluator(suite.db)
}

// TearDownTest runs after each test
func (suite *EvaluatorTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *EvaluatorTestSuite) createUser(username string, role models.UserRole) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

func (suite *EvaluatorTestSuite) createProject(name string, creatorID uint64) *models.Project {
	project := &models.Project{
		Name:       name,
		InviteCode: name + "_CODE",
		CreatorID:  creatorID,
	}
	suite.db.Create(project)
	return project
}

func (suite *EvaluatorTestSuite) addMember(projectID, userID uint64) {
	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      models.ProjectRoleMember,
		JoinedAt:  time.Now(),
	}
	suite.db.Create(member)
}

func (suite *EvaluatorTestSuite) createTask(title string, creatorID, projectID uint64, assigneeID *uint64) *models.Task {
	task := &models.Task{
		Title:      title,
		CreatorID:  creatorID,
		ProjectID:  projectID,
		AssigneeID: assigneeID,
	}
	suite.db.Create(task)
	return task
}

// scopedTaskIDs runs the list-side predicate and returns the visible ids.
func (suite *EvaluatorTestSuite) scopedTaskIDs(actor *models.User) map[uint64]bool {
	var tasks []models.Task
	err := suite.db.Scopes(suite.evaluator.TaskScope(actor)).Find(&tasks).Error
	suite.Require().NoError(err)

	ids := make(map[uint64]bool, len(tasks))
	for _, task := range tasks {
		ids[task.ID] = true
	}
	return ids
}

func (suite *EvaluatorTestSuite) scopedProjectIDs(actor *models.User) map[uint64]bool {
	var projects []models.Project
	err := suite.db.Scopes(suite.evaluator.ProjectScope(actor)).Find(&projects).Error
	suite.Require().NoError(err)

	ids := make(map[uint64]bool, len(projects))
	for _, project := range projects {
		ids[project.ID] = true
	}
	return ids
}

// TestTaskGridEquivalence enumerates every user against every task and checks
// that the instance check and the query scope agree on each pair.
func (suite *EvaluatorTestSuite) TestTaskGridEquivalence() {
	admin := suite.createUser("admin", models.UserRoleAdmin)
	alice := suite.createUser("alice", models.UserRoleMember)
	bob := suite.createUser("bob", models.UserRoleMember)
	outsider := suite.createUser("outsider", models.UserRoleMember)

	p1 := suite.createProject("p1", alice.ID)
	suite.addMember(p1.ID, alice.ID)
	suite.addMember(p1.ID, bob.ID)
	p2 := suite.createProject("p2", outsider.ID)
	suite.addMember(p2.ID, outsider.ID)

	tasks := []*models.Task{
		suite.createTask("unclaimed", alice.ID, p1.ID, nil),
		suite.createTask("assigned to alice", alice.ID, p1.ID, &alice.ID),
		suite.createTask("assigned to bob", alice.ID, p1.ID, &bob.ID),
		suite.createTask("outsider created, bob assigned", outsider.ID, p1.ID, &bob.ID),
		suite.createTask("foreign project", outsider.ID, p2.ID, &outsider.ID),
	}
	users := []*models.User{admin, alice, bob, outsider}

	for _, user := range users {
		listed := suite.scopedTaskIDs(user)
		for _, task := range tasks {
			canView, err := suite.evaluator.CanViewTask(user, task)
			suite.Require().NoError(err)
			assert.Equal(suite.T(), canView, listed[task.ID],
				fmt.Sprintf("user %s, task %q: instance check and scope disagree", user.Username, task.Title))
		}
	}
}

// TestUnassignedTaskVisibleToEveryone covers the unclaimed-task clause.
func (suite *EvaluatorTestSuite) TestUnassignedTaskVisibleToEveryone() {
	alice := suite.createUser("alice", models.UserRoleMember)
	outsider := suite.createUser("outsider", models.UserRoleMember)

	p1 := suite.createProject("p1", alice.ID)
	suite.addMember(p1.ID, alice.ID)
	task := suite.createTask("unclaimed", alice.ID, p1.ID, nil)

	canView, err := suite.evaluator.CanViewTask(outsider, task)
	suite.Require().NoError(err)
	assert.True(suite.T(), canView)
	assert.True(suite.T(), suite.scopedTaskIDs(outsider)[task.ID])
}

// TestAdminSeesEverything checks the elevated fast path on both forms.
func (suite *EvaluatorTestSuite) TestAdminSeesEverything() {
	admin := suite.createUser("admin", models.UserRoleAdmin)
	alice := suite.createUser("alice", models.UserRoleMember)

	p1 := suite.createProject("p1", alice.ID)
	suite.addMember(p1.ID, alice.ID)
	task := suite.createTask("private", alice.ID, p1.ID, &alice.ID)

	canView, err := suite.evaluator.CanViewTask(admin, task)
	suite.Require().NoError(err)
	assert.True(suite.T(), canView)

	canView, err = suite.evaluator.CanViewProject(admin, p1)
	suite.Require().NoError(err)
	assert.True(suite.T(), canView)

	assert.True(suite.T(), suite.scopedTaskIDs(admin)[task.ID])
	assert.True(suite.T(), suite.scopedProjectIDs(admin)[p1.ID])
}

// TestProjectGridEquivalence mirrors the task grid for projects.
func (suite *EvaluatorTestSuite) TestProjectGridEquivalence() {
	admin := suite.createUser("admin", models.UserRoleAdmin)
	alice := suite.createUser("alice", models.UserRoleMember)
	bob := suite.createUser("bob", models.UserRoleMember)
	outsider := suite.createUser("outsider", models.UserRoleMember)

	p1 := suite.createProject("p1", alice.ID)
	suite.addMember(p1.ID, alice.ID)
	suite.addMember(p1.ID, bob.ID)
	p2 := suite.createProject("p2", bob.ID)
	suite.addMember(p2.ID, bob.ID)

	projects := []*models.Project{p1, p2}
	users := []*models.User{admin, alice, bob, outsider}

	for _, user := range users {
		listed := suite.scopedProjectIDs(user)
		for _, project := range projects {
			canView, err := suite.evaluator.CanViewProject(user, project)
			suite.Require().NoError(err)
			assert.Equal(suite.T(), canView, listed[project.ID],
				fmt.Sprintf("user %s, project %q: instance check and scope disagree", user.Username, project.Name))
		}
	}
}

// TestCreatorSeesOwnProject covers creator access without a membership row.
func (suite *EvaluatorTestSuite) TestCreatorSeesOwnProject() {
	alice := suite.createUser("alice", models.UserRoleMember)
	project := suite.createProject("orphaned", alice.ID)

	canView, err := suite.evaluator.CanViewProject(alice, project)
	suite.Require().NoError(err)
	assert.True(suite.T(), canView)
	assert.True(suite.T(), suite.scopedProjectIDs(alice)[project.ID])
}

func TestEvaluatorTestSuite(t *testing.T) {
	suite.Run(t, new(EvaluatorTestSuite))
}
