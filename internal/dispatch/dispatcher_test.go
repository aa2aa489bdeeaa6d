package dispatch

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskboard-api/internal/event"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/realtime"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/visibility"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// fakeWire records writes in memory in place of a real websocket.
type fakeWire struct {
	mu       sync.Mutex
	messages [][]byte
}

func (f *fakeWire) WriteMessage(messageType int, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if data != nil {
		f.messages = append(f.messages, data)
	}
	return nil
}

func (f *fakeWire) WriteControl(messageType int, data []byte, deadline time.Time) error {
	return nil
}

func (f *fakeWire) SetWriteDeadline(t time.Time) error { return nil }

func (f *fakeWire) Close() error { return nil }

func (f *fakeWire) messageCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages)
}

func (f *fakeWire) lastMessage() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.messages) == 0 {
		return nil
	}
	return f.messages[len(f.messages)-1]
}

// DispatcherTestSuite defines the test suite for the Dispatcher
type DispatcherTestSuite struct {
	suite.Suite
	db         *gorm.DB
	registry   *realtime.Registry
	dispatcher *Dispatcher
}

// SetupTest runs before each test
func (suite *DispatcherTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(
		&models.User{},
		&models.RoleGrant{},
		&models.Project{},
		&models.ProjectMember{},
		&models.Task{},
		&models.Notification{},
		&models.NotificationSettings{},
	)
	suite.Require().NoError(err)

	evaluator := visibility.NewEvaluator(suite.db)
	suite.registry = realtime.NewRegistry()
	suite.dispatcher = NewDispatcher(
		repository.NewUserRepository(suite.db),
		repository.NewTaskRepository(suite.db, evaluator),
		repository.NewProjectRepository(suite.db),
		repository.NewNotificationRepository(suite.db),
		repository.NewSettingsRepository(suite.db),
		evaluator,
		suite.registry,
		4,
	)
}

// TearDownTest runs after each test
func (suite *DispatcherTestSuite) TearDownTest() {
	suite.registry.Close()
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

func (suite *DispatcherTestSuite) createUser(username string, role models.UserRole) *models.User {
	user := &models.User{
		Username:     username,
		PasswordHash: "hashedpassword",
		Role:         role,
	}
	suite.db.Create(user)
	return user
}

func (suite *DispatcherTestSuite) createProject(name string, creatorID uint64, memberIDs ...uint64) *models.Project {
	project := &models.Project{
		Name:       name,
		InviteCode: name + "_CODE",
		CreatorID:  creatorID,
	}
	suite.db.Create(project)
	for _, userID := range memberIDs {
		suite.db.Create(&models.ProjectMember{
			ProjectID: project.ID,
			UserID:    userID,
			Role:      models.ProjectRoleMember,
			JoinedAt:  time.Now(),
		})
	}
	return project
}

func (suite *DispatcherTestSuite) createTask(title string, creatorID, projectID uint64, assigneeID *uint64) *models.Task {
	task := &models.Task{
		Title:      title,
		CreatorID:  creatorID,
		ProjectID:  projectID,
		AssigneeID: assigneeID,
	}
	suite.db.Create(task)
	return task
}

func (suite *DispatcherTestSuite) saveSettings(settings *models.NotificationSettings) {
	suite.Require().NoError(suite.db.Create(settings).Error)
}

func (suite *DispatcherTestSuite) registerChannel(userID uint64) *fakeWire {
	ws := &fakeWire{}
	suite.registry.Register(realtime.NewConnection(userID, ws))
	return ws
}

func (suite *DispatcherTestSuite) storedNotifications(recipientID uint64) []models.Notification {
	var notifications []models.Notification
	suite.Require().NoError(
		suite.db.Where("recipient_id = ?", recipientID).Find(&notifications).Error)
	return notifications
}

// TestDispatchDefaultsStoreAndPushAllChannels covers the default-settings
// path: one stored unread record and a push on every live channel of the
// recipient, with sound on.
func (suite *DispatcherTestSuite) TestDispatchDefaultsStoreAndPushAllChannels() {
	sender := suite.createUser("sender", models.UserRoleMember)
	recipient := suite.createUser("recipient", models.UserRoleMember)
	project := suite.createProject("p1", sender.ID, sender.ID, recipient.ID)
	task := suite.createTask("task", sender.ID, project.ID, &recipient.ID)

	laptop := suite.registerChannel(recipient.ID)
	phone := suite.registerChannel(recipient.ID)

	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryTaskAssigned,
		Title:      "Task assigned",
		Body:       "task",
		SenderID:   &sender.ID,
		TaskID:     &task.ID,
		Recipients: []uint64{recipient.ID},
	})

	stored := suite.storedNotifications(recipient.ID)
	suite.Require().Len(stored, 1)
	assert.False(suite.T(), stored[0].Read)
	assert.Equal(suite.T(), string(event.CategoryTaskAssigned), stored[0].Category)
	suite.Require().NotNil(stored[0].Meta.TaskID)
	assert.Equal(suite.T(), task.ID, *stored[0].Meta.TaskID)

	suite.Require().Eventually(func() bool {
		return laptop.messageCount() == 1 && phone.messageCount() == 1
	}, time.Second, 5*time.Millisecond)

	var frame struct {
		Type         string               `json:"type"`
		Notification *models.Notification `json:"notification"`
		PlaySound    bool                 `json:"play_sound"`
		PushEnabled  bool                 `json:"push_enabled"`
	}
	suite.Require().NoError(json.Unmarshal(laptop.lastMessage(), &frame))
	assert.Equal(suite.T(), "notification", frame.Type)
	suite.Require().NotNil(frame.Notification)
	assert.Equal(suite.T(), stored[0].ID, frame.Notification.ID)
	assert.True(suite.T(), frame.PlaySound)
	assert.True(suite.T(), frame.PushEnabled)
}

// TestDispatchMutedProjectDropsEntirely covers the muted-project path:
// nothing stored, nothing pushed.
func (suite *DispatcherTestSuite) TestDispatchMutedProjectDropsEntirely() {
	sender := suite.createUser("sender", models.UserRoleMember)
	recipient := suite.createUser("recipient", models.UserRoleMember)
	project := suite.createProject("p1", sender.ID, sender.ID, recipient.ID)
	task := suite.createTask("task", sender.ID, project.ID, &recipient.ID)

	settings := models.DefaultNotificationSettings(recipient.ID)
	settings.MutedProjects = models.IDSet{project.ID}
	suite.saveSettings(settings)

	ws := suite.registerChannel(recipient.ID)

	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryCommentPosted,
		Title:      "New comment",
		SenderID:   &sender.ID,
		TaskID:     &task.ID,
		ProjectID:  &project.ID,
		Recipients: []uint64{recipient.ID},
	})

	assert.Empty(suite.T(), suite.storedNotifications(recipient.ID))
	assert.Equal(suite.T(), 0, ws.messageCount())
}

// TestDispatchMutedSenderDrops covers the muted-sender path.
func (suite *DispatcherTestSuite) TestDispatchMutedSenderDrops() {
	sender := suite.createUser("sender", models.UserRoleMember)
	recipient := suite.createUser("recipient", models.UserRoleMember)
	project := suite.createProject("p1", sender.ID, sender.ID, recipient.ID)
	task := suite.createTask("task", sender.ID, project.ID, &recipient.ID)

	settings := models.DefaultNotificationSettings(recipient.ID)
	settings.MutedUsers = models.IDSet{sender.ID}
	suite.saveSettings(settings)

	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryCommentPosted,
		Title:      "New comment",
		SenderID:   &sender.ID,
		TaskID:     &task.ID,
		Recipients: []uint64{recipient.ID},
	})

	assert.Empty(suite.T(), suite.storedNotifications(recipient.ID))
}

// TestDispatchFrequencyNeverDrops covers the frequency gate for gated
// categories.
func (suite *DispatcherTestSuite) TestDispatchFrequencyNeverDrops() {
	sender := suite.createUser("sender", models.UserRoleMember)
	recipient := suite.createUser("recipient", models.UserRoleMember)
	project := suite.createProject("p1", sender.ID, sender.ID, recipient.ID)
	task := suite.createTask("task", sender.ID, project.ID, &recipient.ID)

	settings := models.DefaultNotificationSettings(recipient.ID)
	settings.Frequency = models.FrequencyNever
	suite.saveSettings(settings)

	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryTaskAssigned,
		Title:      "Task assigned",
		SenderID:   &sender.ID,
		TaskID:     &task.ID,
		Recipients: []uint64{recipient.ID},
	})

	assert.Empty(suite.T(), suite.storedNotifications(recipient.ID))
}

// TestDispatchQuietHoursStoresWithoutPush fixes the clock inside the quiet
// window: a record is stored but no channel is pushed to.
func (suite *DispatcherTestSuite) TestDispatchQuietHoursStoresWithoutPush() {
	sender := suite.createUser("sender", models.UserRoleMember)
	recipient := suite.createUser("recipient", models.UserRoleMember)
	project := suite.createProject("p1", sender.ID, sender.ID, recipient.ID)
	task := suite.createTask("task", sender.ID, project.ID, &recipient.ID)

	settings := models.DefaultNotificationSettings(recipient.ID)
	settings.QuietHoursEnabled = true
	settings.QuietHoursStart = "21:00"
	settings.QuietHoursEnd = "07:00"
	suite.saveSettings(settings)

	suite.dispatcher.now = func() time.Time {
		return time.Date(2026, 1, 1, 22, 0, 0, 0, time.UTC)
	}

	ws := suite.registerChannel(recipient.ID)

	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryTaskAssigned,
		Title:      "Task assigned",
		SenderID:   &sender.ID,
		TaskID:     &task.ID,
		Recipients: []uint64{recipient.ID},
	})

	stored := suite.storedNotifications(recipient.ID)
	suite.Require().Len(stored, 1)
	assert.False(suite.T(), stored[0].Read)
	assert.Equal(suite.T(), 0, ws.messageCount())
}

// TestDispatchSkipsInvisibleRecipient: a recipient who may not see the
// referenced task gets nothing, with no error surfaced.
func (suite *DispatcherTestSuite) TestDispatchSkipsInvisibleRecipient() {
	sender := suite.createUser("sender", models.UserRoleMember)
	assignee := suite.createUser("assignee", models.UserRoleMember)
	outsider := suite.createUser("outsider", models.UserRoleMember)
	project := suite.createProject("p1", sender.ID, sender.ID, assignee.ID)
	task := suite.createTask("task", sender.ID, project.ID, &assignee.ID)

	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryTaskAssigned,
		Title:      "Task assigned",
		SenderID:   &sender.ID,
		TaskID:     &task.ID,
		Recipients: []uint64{assignee.ID, outsider.ID},
	})

	assert.Len(suite.T(), suite.storedNotifications(assignee.ID), 1)
	assert.Empty(suite.T(), suite.storedNotifications(outsider.ID))
}

// TestDispatchExcludesSenderAndDeduplicates: the sender is never a recipient
// and a user targeted twice gets a single record.
func (suite *DispatcherTestSuite) TestDispatchExcludesSenderAndDeduplicates() {
	sender := suite.createUser("sender", models.UserRoleMember)
	recipient := suite.createUser("recipient", models.UserRoleMember)
	project := suite.createProject("p1", sender.ID, sender.ID, recipient.ID)
	task := suite.createTask("task", sender.ID, project.ID, &recipient.ID)

	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryMention,
		Title:      "You were mentioned",
		SenderID:   &sender.ID,
		TaskID:     &task.ID,
		Recipients: []uint64{recipient.ID, sender.ID},
		Mentions:   []uint64{recipient.ID},
	})

	assert.Len(suite.T(), suite.storedNotifications(recipient.ID), 1)
	assert.Empty(suite.T(), suite.storedNotifications(sender.ID))
}

// TestDispatchBroadcastReachesAdmins: a broadcast event with no resource
// reference reaches every admin.
func (suite *DispatcherTestSuite) TestDispatchBroadcastReachesAdmins() {
	admin := suite.createUser("admin", models.UserRoleAdmin)
	member := suite.createUser("member", models.UserRoleMember)

	suite.dispatcher.Dispatch(&event.Event{
		Category:  event.CategorySystem,
		Title:     "Maintenance window",
		Broadcast: true,
	})

	assert.Len(suite.T(), suite.storedNotifications(admin.ID), 1)
	assert.Empty(suite.T(), suite.storedNotifications(member.ID))
}

// TestDispatchDeletedTaskReferenceIsSoftSkip: an event pointing at a task
// that no longer exists delivers nothing and does not fail the dispatch.
func (suite *DispatcherTestSuite) TestDispatchDeletedTaskReferenceIsSoftSkip() {
	sender := suite.createUser("sender", models.UserRoleMember)
	recipient := suite.createUser("recipient", models.UserRoleMember)

	missingTaskID := uint64(9999)
	suite.dispatcher.Dispatch(&event.Event{
		Category:   event.CategoryTaskAssigned,
		Title:      "Task assigned",
		SenderID:   &sender.ID,
		TaskID:     &missingTaskID,
		Recipients: []uint64{recipient.ID},
	})

	assert.Empty(suite.T(), suite.storedNotifications(recipient.ID))
}

func TestDispatcherTestSuite(t *testing.T) {
	suite.Run(t, new(DispatcherTestSuite))
}
