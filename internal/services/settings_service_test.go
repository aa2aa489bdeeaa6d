package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// SettingsServiceTestSuite defines the test suite for SettingsService
type SettingsServiceTestSuite struct {
	suite.Suite
	db      *gorm.DB
	service *SettingsService
}

// SetupTest runs before each test
func (suite *SettingsServiceTestSuite) SetupTest() {
	var err error

	suite.db, err = gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	suite.Require().NoError(err)

	err = suite.db.AutoMigrate(&models.NotificationSettings{})
	suite.Require().NoError(err)

	suite.service = NewSettingsService(repository.NewSettingsRepository(suite.db))
}

// TearDownTest runs after each test
func (suite *SettingsServiceTestSuite) TearDownTest() {
	sqlDB, err := suite.db.DB()
	suite.Require().NoError(err)
	sqlDB.Close()
}

// TestGetCreatesDefaultsLazily: first access creates the defaults row,
// later accesses return the same row.
func (suite *SettingsServiceTestSuite) TestGetCreatesDefaultsLazily() {
	settings, err := suite.service.Get(1)
	suite.Require().NoError(err)

	assert.Equal(suite.T(), uint64(1), settings.UserID)
	assert.True(suite.T(), settings.EmailEnabled)
	assert.True(suite.T(), settings.PushEnabled)
	assert.True(suite.T(), settings.SoundAlerts)
	assert.Equal(suite.T(), models.FrequencyImmediate, settings.Frequency)
	assert.False(suite.T(), settings.QuietHoursEnabled)
	assert.Empty(suite.T(), settings.MutedProjects)
	assert.Empty(suite.T(), settings.MutedTasks)
	assert.Empty(suite.T(), settings.MutedUsers)

	again, err := suite.service.Get(1)
	suite.Require().NoError(err)
	assert.Equal(suite.T(), settings.ID, again.ID)

	var count int64
	suite.db.Model(&models.NotificationSettings{}).Where("user_id = ?", 1).Count(&count)
	assert.Equal(suite.T(), int64(1), count)
}

// TestUpdatePartialPatch: only the provided fields change.
func (suite *SettingsServiceTestSuite) TestUpdatePartialPatch() {
	pushOff := false
	daily := models.FrequencyDaily
	updated, err := suite.service.Update(1, UpdateSettingsInput{
		PushEnabled: &pushOff,
		Frequency:   &daily,
	})
	suite.Require().NoError(err)

	assert.False(suite.T(), updated.PushEnabled)
	assert.Equal(suite.T(), models.FrequencyDaily, updated.Frequency)
	assert.True(suite.T(), updated.EmailEnabled)
	assert.True(suite.T(), updated.SoundAlerts)
}

// TestUpdateQuietHours: valid wall-clock strings persist.
func (suite *SettingsServiceTestSuite) TestUpdateQuietHours() {
	enabled := true
	start := "21:00"
	end := "07:00"
	updated, err := suite.service.Update(1, UpdateSettingsInput{
		QuietHoursEnabled: &enabled,
		QuietHoursStart:   &start,
		QuietHoursEnd:     &end,
	})
	suite.Require().NoError(err)

	assert.True(suite.T(), updated.QuietHoursEnabled)
	assert.Equal(suite.T(), "21:00", updated.QuietHoursStart)
	assert.Equal(suite.T(), "07:00", updated.QuietHoursEnd)
}

// TestUpdateRejectsInvalidFrequency
func (suite *SettingsServiceTestSuite) TestUpdateRejectsInvalidFrequency() {
	bad := models.NotificationFrequency("hourly")
	_, err := suite.service.Update(1, UpdateSettingsInput{Frequency: &bad})
	assert.ErrorIs(suite.T(), err, ErrInvalidFrequency)
}

// TestUpdateRejectsInvalidQuietHours
func (suite *SettingsServiceTestSuite) TestUpdateRejectsInvalidQuietHours() {
	bad := "25:99"
	_, err := suite.service.Update(1, UpdateSettingsInput{QuietHoursStart: &bad})
	assert.ErrorIs(suite.T(), err, ErrInvalidQuietHours)
}

// TestToggleMuteRoundTrip: toggling twice restores the original state and
// the stored row tracks each step.
func (suite *SettingsServiceTestSuite) TestToggleMuteRoundTrip() {
	muted, err := suite.service.ToggleMute(1, MuteKindProject, 7)
	suite.Require().NoError(err)
	assert.True(suite.T(), muted)

	settings, err := suite.service.Get(1)
	suite.Require().NoError(err)
	assert.True(suite.T(), settings.MutedProjects.Contains(7))

	muted, err = suite.service.ToggleMute(1, MuteKindProject, 7)
	suite.Require().NoError(err)
	assert.False(suite.T(), muted)

	settings, err = suite.service.Get(1)
	suite.Require().NoError(err)
	assert.False(suite.T(), settings.MutedProjects.Contains(7))
}

// TestToggleMuteKindsAreIndependent: each kind toggles its own set.
func (suite *SettingsServiceTestSuite) TestToggleMuteKindsAreIndependent() {
	_, err := suite.service.ToggleMute(1, MuteKindTask, 7)
	suite.Require().NoError(err)
	_, err = suite.service.ToggleMute(1, MuteKindSender, 7)
	suite.Require().NoError(err)

	settings, err := suite.service.Get(1)
	suite.Require().NoError(err)
	assert.True(suite.T(), settings.MutedTasks.Contains(7))
	assert.True(suite.T(), settings.MutedUsers.Contains(7))
	assert.False(suite.T(), settings.MutedProjects.Contains(7))
}

// TestToggleMuteRejectsUnknownKind
func (suite *SettingsServiceTestSuite) TestToggleMuteRejectsUnknownKind() {
	_, err := suite.service.ToggleMute(1, MuteKind("channel"), 7)
	assert.ErrorIs(suite.T(), err, ErrInvalidMuteKind)
}

func TestSettingsServiceTestSuite(t *testing.T) {
	suite.Run(t, new(SettingsServiceTestSuite))
}
