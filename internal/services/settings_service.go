package services

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/repository"
)

var (
	ErrInvalidMuteKind   = errors.New("mute kind must be project, task or sender")
	ErrInvalidFrequency  = errors.New("frequency must be immediate, daily or never")
	ErrInvalidQuietHours = errors.New("quiet hours must be HH:mm wall-clock times")
)

// MuteKind selects which of the three mute sets a toggle applies to.
type MuteKind string

const (
	MuteKindProject MuteKind = "project"
	MuteKindTask    MuteKind = "task"
	MuteKindSender  MuteKind = "sender"
)

// SettingsService handles per-user notification preferences. Writes for the
// same user serialize on a per-user lock so a rapid double toggle cannot
// lose or duplicate an entry; different users never contend.
type SettingsService struct {
	settingsRepo repository.SettingsRepository

	mu        sync.Mutex
	userLocks map[uint64]*sync.Mutex
}

// NewSettingsService creates a new SettingsService.
func NewSettingsService(settingsRepo repository.SettingsRepository) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		userLocks:    make(map[uint64]*sync.Mutex),
	}
}

// Get returns the user's settings, creating the default row on first access.
func (s *SettingsService) Get(userID uint64) (*models.NotificationSettings, error) {
	settings, err := s.settingsRepo.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	return settings, nil
}

// UpdateSettingsInput is a partial patch; nil fields are left untouched.
type UpdateSettingsInput struct {
	EmailEnabled      *bool
	PushEnabled       *bool
	SoundAlerts       *bool
	Frequency         *models.NotificationFrequency
	QuietHoursEnabled *bool
	QuietHoursStart   *string
	QuietHoursEnd     *string
}

// Update applies a partial patch to the user's settings.
func (s *SettingsService) Update(userID uint64, input UpdateSettingsInput) (*models.NotificationSettings, error) {
	if input.Frequency != nil {
		switch *input.Frequency {
		case models.FrequencyImmediate, models.FrequencyDaily, models.FrequencyNever:
		default:
			return nil, ErrInvalidFrequency
		}
	}
	if input.QuietHoursStart != nil && !validWallClock(*input.QuietHoursStart) {
		return nil, ErrInvalidQuietHours
	}
	if input.QuietHoursEnd != nil && !validWallClock(*input.QuietHoursEnd) {
		return nil, ErrInvalidQuietHours
	}

	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	settings, err := s.settingsRepo.GetOrCreate(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if input.EmailEnabled != nil {
		settings.EmailEnabled = *input.EmailEnabled
	}
	if input.PushEnabled != nil {
		settings.PushEnabled = *input.PushEnabled
	}
	if input.SoundAlerts != nil {
		settings.SoundAlerts = *input.SoundAlerts
	}
	if input.Frequency != nil {
		settings.Frequency = *input.Frequency
	}
	if input.QuietHoursEnabled != nil {
		settings.QuietHoursEnabled = *input.QuietHoursEnabled
	}
	if input.QuietHoursStart != nil {
		settings.QuietHoursStart = *input.QuietHoursStart
	}
	if input.QuietHoursEnd != nil {
		settings.QuietHoursEnd = *input.QuietHoursEnd
	}

	if err := s.settingsRepo.Save(settings); err != nil {
		return nil, fmt.Errorf("failed to save settings: %w", err)
	}
	return settings, nil
}

// ToggleMute adds the target to the chosen mute set if absent and removes it
// if present, returning whether the target is muted afterwards. Toggling is
// its own inverse and never errors on either state.
func (s *SettingsService) ToggleMute(userID uint64, kind MuteKind, targetID uint64) (bool, error) {
	lock := s.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	settings, err := s.settingsRepo.GetOrCreate(userID)
	if err != nil {
		return false, fmt.Errorf("failed to load settings: %w", err)
	}

	var muted bool
	switch kind {
	case MuteKindProject:
		settings.MutedProjects, muted = settings.MutedProjects.Toggle(targetID)
	case MuteKindTask:
		settings.MutedTasks, muted = settings.MutedTasks.Toggle(targetID)
	case MuteKindSender:
		settings.MutedUsers, muted = settings.MutedUsers.Toggle(targetID)
	default:
		return false, ErrInvalidMuteKind
	}

	if err := s.settingsRepo.Save(settings); err != nil {
		// The toggle is observable only via the stored row, so a failed
		// save leaves the pre-call state in place.
		return false, fmt.Errorf("failed to save settings: %w", err)
	}
	return muted, nil
}

func (s *SettingsService) userLock(userID uint64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, ok := s.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		s.userLocks[userID] = lock
	}
	return lock
}

func validWallClock(value string) bool {
	if value == "" {
		return true
	}
	_, err := time.Parse("15:04", value)
	return err == nil
}
