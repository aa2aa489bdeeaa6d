// Package dispatch fans a single notification event out into per-recipient
// delivery decisions and actions: visibility filtering, suppression, the
// stored record, and live pushes.
package dispatch

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/yukikurage/taskboard-api/internal/event"
	"github.com/yukikurage/taskboard-api/internal/models"
	"github.com/yukikurage/taskboard-api/internal/realtime"
	"github.com/yukikurage/taskboard-api/internal/repository"
	"github.com/yukikurage/taskboard-api/internal/suppression"
	"github.com/yukikurage/taskboard-api/internal/visibility"
	"gorm.io/gorm"
)

// Dispatcher resolves an event's recipients and delivers to each of them
// independently. A recipient failing never aborts the others; once started,
// a dispatch runs to completion.
type Dispatcher struct {
	userRepo         repository.UserRepository
	taskRepo         repository.TaskRepository
	projectRepo      repository.ProjectRepository
	notificationRepo repository.NotificationRepository
	settingsRepo     repository.SettingsRepository
	visibility       *visibility.Evaluator
	registry         *realtime.Registry

	maxWorkers int
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher. maxWorkers bounds concurrent
// per-recipient processing.
func NewDispatcher(
	userRepo repository.UserRepository,
	taskRepo repository.TaskRepository,
	projectRepo repository.ProjectRepository,
	notificationRepo repository.NotificationRepository,
	settingsRepo repository.SettingsRepository,
	evaluator *visibility.Evaluator,
	registry *realtime.Registry,
	maxWorkers int,
) *Dispatcher {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	return &Dispatcher{
		userRepo:         userRepo,
		taskRepo:         taskRepo,
		projectRepo:      projectRepo,
		notificationRepo: notificationRepo,
		settingsRepo:     settingsRepo,
		visibility:       evaluator,
		registry:         registry,
		maxWorkers:       maxWorkers,
		now:              time.Now,
	}
}

// pushFrame is the payload written to live channels.
type pushFrame struct {
	Type         string               `json:"type"`
	Notification *models.Notification `json:"notification"`
	PlaySound    bool                 `json:"play_sound"`
	PushEnabled  bool                 `json:"push_enabled"`
}

// Dispatch fans the event out to its resolved recipients and blocks until
// every recipient has been processed.
func (d *Dispatcher) Dispatch(ev *event.Event) {
	recipients, err := d.resolveRecipients(ev)
	if err != nil {
		log.Printf("dispatch %s: failed to resolve recipients: %v", ev.Category, err)
		return
	}
	if len(recipients) == 0 {
		return
	}

	now := d.now()
	sem := make(chan struct{}, d.maxWorkers)
	var wg sync.WaitGroup
	for _, recipientID := range recipients {
		wg.Add(1)
		sem <- struct{}{}
		go func(recipientID uint64) {
			defer wg.Done()
			defer func() { <-sem }()
			if err := d.deliver(recipientID, ev, now); err != nil {
				log.Printf("dispatch %s: recipient %d skipped: %v", ev.Category, recipientID, err)
			}
		}(recipientID)
	}
	wg.Wait()
}

// resolveRecipients expands the event's targeting strategy into a candidate
// set: explicit targets and mentions, plus every admin for a broadcast. The
// sender never notifies themselves.
func (d *Dispatcher) resolveRecipients(ev *event.Event) ([]uint64, error) {
	candidates := make([]uint64, 0, len(ev.Recipients)+len(ev.Mentions))
	candidates = append(candidates, ev.Recipients...)
	candidates = append(candidates, ev.Mentions...)

	if ev.Broadcast {
		admins, err := d.userRepo.ListAdmins()
		if err != nil {
			return nil, fmt.Errorf("failed to list admins: %w", err)
		}
		for _, admin := range admins {
			candidates = append(candidates, admin.ID)
		}
	}

	seen := make(map[uint64]struct{}, len(candidates))
	recipients := make([]uint64, 0, len(candidates))
	for _, id := range candidates {
		if ev.SenderID != nil && id == *ev.SenderID {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		recipients = append(recipients, id)
	}
	return recipients, nil
}

// deliver processes one recipient: visibility gate, suppression decision,
// stored record, live pushes. Errors are soft skips reported to the caller
// for logging.
func (d *Dispatcher) deliver(recipientID uint64, ev *event.Event, now time.Time) error {
	recipient, err := d.userRepo.FindByID(recipientID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("recipient no longer exists")
		}
		return fmt.Errorf("failed to load recipient: %w", err)
	}

	allowed, err := d.canViewReference(recipient, ev)
	if err != nil {
		return err
	}
	if !allowed {
		// Never notify a user about something they may not see.
		return nil
	}

	settings, err := d.settingsRepo.GetOrCreate(recipientID)
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	result := suppression.Decide(settings, ev, now)
	if result.Decision == suppression.Drop {
		return nil
	}

	notification := &models.Notification{
		RecipientID: recipientID,
		SenderID:    ev.SenderID,
		Category:    string(ev.Category),
		Title:       ev.Title,
		Body:        ev.Body,
		Meta: models.NotificationMeta{
			TaskID:    ev.TaskID,
			ProjectID: ev.ProjectID,
		},
	}
	if err := d.notificationRepo.Create(notification); err != nil {
		return fmt.Errorf("failed to store notification: %w", err)
	}

	if result.Decision != suppression.LiveAndStore {
		return nil
	}

	payload, err := json.Marshal(pushFrame{
		Type:         "notification",
		Notification: notification,
		PlaySound:    result.PlaySound,
		PushEnabled:  result.PushEnabled,
	})
	if err != nil {
		return fmt.Errorf("failed to encode push payload: %w", err)
	}

	for _, channel := range d.registry.ChannelsFor(recipientID) {
		// Fire and forget: a full buffer or closed channel only costs
		// that channel its push.
		_ = channel.Send(payload)
	}
	return nil
}

// canViewReference applies the visibility policy to the event's referenced
// resource. A reference that no longer exists is a soft skip, not an error.
func (d *Dispatcher) canViewReference(recipient *models.User, ev *event.Event) (bool, error) {
	if ev.TaskID != nil {
		task, err := d.taskRepo.FindByID(*ev.TaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to load task: %w", err)
		}
		return d.visibility.CanViewTask(recipient, task)
	}

	if ev.ProjectID != nil {
		project, err := d.projectRepo.FindByID(*ev.ProjectID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return false, nil
			}
			return false, fmt.Errorf("failed to load project: %w", err)
		}
		return d.visibility.CanViewProject(recipient, project)
	}

	// Events without a resource reference (e.g. system announcements)
	// have nothing to gate on.
	return true, nil
}
