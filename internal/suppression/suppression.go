// Package suppression decides, for one recipient and one candidate event,
// whether delivery is live, store-only, or dropped entirely. The decision is
// a pure function over a settings snapshot and a clock reading, so it can be
// evaluated concurrently for many recipients without coordination.
package suppression

import (
	"time"

	"github.com/yukikurage/taskboard-api/internal/event"
	"github.com/yukikurage/taskboard-api/internal/models"
)

// Decision is the delivery verdict for one (recipient, event) pair.
type Decision int

const (
	// Drop suppresses the event entirely, including the stored copy.
	Drop Decision = iota
	// StoreOnly persists the notification but withholds the live push.
	StoreOnly
	// LiveAndStore persists the notification and pushes it to every live
	// channel of the recipient.
	LiveAndStore
)

func (d Decision) String() string {
	switch d {
	case Drop:
		return "drop"
	case StoreOnly:
		return "store_only"
	case LiveAndStore:
		return "live_and_store"
	}
	return "unknown"
}

// Result carries the decision plus the delivery hints attached to a live
// push.
type Result struct {
	Decision    Decision
	PlaySound   bool
	PushEnabled bool
}

// Decide evaluates the suppression sources in their fixed total order, first
// match wins:
//
//  1. frequency "never" kills frequency-gated events outright; unlike quiet
//     hours it suppresses even the stored copy, so a muted-away event cannot
//     reappear later ("daily" withholds the push but keeps the record for
//     the digest);
//  2. a muted task or project drops the event;
//  3. a muted sender drops the event;
//  4. active quiet hours defer the push but keep the record;
//  5. otherwise deliver live with the recipient's sound/push hints.
//
// The quiet-hours window is compared naively on the same day as wall-clock
// HH:mm. A window with start > end (spanning midnight) is not unwrapped:
// only its same-day evening segment matches and the post-midnight stretch
// is lost. Longstanding behavior; the tests pin it.
func Decide(settings *models.NotificationSettings, ev *event.Event, now time.Time) Result {
	if ev.Category.FrequencyGated() && settings.Frequency == models.FrequencyNever {
		return Result{Decision: Drop}
	}

	if ev.TaskID != nil && settings.MutedTasks.Contains(*ev.TaskID) {
		return Result{Decision: Drop}
	}
	if ev.ProjectID != nil && settings.MutedProjects.Contains(*ev.ProjectID) {
		return Result{Decision: Drop}
	}

	if ev.SenderID != nil && settings.MutedUsers.Contains(*ev.SenderID) {
		return Result{Decision: Drop}
	}

	if ev.Category.FrequencyGated() && settings.Frequency == models.FrequencyDaily {
		return Result{Decision: StoreOnly}
	}

	if settings.QuietHoursEnabled && inQuietHours(settings, now) {
		return Result{Decision: StoreOnly}
	}

	return Result{
		Decision:    LiveAndStore,
		PlaySound:   settings.SoundAlerts,
		PushEnabled: settings.PushEnabled,
	}
}

// inQuietHours compares zero-padded HH:mm strings; lexicographic order on
// them matches chronological order within one day.
func inQuietHours(settings *models.NotificationSettings, now time.Time) bool {
	if settings.QuietHoursStart == "" || settings.QuietHoursEnd == "" {
		return false
	}
	current := now.Format("15:04")
	if current < settings.QuietHoursStart {
		return false
	}
	if settings.QuietHoursStart > settings.QuietHoursEnd {
		// The window spans midnight but is never unwrapped; everything
		// from start to end of day matches and the post-midnight
		// stretch is dropped.
		return true
	}
	return current < settings.QuietHoursEnd
}
