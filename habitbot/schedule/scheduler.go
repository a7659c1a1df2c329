package schedule

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/habitloop/habitbot/habitbot/database/models"
	"github.com/habitloop/habitbot/habitbot/database/repositories"
	"github.com/habitloop/habitbot/habitbot/notifier"
)

const fireTimeout = 30 * time.Second

// TriggerKind is one of the three reminder firings installed per task.
type TriggerKind int

const (
	KindPreAlert TriggerKind = iota
	KindStart
	KindFollowUp
)

func (k TriggerKind) String() string {
	switch k {
	case KindPreAlert:
		return "pre_alert"
	case KindStart:
		return "start"
	case KindFollowUp:
		return "follow_up"
	default:
		return "unknown"
	}
}

// ZoneResolver resolves a user's configured time zone.
type ZoneResolver interface {
	ZoneFor(ctx context.Context, userID string) *time.Location
}

// Settler is invoked by the weekly Monday 00:01 firing.
type Settler interface {
	SettleWeek(ctx context.Context, now time.Time) error
}

// Options tunes the reminder offsets and the reference zone of the
// weekly settlement firing.
type Options struct {
	PreAlertLead  time.Duration
	FollowUpDelay time.Duration
	ReferenceZone *time.Location
}

// triggerContext carries everything a trigger needs, bound at
// registration time. The owner's zone is resolved once here: a user who
// changes zone later keeps firing at the old offset until the task is
// re-registered (restart or re-create).
type triggerContext struct {
	taskID int64
	userID string
	name   string
	clock  Clock
	days   Weekdays
	kind   TriggerKind
	offset time.Duration
	loc    *time.Location
}

type taskTriggers struct {
	stop chan struct{}
	once sync.Once
}

func (t *taskTriggers) close() {
	t.once.Do(func() { close(t.stop) })
}

// Scheduler owns every future firing: three gated daily reminders per
// task plus the weekly settlement. It holds no durable state; all
// registrations are derived fresh from the task table via Reconcile on
// startup. Constructed once in main and passed by handle — never a
// package-level singleton.
type Scheduler struct {
	tasks    repositories.TaskRepository
	users    repositories.UserRepository
	zones    ZoneResolver
	notify   notifier.Notifier
	settler  Settler
	opts     Options
	triggers sync.Map // task id -> *taskTriggers
	shutdown chan struct{}
	wg       sync.WaitGroup
}

func New(
	tasks repositories.TaskRepository,
	users repositories.UserRepository,
	zones ZoneResolver,
	notify notifier.Notifier,
	settler Settler,
	opts Options,
) *Scheduler {
	if opts.ReferenceZone == nil {
		opts.ReferenceZone = time.UTC
	}
	return &Scheduler{
		tasks:    tasks,
		users:    users,
		zones:    zones,
		notify:   notify,
		settler:  settler,
		opts:     opts,
		shutdown: make(chan struct{}),
	}
}

// Reconcile re-registers triggers for every persisted task. Invoked
// once at startup; it is the sole recovery path after a restart.
func (s *Scheduler) Reconcile(ctx context.Context) error {
	tasks, err := s.tasks.GetAll(ctx)
	if err != nil {
		return fmt.Errorf("failed to load tasks for reconcile: %w", err)
	}

	for _, task := range tasks {
		if err := s.RegisterTask(ctx, task); err != nil {
			slog.Error("Failed to restore task triggers",
				slog.String("type", "sched"),
				slog.Int64("task_id", task.ID),
				slog.Any("error", err))
			continue
		}
	}

	slog.Info("Scheduler reconciled",
		slog.String("type", "sched"),
		slog.Int("tasks", len(tasks)))
	return nil
}

// StartWeeklySettlement launches the Monday 00:01 firing in the
// reference zone. One firing system-wide regardless of user zones; the
// per-user-zone alternative is deliberately not implemented (see
// DESIGN.md).
func (s *Scheduler) StartWeeklySettlement() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			next := nextSettlementTime(time.Now().In(s.opts.ReferenceZone))
			timer := time.NewTimer(time.Until(next))
			select {
			case <-timer.C:
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
				if err := s.settler.SettleWeek(ctx, next); err != nil {
					slog.Error("Weekly settlement failed",
						slog.String("type", "sched"),
						slog.Any("error", err))
				}
				cancel()
			case <-s.shutdown:
				timer.Stop()
				return
			}
		}
	}()
}

// RegisterTask installs the three recurring daily triggers for a task.
// Each is gated at fire time by IsDue, so a trigger on an off day does
// nothing and does not count as fired.
func (s *Scheduler) RegisterTask(ctx context.Context, task *models.Task) error {
	clock, err := ParseClock(task.TimeStr)
	if err != nil {
		return fmt.Errorf("task %d: %w", task.ID, err)
	}
	days, err := ParseWeekdays(task.Days)
	if err != nil {
		return fmt.Errorf("task %d: %w", task.ID, err)
	}
	loc := s.zones.ZoneFor(ctx, task.UserID)

	tt := &taskTriggers{stop: make(chan struct{})}
	if _, loaded := s.triggers.LoadOrStore(task.ID, tt); loaded {
		return fmt.Errorf("task %d already registered", task.ID)
	}

	for _, trig := range []struct {
		kind   TriggerKind
		offset time.Duration
	}{
		{KindPreAlert, -s.opts.PreAlertLead},
		{KindStart, 0},
		{KindFollowUp, s.opts.FollowUpDelay},
	} {
		tc := triggerContext{
			taskID: task.ID,
			userID: task.UserID,
			name:   task.Name,
			clock:  clock,
			days:   days,
			kind:   trig.kind,
			offset: trig.offset,
			loc:    loc,
		}
		s.wg.Add(1)
		go s.runTrigger(tc, tt.stop)
	}

	slog.Debug("Task triggers registered",
		slog.String("type", "sched"),
		slog.Int64("task_id", task.ID),
		slog.String("time", clock.String()),
		slog.String("days", days.String()))
	return nil
}

// UnregisterTask stops all firings for the task. Effective once it
// returns: the stop channel is closed synchronously, and a firing
// already past its gate degrades to a no-op when the task lookup fails.
func (s *Scheduler) UnregisterTask(taskID int64) {
	v, ok := s.triggers.LoadAndDelete(taskID)
	if !ok {
		return
	}
	v.(*taskTriggers).close()
	slog.Debug("Task triggers removed",
		slog.String("type", "sched"),
		slog.Int64("task_id", taskID))
}

// Shutdown stops every trigger and waits for in-flight firings.
func (s *Scheduler) Shutdown() {
	close(s.shutdown)
	s.triggers.Range(func(_, v any) bool {
		v.(*taskTriggers).close()
		return true
	})
	s.wg.Wait()
	slog.Info("Scheduler shutdown completed", slog.String("type", "sched"))
}

// runTrigger sleeps until the trigger's next wall-clock instant in the
// owner's zone, fires, and re-arms for the next day. Recomputing the
// target each cycle keeps firings aligned through DST shifts.
func (s *Scheduler) runTrigger(tc triggerContext, stop <-chan struct{}) {
	defer s.wg.Done()
	for {
		next := nextFireTime(time.Now().In(tc.loc), tc.clock, tc.offset)
		timer := time.NewTimer(time.Until(next))
		select {
		case <-timer.C:
			s.fire(tc, next)
		case <-stop:
			timer.Stop()
			return
		case <-s.shutdown:
			timer.Stop()
			return
		}
	}
}

// fire performs one gated firing. Independent triggers never block each
// other; no lock is held across the delivery call.
func (s *Scheduler) fire(tc triggerContext, at time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), fireTimeout)
	defer cancel()

	today := DateOf(at.In(tc.loc))
	if !IsDue(tc.days, today) {
		return
	}

	// Re-read the task: it may have been deleted after scheduling, in
	// which case the firing degrades to a logged no-op.
	task, err := s.tasks.GetByID(ctx, tc.taskID)
	if err != nil {
		if errors.Is(err, repositories.ErrTaskNotFound) {
			slog.Warn("Trigger fired for removed task, skipping",
				slog.String("type", "sched"),
				slog.Int64("task_id", tc.taskID))
			return
		}
		slog.Error("Failed to load task at fire time",
			slog.String("type", "sched"),
			slog.Int64("task_id", tc.taskID),
			slog.Any("error", err))
		return
	}

	user, err := s.users.GetByDiscordID(ctx, tc.userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			slog.Warn("Trigger fired for unknown user, skipping",
				slog.String("type", "sched"),
				slog.String("user_id", tc.userID))
			return
		}
		slog.Error("Failed to load user at fire time",
			slog.String("type", "sched"),
			slog.String("user_id", tc.userID),
			slog.Any("error", err))
		return
	}

	text, actions := s.reminderMessage(tc, task.Name)
	if err := s.notify.Send(ctx, user.ChannelID, text, actions); err != nil {
		slog.Warn("Reminder delivery failed",
			slog.String("type", "sched"),
			slog.Int64("task_id", tc.taskID),
			slog.String("kind", tc.kind.String()),
			slog.Any("error", err))
	}
}

func (s *Scheduler) reminderMessage(tc triggerContext, name string) (string, []notifier.Action) {
	switch tc.kind {
	case KindPreAlert:
		return fmt.Sprintf("⚠️ Starting in %d minutes: %s!",
			int(s.opts.PreAlertLead.Minutes()), name), nil
	case KindFollowUp:
		return fmt.Sprintf("✅ %s is over — did you get it done?", name),
			[]notifier.Action{doneAction(tc.taskID)}
	default:
		return fmt.Sprintf("⏰ Time for: %s! 💪", name),
			[]notifier.Action{doneAction(tc.taskID)}
	}
}

func doneAction(taskID int64) notifier.Action {
	return notifier.Action{
		ID:    fmt.Sprintf("/done/%d", taskID),
		Label: "✅ Mark done",
		Style: notifier.StyleSuccess,
	}
}

// nextFireTime computes the next instant strictly after now at
// clock+offset in now's location. The offset can shift a firing across
// midnight in either direction, so candidates are walked by nominal
// date, starting a day back to catch late follow-ups still pending.
func nextFireTime(now time.Time, clock Clock, offset time.Duration) time.Time {
	day := DateOf(now).AddDate(0, 0, -1)
	for {
		next := time.Date(day.Year(), day.Month(), day.Day(),
			clock.Hour, clock.Minute, 0, 0, now.Location()).Add(offset)
		if next.After(now) {
			return next
		}
		day = day.AddDate(0, 0, 1)
	}
}

// nextSettlementTime computes the next Monday 00:01 after now in now's
// location.
func nextSettlementTime(now time.Time) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), 0, 1, 0, 0, now.Location())
	for ISOWeekday(next) != 1 || !next.After(now) {
		next = next.AddDate(0, 0, 1)
	}
	return next
}
