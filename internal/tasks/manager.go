package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrTaskNotFound = errors.New("task not found")

// Details is an already-normalized mutation. Title, StartAt, Priority, Notes,
// Labels, DurationMinutes and ReminderOffsets keep the current value when nil;
// Due, Repeat and RepeatEnd are explicit finals (the normalizer resolves
// inheritance before a patch reaches the manager).
type Details struct {
	Title           *string
	StartAt         *time.Time
	Due             *time.Time
	Repeat          RepeatRule
	RepeatEnd       *time.Time
	Priority        *Priority
	Notes           *string
	Labels          []string
	DurationMinutes *int
	ReminderOffsets []int
}

// Manager is the single logical owner of all task mutations. Every write
// chain (apply -> propagate -> materialize -> truncate) runs under one lock
// so a series is never edited against a stale member list.
type Manager struct {
	mu          sync.Mutex
	store       Store
	horizonDays int
	now         func() time.Time
	newID       func() string

	subMu       sync.Mutex
	subscribers map[int]chan Event
	nextSubID   int

	onMaterialize func(created int)
}

func NewManager(store Store, horizonDays int) *Manager {
	if horizonDays <= 0 {
		horizonDays = 365
	}
	return &Manager{
		store:       store,
		horizonDays: horizonDays,
		now:         func() time.Time { return time.Now().UTC() },
		newID:       uuid.NewString,
		subscribers: make(map[int]chan Event),
	}
}

// SetClock overrides the time source, for tests.
func (m *Manager) SetClock(now func() time.Time) { m.now = now }

// OnMaterialize registers a callback invoked with the number of instances a
// materialization pass created. Set once at wiring time.
func (m *Manager) OnMaterialize(fn func(created int)) { m.onMaterialize = fn }

func (m *Manager) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 64)
	m.subMu.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subscribers[id] = ch
	m.subMu.Unlock()
	return ch, func() {
		m.subMu.Lock()
		defer m.subMu.Unlock()
		if c, ok := m.subscribers[id]; ok {
			delete(m.subscribers, id)
			close(c)
		}
	}
}

func (m *Manager) publish(ev Event) {
	if ev.At.IsZero() {
		ev.At = m.now()
	}
	m.subMu.Lock()
	defer m.subMu.Unlock()
	for _, ch := range m.subscribers {
		select {
		case ch <- ev:
		default:
			// Slow consumers drop events rather than stalling mutations.
		}
	}
}

// Create inserts a task and runs the series cascade when it repeats.
func (m *Manager) Create(ctx context.Context, title string, startAt time.Time, d Details) (Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return Task{}, errors.New("title is required")
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	task := Task{
		ID:        m.newID(),
		Title:     title,
		CreatedAt: now,
		StartAt:   &startAt,
		Repeat:    NoRepeat(),
		Priority:  PriorityNone,
		UpdatedAt: now,
	}
	task = mergeDetails(task, d, now)
	if err := m.store.Insert(ctx, task); err != nil {
		return Task{}, err
	}
	if err := m.cascadeLocked(ctx, &task); err != nil {
		return Task{}, err
	}
	m.publish(Event{Type: EventTaskCreated, TaskID: task.ID, SeriesID: task.SeriesID, Title: task.Title, Day: DayKey(task.StartDay())})
	return task, nil
}

// ApplyDetails applies a normalized patch to one task and cascades series
// side effects: shared-field propagation plus re-materialization while the
// task still repeats, truncation when it stops repeating.
func (m *Manager) ApplyDetails(ctx context.Context, taskID string, d Details) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return Task{}, notFound(err, taskID)
	}
	task = mergeDetails(task, d, m.now())
	if err := m.store.Update(ctx, task); err != nil {
		return Task{}, err
	}
	if err := m.cascadeLocked(ctx, &task); err != nil {
		return Task{}, err
	}
	m.publish(Event{Type: EventTaskUpdated, TaskID: task.ID, SeriesID: task.SeriesID, Title: task.Title, Day: DayKey(task.StartDay())})
	return task, nil
}

// Truncate converts one instance to non-repeating with the given cutoff and
// removes every series sibling dated after it.
func (m *Manager) Truncate(ctx context.Context, taskID string, cutoff time.Time) (Task, error) {
	end := startOfDay(cutoff)
	return m.ApplyDetails(ctx, taskID, Details{Repeat: NoRepeat(), RepeatEnd: &end})
}

// Complete marks a task done. Completing an already-done task is a no-op.
func (m *Manager) Complete(ctx context.Context, taskID string, on time.Time) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return Task{}, notFound(err, taskID)
	}
	if task.Done {
		return task, nil
	}
	if on.IsZero() {
		on = m.now()
	}
	task.Done = true
	task.CompletedAt = &on
	task.UpdatedAt = m.now()
	if err := m.store.Update(ctx, task); err != nil {
		return Task{}, err
	}
	m.publish(Event{Type: EventTaskCompleted, TaskID: task.ID, SeriesID: task.SeriesID, Title: task.Title, Day: DayKey(task.StartDay())})
	return task, nil
}

// Delete moves a task to the trash.
func (m *Manager) Delete(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	task, err := m.store.Get(ctx, taskID)
	if err != nil {
		return notFound(err, taskID)
	}
	if err := m.store.PutTrash(ctx, Trashed{Task: task, DeletedAt: m.now()}); err != nil {
		return err
	}
	if err := m.store.Delete(ctx, taskID); err != nil {
		return err
	}
	m.publish(Event{Type: EventTaskDeleted, TaskID: task.ID, SeriesID: task.SeriesID, Title: task.Title, Day: DayKey(task.StartDay())})
	return nil
}

// Restore reinserts a trashed task.
func (m *Manager) Restore(ctx context.Context, taskID string) (Task, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	item, err := m.store.GetTrash(ctx, taskID)
	if err != nil {
		return Task{}, notFound(err, taskID)
	}
	if err := m.store.Insert(ctx, item.Task); err != nil {
		return Task{}, err
	}
	if err := m.store.RemoveTrash(ctx, taskID); err != nil {
		return Task{}, err
	}
	m.publish(Event{Type: EventTaskRestored, TaskID: item.Task.ID, SeriesID: item.Task.SeriesID, Title: item.Task.Title, Day: DayKey(item.Task.StartDay())})
	return item.Task, nil
}

func (m *Manager) Get(ctx context.Context, taskID string) (Task, error) {
	t, err := m.store.Get(ctx, taskID)
	if err != nil {
		return Task{}, notFound(err, taskID)
	}
	return t, nil
}

func (m *Manager) TasksForDay(ctx context.Context, day time.Time) ([]Task, error) {
	return m.store.ListDay(ctx, day)
}

func (m *Manager) Series(ctx context.Context, seriesID string) ([]Task, error) {
	return m.store.ListSeries(ctx, seriesID)
}

func (m *Manager) Trash(ctx context.Context) ([]Trashed, error) {
	return m.store.ListTrash(ctx)
}

func (m *Manager) PurgeTrash(ctx context.Context, taskID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.store.RemoveTrash(ctx, taskID); err != nil {
		return notFound(err, taskID)
	}
	return nil
}

// DeferIncomplete moves a day's unfinished, non-repeating, due-date-free
// tasks to the next day. Repeating or due-dated tasks are skipped so their
// semantics stay intact. Returns the number of tasks moved.
func (m *Manager) DeferIncomplete(ctx context.Context, day time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list, err := m.store.ListDay(ctx, day)
	if err != nil {
		return 0, err
	}
	target := DayKey(startOfDay(day))
	moved := 0
	for _, t := range list {
		if t.Done || t.Repeat.Repeats() || t.DueAt != nil || DayKey(t.StartDay()) != target {
			continue
		}
		at := t.CreatedAt
		if t.StartAt != nil {
			at = *t.StartAt
		}
		next := at.AddDate(0, 0, 1)
		t.StartAt = &next
		t.UpdatedAt = m.now()
		if err := m.store.Update(ctx, t); err != nil {
			return moved, err
		}
		m.publish(Event{Type: EventTaskUpdated, TaskID: t.ID, Title: t.Title, Day: DayKey(t.StartDay())})
		moved++
	}
	return moved, nil
}

// mergeDetails folds a patch into a task and enforces the due/repeat
// exclusion at the storage boundary.
func mergeDetails(task Task, d Details, now time.Time) Task {
	if d.Title != nil && strings.TrimSpace(*d.Title) != "" {
		task.Title = strings.TrimSpace(*d.Title)
	}
	if d.StartAt != nil {
		task.StartAt = d.StartAt
	}
	if task.StartAt == nil {
		start := now
		task.StartAt = &start
	}

	// Exclusion is enforced here as the last line of defense; when a patch
	// carries both, the due date wins. A zero-valued rule means none.
	newDue := d.Due
	newRepeat := d.Repeat
	if newRepeat.Kind == "" {
		newRepeat = NoRepeat()
	}
	newEnd := d.RepeatEnd
	if newDue != nil {
		newRepeat = NoRepeat()
		newEnd = nil
	}
	task.DueAt = newDue
	task.Repeat = newRepeat
	task.RepeatEnd = newEnd

	if d.Priority != nil {
		task.Priority = *d.Priority
	}
	if d.Notes != nil {
		task.Notes = *d.Notes
	}
	if d.Labels != nil {
		task.Labels = d.Labels
	}
	if d.DurationMinutes != nil {
		task.DurationMinutes = *d.DurationMinutes
	}
	if d.ReminderOffsets != nil {
		task.ReminderOffsets = d.ReminderOffsets
	}
	task.UpdatedAt = now
	return task
}

func notFound(err error, taskID string) error {
	if errors.Is(err, ErrStoreNotFound) {
		return fmt.Errorf("%w: %s", ErrTaskNotFound, taskID)
	}
	return err
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
