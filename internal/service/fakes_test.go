package service

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/events"
	"github.com/phrazzld/taskhub-api/internal/store"
	"github.com/stretchr/testify/mock"
)

var testLogger = slog.New(slog.NewTextHandler(io.Discard, nil))

type assignmentKey struct {
	taskID uuid.UUID
	userID uuid.UUID
}

// memDB is an in-memory database shared by the fake stores below.
type memDB struct {
	mu            sync.Mutex
	tasks         map[uuid.UUID]domain.Task
	assignments   map[assignmentKey]domain.Assignment
	users         map[uuid.UUID]domain.User
	notifications map[uuid.UUID]domain.Notification

	// failures injected per operation name
	failures map[string]error
}

func newMemDB() *memDB {
	return &memDB{
		tasks:         make(map[uuid.UUID]domain.Task),
		assignments:   make(map[assignmentKey]domain.Assignment),
		users:         make(map[uuid.UUID]domain.User),
		notifications: make(map[uuid.UUID]domain.Notification),
		failures:      make(map[string]error),
	}
}

func (db *memDB) fail(op string) error {
	return db.failures[op]
}

func (db *memDB) addUser() uuid.UUID {
	db.mu.Lock()
	defer db.mu.Unlock()
	id := uuid.New()
	db.users[id] = domain.User{ID: id, Email: id.String() + "@example.com", Role: domain.RoleUser}
	return id
}

func (db *memDB) snapshot() *memDB {
	db.mu.Lock()
	defer db.mu.Unlock()
	cp := newMemDB()
	for k, v := range db.tasks {
		cp.tasks[k] = v
	}
	for k, v := range db.assignments {
		cp.assignments[k] = v
	}
	for k, v := range db.users {
		cp.users[k] = v
	}
	for k, v := range db.notifications {
		cp.notifications[k] = v
	}
	return cp
}

func (db *memDB) restore(from *memDB) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.tasks = from.tasks
	db.assignments = from.assignments
	db.users = from.users
	db.notifications = from.notifications
}

// memTransactor rolls the memDB back when fn fails.
type memTransactor struct {
	db      *memDB
	commits int
}

func (t *memTransactor) WithinTx(ctx context.Context, fn store.TxFn) error {
	before := t.db.snapshot()
	if err := fn(ctx, nil); err != nil {
		t.db.restore(before)
		return err
	}
	t.commits++
	return nil
}

type memTaskStore struct{ db *memDB }

func (s *memTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := s.db.fail("task.create"); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	if _, ok := s.db.users[task.OwnerID]; !ok {
		return store.ErrUserNotFound
	}
	s.db.tasks[task.ID] = *task
	return nil
}

func (s *memTaskStore) GetOwned(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}
	return &t, nil
}

func (s *memTaskStore) GetOwnedForUpdate(ctx context.Context, id, ownerID uuid.UUID) (*domain.Task, error) {
	return s.GetOwned(ctx, id, ownerID)
}

func (s *memTaskStore) GetVisible(ctx context.Context, id, userID uuid.UUID) (*domain.Task, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tasks[id]
	if !ok {
		return nil, store.ErrTaskNotFound
	}
	if t.OwnerID == userID {
		return &t, nil
	}
	if _, ok := s.db.assignments[assignmentKey{id, userID}]; ok {
		return &t, nil
	}
	return nil, store.ErrTaskNotFound
}

func (s *memTaskStore) List(ctx context.Context, userID uuid.UUID, q domain.TaskQuery) ([]*domain.Task, int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	var matched []*domain.Task
	for _, t := range s.db.tasks {
		t := t
		switch q.Scope {
		case domain.ScopeAssigned:
			if _, ok := s.db.assignments[assignmentKey{t.ID, userID}]; !ok {
				continue
			}
		default:
			if t.OwnerID != userID {
				continue
			}
		}
		if q.Status != "" && t.Status != q.Status {
			continue
		}
		if q.Search != "" {
			needle := strings.ToLower(q.Search)
			desc := ""
			if t.Description != nil {
				desc = *t.Description
			}
			if !strings.Contains(strings.ToLower(t.Title), needle) && !strings.Contains(strings.ToLower(desc), needle) {
				continue
			}
		}
		matched = append(matched, &t)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })

	total := len(matched)
	start := q.Offset()
	if start > total {
		start = total
	}
	end := start + q.PageSize
	if end > total {
		end = total
	}
	return matched[start:end], total, nil
}

func (s *memTaskStore) Update(ctx context.Context, task *domain.Task, expectedVersion int) error {
	if err := s.db.fail("task.update"); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	cur, ok := s.db.tasks[task.ID]
	if !ok || cur.OwnerID != task.OwnerID {
		return store.ErrTaskNotFound
	}
	if expectedVersion != 0 && cur.Version != expectedVersion {
		return store.ErrVersionMismatch
	}
	s.db.tasks[task.ID] = *task
	return nil
}

func (s *memTaskStore) Delete(ctx context.Context, id, ownerID uuid.UUID) error {
	if err := s.db.fail("task.delete"); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	t, ok := s.db.tasks[id]
	if !ok || t.OwnerID != ownerID {
		return store.ErrTaskNotFound
	}
	delete(s.db.tasks, id)
	for k := range s.db.assignments {
		if k.taskID == id {
			delete(s.db.assignments, k)
		}
	}
	return nil
}

func (s *memTaskStore) WithTx(*sql.Tx) store.TaskStore { return s }

type memAssignmentStore struct{ db *memDB }

func (s *memAssignmentStore) Create(ctx context.Context, a *domain.Assignment) error {
	if err := s.db.fail("assignment.create"); err != nil {
		return err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := assignmentKey{a.TaskID, a.UserID}
	if _, ok := s.db.assignments[key]; ok {
		return store.ErrAlreadyAssigned
	}
	s.db.assignments[key] = *a
	return nil
}

func (s *memAssignmentStore) Get(ctx context.Context, taskID, userID uuid.UUID) (*domain.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	a, ok := s.db.assignments[assignmentKey{taskID, userID}]
	if !ok {
		return nil, store.ErrAssignmentNotFound
	}
	return &a, nil
}

func (s *memAssignmentStore) Delete(ctx context.Context, taskID, userID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	key := assignmentKey{taskID, userID}
	if _, ok := s.db.assignments[key]; !ok {
		return store.ErrAssignmentNotFound
	}
	delete(s.db.assignments, key)
	return nil
}

func (s *memAssignmentStore) ListByTask(ctx context.Context, taskID uuid.UUID) ([]*domain.Assignment, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []*domain.Assignment
	for k, a := range s.db.assignments {
		if k.taskID == taskID {
			a := a
			out = append(out, &a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AssignedAt.Before(out[j].AssignedAt) })
	return out, nil
}

func (s *memAssignmentStore) WithTx(*sql.Tx) store.AssignmentStore { return s }

type memUserStore struct{ db *memDB }

func (s *memUserStore) Create(ctx context.Context, u *domain.User) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, existing := range s.db.users {
		if existing.Email == u.Email {
			return store.ErrEmailExists
		}
	}
	s.db.users[u.ID] = *u
	return nil
}

func (s *memUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	u, ok := s.db.users[id]
	if !ok {
		return nil, store.ErrUserNotFound
	}
	return &u, nil
}

func (s *memUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Email == strings.ToLower(email) {
			u := u
			return &u, nil
		}
	}
	return nil, store.ErrUserNotFound
}

func (s *memUserStore) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if err := s.db.fail("user.exists"); err != nil {
		return false, err
	}
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	_, ok := s.db.users[id]
	return ok, nil
}

func (s *memUserStore) ExistsWithRole(ctx context.Context, role string) (bool, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, u := range s.db.users {
		if u.Role == role {
			return true, nil
		}
	}
	return false, nil
}

func (s *memUserStore) WithTx(*sql.Tx) store.UserStore { return s }

type memNotificationStore struct {
	db         *memDB
	lastCutoff time.Time
}

func (s *memNotificationStore) CreateMany(ctx context.Context, ns []*domain.Notification) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for _, n := range ns {
		s.db.notifications[n.ID] = *n
	}
	return nil
}

func (s *memNotificationStore) ListForUser(ctx context.Context, userID uuid.UUID) ([]*domain.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	out := []*domain.Notification{}
	for _, n := range s.db.notifications {
		if n.UserID == userID {
			n := n
			out = append(out, &n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > store.MaxNotificationList {
		out = out[:store.MaxNotificationList]
	}
	return out, nil
}

func (s *memNotificationStore) MarkRead(ctx context.Context, id, userID uuid.UUID) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n, ok := s.db.notifications[id]
	if !ok || n.UserID != userID {
		return store.ErrNotificationNotFound
	}
	n.IsRead = true
	s.db.notifications[id] = n
	return nil
}

func (s *memNotificationStore) DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.lastCutoff = cutoff
	var n int64
	for id, note := range s.db.notifications {
		if note.IsRead && note.CreatedAt.Before(cutoff) {
			delete(s.db.notifications, id)
			n++
		}
	}
	return n, nil
}

func (s *memNotificationStore) WithTx(*sql.Tx) store.NotificationStore { return s }

// recordingPublisher keeps every published message.
type recordingPublisher struct {
	mu       sync.Mutex
	messages []events.Message
	contexts []context.Context
	err      error
}

func (p *recordingPublisher) Publish(ctx context.Context, msg events.Message) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, msg)
	p.contexts = append(p.contexts, ctx)
	return p.err
}

func (p *recordingPublisher) last() events.Message {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.messages[len(p.messages)-1]
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

// MockPublisher mocks events.Publisher.
type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, msg events.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// fixture wires real services over the in-memory stores.
type fixture struct {
	db            *memDB
	tx            *memTransactor
	publisher     *recordingPublisher
	tasks         TaskService
	assignments   AssignmentService
	notifications NotificationService
	notifStore    *memNotificationStore
}

func newFixture(pub events.Publisher) *fixture {
	db := newMemDB()
	tx := &memTransactor{db: db}
	rec := &recordingPublisher{}
	if pub == nil {
		pub = rec
	}

	taskStore := &memTaskStore{db: db}
	assignmentStore := &memAssignmentStore{db: db}
	notifStore := &memNotificationStore{db: db}

	tasks, err := NewTaskService(taskStore, assignmentStore, tx, pub, TaskServiceOptions{}, testLogger)
	if err != nil {
		panic(err)
	}
	assignments, err := NewAssignmentService(taskStore, assignmentStore, &memUserStore{db: db}, tx, pub, testLogger)
	if err != nil {
		panic(err)
	}
	notifications, err := NewNotificationService(notifStore, testLogger)
	if err != nil {
		panic(err)
	}

	return &fixture{
		db:            db,
		tx:            tx,
		publisher:     rec,
		tasks:         tasks,
		assignments:   assignments,
		notifications: notifications,
		notifStore:    notifStore,
	}
}
