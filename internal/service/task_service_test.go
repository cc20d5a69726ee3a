package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/events"
	"github.com/phrazzld/taskhub-api/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestNewTaskServiceValidation(t *testing.T) {
	db := newMemDB()
	tasks := &memTaskStore{db: db}
	assignments := &memAssignmentStore{db: db}
	tx := &memTransactor{db: db}
	pub := &recordingPublisher{}

	tests := []struct {
		name  string
		build func() (TaskService, error)
	}{
		{"nil tasks", func() (TaskService, error) {
			return NewTaskService(nil, assignments, tx, pub, TaskServiceOptions{}, nil)
		}},
		{"nil assignments", func() (TaskService, error) {
			return NewTaskService(tasks, nil, tx, pub, TaskServiceOptions{}, nil)
		}},
		{"nil transactor", func() (TaskService, error) {
			return NewTaskService(tasks, assignments, nil, pub, TaskServiceOptions{}, nil)
		}},
		{"nil publisher", func() (TaskService, error) {
			return NewTaskService(tasks, assignments, tx, nil, TaskServiceOptions{}, nil)
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := tt.build()
			assert.Nil(t, svc)
			assert.True(t, domain.IsValidationError(err))
		})
	}

	svc, err := NewTaskService(tasks, assignments, tx, pub, TaskServiceOptions{}, nil)
	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestShipReleaseScenario(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	owner, assignee, stranger := f.db.addUser(), f.db.addUser(), f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "Ship release", Priority: domain.PriorityHigh})
	require.NoError(t, err)
	assert.Equal(t, "To Do", task.Status)
	assert.Equal(t, domain.PriorityHigh, task.Priority)
	assert.Equal(t, owner, task.OwnerID)
	assert.False(t, task.CreatedAt.IsZero())
	assert.Nil(t, task.UpdatedAt)

	created := f.publisher.last()
	assert.Equal(t, events.TaskCreated, created.Event.Type)
	assert.Equal(t, []uuid.UUID{owner}, created.Recipients)

	_, err = f.assignments.Assign(ctx, task.ID, owner, assignee)
	require.NoError(t, err)

	assigned := f.publisher.last()
	assert.Equal(t, events.TaskAssigned, assigned.Event.Type)
	assert.ElementsMatch(t, []uuid.UUID{owner, assignee}, assigned.Recipients)
	var ref events.AssignmentRef
	require.NoError(t, assigned.Event.UnmarshalPayload(&ref))
	assert.Equal(t, events.AssignmentRef{TaskID: task.ID, UserID: assignee}, ref)

	_, err = f.tasks.Get(ctx, task.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	visible, err := f.tasks.Get(ctx, task.ID, assignee)
	require.NoError(t, err)
	assert.Equal(t, task.ID, visible.ID)

	updated, err := f.tasks.Update(ctx, task.ID, owner, domain.TaskPatch{Status: strPtr("Done")})
	require.NoError(t, err)
	assert.Equal(t, "Done", updated.Status)
	assert.NotNil(t, updated.UpdatedAt)
	assert.Equal(t, "Ship release", updated.Title)

	changed := f.publisher.last()
	assert.Equal(t, events.TaskUpdated, changed.Event.Type)
	assert.Contains(t, changed.Recipients, owner)
	assert.Contains(t, changed.Recipients, assignee)
	assert.Equal(t, events.TaskTopic(task.ID), changed.Topic)
}

func TestGetHidesForeignTasks(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	owner, other := f.db.addUser(), f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "private"})
	require.NoError(t, err)

	_, err = f.tasks.Get(ctx, task.ID, other)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.tasks.Get(ctx, uuid.New(), owner)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.tasks.Get(ctx, task.ID, uuid.Nil)
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestUpdateChangesOnlySuppliedFields(t *testing.T) {
	now := time.Date(2026, 10, 16, 10, 0, 0, 0, time.UTC)
	f := newFixture(nil)
	svc, err := NewTaskService(&memTaskStore{db: f.db}, &memAssignmentStore{db: f.db}, f.tx, f.publisher,
		TaskServiceOptions{Now: func() time.Time { return now }}, testLogger)
	require.NoError(t, err)

	ctx := context.Background()
	owner := f.db.addUser()
	due := time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC)
	task, err := svc.Create(ctx, owner, domain.NewTaskParams{
		Title:       "Ship release",
		Description: strPtr("tag and publish"),
		DueDate:     &due,
		Priority:    domain.PriorityHigh,
	})
	require.NoError(t, err)

	updated, err := svc.Update(ctx, task.ID, owner, domain.TaskPatch{Status: strPtr("Done")})
	require.NoError(t, err)

	want := *task
	want.Status = "Done"
	want.UpdatedAt = &now
	want.Version = task.Version + 1
	if diff := cmp.Diff(&want, updated); diff != "" {
		t.Errorf("Update changed unexpected fields (-want +got):\n%s", diff)
	}

	stored, err := svc.Get(ctx, task.ID, owner)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(updated, stored))
}

func TestUpdateRejectsWithoutSideEffects(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		caller func(owner, other uuid.UUID) uuid.UUID
		patch  domain.TaskPatch
		check  func(t *testing.T, err error)
	}{
		{
			name:   "not owner",
			caller: func(owner, other uuid.UUID) uuid.UUID { return other },
			patch:  domain.TaskPatch{Status: strPtr("Done")},
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrNotFound) },
		},
		{
			name:   "empty title",
			caller: func(owner, other uuid.UUID) uuid.UUID { return owner },
			patch:  domain.TaskPatch{Title: strPtr("")},
			check: func(t *testing.T, err error) {
				var vErr *domain.ValidationError
				require.ErrorAs(t, err, &vErr)
				assert.Equal(t, "title", vErr.Field)
			},
		},
		{
			name:   "stale version",
			caller: func(owner, other uuid.UUID) uuid.UUID { return owner },
			patch:  domain.TaskPatch{Status: strPtr("Done"), ExpectedVersion: intPtr(7)},
			check:  func(t *testing.T, err error) { assert.ErrorIs(t, err, domain.ErrConflict) },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &MockPublisher{}
			pub.On("Publish", mock.Anything, mock.MatchedBy(func(m events.Message) bool {
				return m.Event.Type == events.TaskCreated
			})).Return(nil).Once()

			f := newFixture(pub)
			owner, other := f.db.addUser(), f.db.addUser()
			task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "keep me"})
			require.NoError(t, err)

			_, err = f.tasks.Update(ctx, task.ID, tt.caller(owner, other), tt.patch)
			tt.check(t, err)

			stored, err := f.tasks.Get(ctx, task.ID, owner)
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(task, stored))
			pub.AssertExpectations(t)
		})
	}
}

func TestUpdateWithMatchingVersion(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	owner := f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "versioned"})
	require.NoError(t, err)

	updated, err := f.tasks.Update(ctx, task.ID, owner, domain.TaskPatch{
		Priority:        priorityPtr(domain.PriorityLow),
		ExpectedVersion: intPtr(1),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, domain.PriorityLow, updated.Priority)
}

func TestUpdateWithEmptyPatchLeavesTaskUntouched(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	owner := f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "unchanged"})
	require.NoError(t, err)
	published := f.publisher.count()

	for _, patch := range []domain.TaskPatch{{}, {ExpectedVersion: intPtr(1)}} {
		got, err := f.tasks.Update(ctx, task.ID, owner, patch)
		require.NoError(t, err)
		assert.Empty(t, cmp.Diff(task, got))
	}

	stored, err := f.tasks.Get(ctx, task.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Nil(t, stored.UpdatedAt)
	assert.Equal(t, published, f.publisher.count(), "no event for a no-op update")

	_, err = f.tasks.Update(ctx, task.ID, owner, domain.TaskPatch{ExpectedVersion: intPtr(3)})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestDeleteRemovesAssignments(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	owner, a1, a2 := f.db.addUser(), f.db.addUser(), f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "cleanup"})
	require.NoError(t, err)
	_, err = f.assignments.Assign(ctx, task.ID, owner, a1)
	require.NoError(t, err)
	_, err = f.assignments.Assign(ctx, task.ID, owner, a2)
	require.NoError(t, err)

	assert.ErrorIs(t, f.tasks.Delete(ctx, task.ID, a1), domain.ErrNotFound, "assignees cannot delete")
	require.NoError(t, f.tasks.Delete(ctx, task.ID, owner))

	left, err := (&memAssignmentStore{db: f.db}).ListByTask(ctx, task.ID)
	require.NoError(t, err)
	assert.Empty(t, left)

	deleted := f.publisher.last()
	assert.Equal(t, events.TaskDeleted, deleted.Event.Type)
	assert.ElementsMatch(t, []uuid.UUID{owner, a1, a2}, deleted.Recipients)
	var ref events.TaskRef
	require.NoError(t, deleted.Event.UnmarshalPayload(&ref))
	assert.Equal(t, task.ID, ref.TaskID)

	assert.ErrorIs(t, f.tasks.Delete(ctx, task.ID, owner), domain.ErrNotFound)
}

func TestPersistenceFailurePublishesNothing(t *testing.T) {
	ctx := context.Background()
	dbErr := errors.New("disk full")

	pub := &MockPublisher{}
	f := newFixture(pub)
	owner := f.db.addUser()
	f.db.failures["task.create"] = dbErr

	_, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "never stored"})
	assert.ErrorIs(t, err, dbErr)

	_, err = f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: ""})
	assert.True(t, domain.IsValidationError(err))

	pub.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything)
	assert.Empty(t, f.db.tasks)
}

func TestUpdateFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(nil)
	owner := f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "t"})
	require.NoError(t, err)
	published := f.publisher.count()

	f.db.failures["task.update"] = errors.New("connection lost")
	_, err = f.tasks.Update(ctx, task.ID, owner, domain.TaskPatch{Status: strPtr("Done")})
	require.Error(t, err)
	assert.Equal(t, published, f.publisher.count())
	assert.Zero(t, f.tx.commits)
}

func TestPublishFailureDoesNotFailMutation(t *testing.T) {
	ctx := context.Background()
	pub := &MockPublisher{}
	pub.On("Publish", mock.Anything, mock.Anything).Return(errors.New("no listeners"))

	f := newFixture(pub)
	owner := f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "still saved"})
	require.NoError(t, err)
	assert.Contains(t, f.db.tasks, task.ID)
	pub.AssertNumberOfCalls(t, "Publish", 1)
}

func TestPublishIgnoresRequestCancellation(t *testing.T) {
	f := newFixture(nil)
	owner := f.db.addUser()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "client left"})
	require.NoError(t, err)
	require.Len(t, f.publisher.contexts, 1)
	assert.NoError(t, f.publisher.contexts[0].Err())
}

func TestListTasks(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	owner, other := f.db.addUser(), f.db.addUser()

	base := time.Now().UTC()
	titles := []string{"Write report", "Review REPORT", "Plan sprint", "Fix bug"}
	for i, title := range titles {
		task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: title})
		require.NoError(t, err)
		stored := f.db.tasks[task.ID]
		stored.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		f.db.tasks[task.ID] = stored
	}
	_, err := f.tasks.Create(ctx, other, domain.NewTaskParams{Title: "someone else's report"})
	require.NoError(t, err)

	page, err := f.tasks.List(ctx, owner, domain.TaskQuery{Search: "report"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, domain.DefaultPageSize, page.PageSize)
	require.Len(t, page.Items, 2)
	assert.Equal(t, "Review REPORT", page.Items[0].Title, "newest first")

	page, err = f.tasks.List(ctx, owner, domain.TaskQuery{Page: -3, PageSize: 3})
	require.NoError(t, err)
	assert.Equal(t, 4, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Len(t, page.Items, 3)

	page, err = f.tasks.List(ctx, owner, domain.TaskQuery{Page: 2, PageSize: 3})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "Write report", page.Items[0].Title)

	page, err = f.tasks.List(ctx, owner, domain.TaskQuery{Status: "Done"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)

	_, err = f.tasks.List(ctx, owner, domain.TaskQuery{Scope: "everything"})
	assert.True(t, domain.IsValidationError(err))

	_, err = f.tasks.List(ctx, uuid.Nil, domain.TaskQuery{})
	assert.ErrorIs(t, err, domain.ErrUnauthenticated)
}

func TestListAssignedScope(t *testing.T) {
	f := newFixture(nil)
	ctx := context.Background()
	owner, assignee := f.db.addUser(), f.db.addUser()

	task, err := f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "shared"})
	require.NoError(t, err)
	_, err = f.tasks.Create(ctx, owner, domain.NewTaskParams{Title: "not shared"})
	require.NoError(t, err)
	_, err = f.assignments.Assign(ctx, task.ID, owner, assignee)
	require.NoError(t, err)

	owned, err := f.tasks.List(ctx, assignee, domain.TaskQuery{})
	require.NoError(t, err)
	assert.Zero(t, owned.Total)

	assigned, err := f.tasks.List(ctx, assignee, domain.TaskQuery{Scope: domain.ScopeAssigned})
	require.NoError(t, err)
	require.Equal(t, 1, assigned.Total)
	assert.Equal(t, task.ID, assigned.Items[0].ID)
}

func TestServiceErrorKeepsCategory(t *testing.T) {
	err := NewServiceError("task", "get", "failed to load task", store.ErrTaskNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.Equal(t, "task service get failed: failed to load task: entity not found: task", err.Error())
	assert.Equal(t, "task service get failed: boom", NewServiceError("task", "get", "boom", nil).Error())
}

func intPtr(i int) *int { return &i }

func priorityPtr(p domain.Priority) *domain.Priority { return &p }
