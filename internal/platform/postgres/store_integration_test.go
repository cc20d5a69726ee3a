//go:build integration

package postgres_test

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/platform/postgres"
	"github.com/phrazzld/taskhub-api/internal/store"
	"github.com/phrazzld/taskhub-api/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func createUser(t *testing.T, ctx context.Context, tx *sql.Tx) *domain.User {
	t.Helper()
	u, err := domain.NewUser(uuid.NewString()+"@example.com", "", domain.RoleUser, "$2a$10$hash")
	require.NoError(t, err)
	require.NoError(t, postgres.NewPostgresUserStore(tx, nil).Create(ctx, u))
	return u
}

func createTask(t *testing.T, ctx context.Context, s store.TaskStore, owner uuid.UUID, title, status string) *domain.Task {
	t.Helper()
	task, err := domain.NewTask(owner, domain.NewTaskParams{Title: title, Status: status})
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, task))
	return task
}

func TestTaskLifecycleIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		tasks := postgres.NewPostgresTaskStore(db, nil).WithTx(tx)
		assignments := postgres.NewPostgresAssignmentStore(db, nil).WithTx(tx)

		owner := createUser(t, ctx, tx)
		other := createUser(t, ctx, tx)

		first := createTask(t, ctx, tasks, owner.ID, "Write report", "To Do")
		time.Sleep(5 * time.Millisecond)
		second := createTask(t, ctx, tasks, owner.ID, "Review report draft", "Done")

		page, total, err := tasks.List(ctx, owner.ID, domain.TaskQuery{Search: "REPORT"}.Normalize(100))
		require.NoError(t, err)
		assert.Equal(t, 2, total)
		require.Len(t, page, 2)
		assert.Equal(t, second.ID, page[0].ID, "newest first")

		page, total, err = tasks.List(ctx, owner.ID, domain.TaskQuery{Status: "Done"}.Normalize(100))
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, second.ID, page[0].ID)

		_, err = tasks.GetVisible(ctx, first.ID, other.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		a, err := domain.NewAssignment(first.ID, other.ID)
		require.NoError(t, err)
		require.NoError(t, assignments.Create(ctx, a))

		dup, err := domain.NewAssignment(first.ID, other.ID)
		require.NoError(t, err)
		assert.ErrorIs(t, assignments.Create(ctx, dup), store.ErrAlreadyAssigned)

		visible, err := tasks.GetVisible(ctx, first.ID, other.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, visible.ID)

		_, err = tasks.GetOwned(ctx, first.ID, other.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		assigned, total, err := tasks.List(ctx, other.ID, domain.TaskQuery{Scope: domain.ScopeAssigned}.Normalize(100))
		require.NoError(t, err)
		assert.Equal(t, 1, total)
		assert.Equal(t, first.ID, assigned[0].ID)

		locked, err := tasks.GetOwnedForUpdate(ctx, first.ID, owner.ID)
		require.NoError(t, err)
		loaded := locked.Version
		require.NoError(t, locked.Apply(domain.TaskPatch{Status: strPtr("Done")}, time.Now()))
		require.NoError(t, tasks.Update(ctx, locked, loaded))
		assert.ErrorIs(t, tasks.Update(ctx, locked, loaded), store.ErrVersionMismatch)

		require.NoError(t, tasks.Delete(ctx, first.ID, owner.ID))
		_, err = assignments.Get(ctx, first.ID, other.ID)
		assert.ErrorIs(t, err, store.ErrAssignmentNotFound, "assignments cascade with the task")
		assert.ErrorIs(t, tasks.Delete(ctx, first.ID, owner.ID), store.ErrTaskNotFound)
	})
}

func TestNotificationStoreIntegration(t *testing.T) {
	db := testdb.GetTestDBWithT(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ctx := context.Background()
		notifications := postgres.NewPostgresNotificationStore(db, nil).WithTx(tx)

		user := createUser(t, ctx, tx)
		other := createUser(t, ctx, tx)

		n1 := domain.NewNotification(user.ID, "TaskCreated", nil, "created")
		n2 := domain.NewNotification(user.ID, "TaskUpdated", nil, "updated")
		n2.CreatedAt = n1.CreatedAt.Add(time.Second)
		require.NoError(t, notifications.CreateMany(ctx, []*domain.Notification{n1, n2}))

		got, err := notifications.ListForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, n2.ID, got[0].ID)

		assert.ErrorIs(t, notifications.MarkRead(ctx, n1.ID, other.ID), store.ErrNotificationNotFound)
		require.NoError(t, notifications.MarkRead(ctx, n1.ID, user.ID))

		removed, err := notifications.DeleteReadBefore(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		assert.GreaterOrEqual(t, removed, int64(1))

		got, err = notifications.ListForUser(ctx, user.ID)
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, n2.ID, got[0].ID)
	})
}

func strPtr(s string) *string { return &s }
