package service

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/events"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// TaskService provides task operations scoped to the calling user.
type TaskService interface {
	// Create creates a task owned by callerID.
	Create(ctx context.Context, callerID uuid.UUID, params domain.NewTaskParams) (*domain.Task, error)

	// Get returns a task the caller owns or is assigned to.
	Get(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error)

	// List returns one page of the caller's tasks.
	List(ctx context.Context, callerID uuid.UUID, q domain.TaskQuery) (*domain.TaskPage, error)

	// Update applies a partial update to a task the caller owns. A patch
	// that changes nothing returns the stored task without a write or event.
	Update(ctx context.Context, taskID, callerID uuid.UUID, patch domain.TaskPatch) (*domain.Task, error)

	// Delete removes a task the caller owns together with its assignments.
	Delete(ctx context.Context, taskID, callerID uuid.UUID) error
}

// TaskServiceOptions tunes a TaskService. Zero values use the defaults.
type TaskServiceOptions struct {
	MaxPageSize int
	Now         func() time.Time
}

type taskServiceImpl struct {
	tasks       store.TaskStore
	assignments store.AssignmentStore
	tx          store.Transactor
	notifier    notifier
	maxPageSize int
	now         func() time.Time
	logger      *slog.Logger
}

// NewTaskService creates a TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	tasks store.TaskStore,
	assignments store.AssignmentStore,
	tx store.Transactor,
	publisher events.Publisher,
	opts TaskServiceOptions,
	logger *slog.Logger,
) (TaskService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", nil)
	}
	if assignments == nil {
		return nil, domain.NewValidationError("assignments", "cannot be nil", nil)
	}
	if tx == nil {
		return nil, domain.NewValidationError("tx", "cannot be nil", nil)
	}
	if publisher == nil {
		return nil, domain.NewValidationError("publisher", "cannot be nil", nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	if opts.MaxPageSize <= 0 {
		opts.MaxPageSize = domain.MaxPageSize
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	log := logger.With(slog.String("component", "task_service"))
	return &taskServiceImpl{
		tasks:       tasks,
		assignments: assignments,
		tx:          tx,
		notifier:    notifier{publisher: publisher, logger: log},
		maxPageSize: opts.MaxPageSize,
		now:         opts.Now,
		logger:      log,
	}, nil
}

// Create implements TaskService.Create
func (s *taskServiceImpl) Create(
	ctx context.Context,
	callerID uuid.UUID,
	params domain.NewTaskParams,
) (*domain.Task, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := domain.NewTask(callerID, params)
	if err != nil {
		log.Debug("rejected task", slog.String("error", err.Error()))
		return nil, err
	}

	if err := s.tasks.Create(ctx, task); err != nil {
		return nil, NewServiceError("task", "create", "failed to save task", err)
	}

	log.Info("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", callerID.String()))

	s.notifier.publish(ctx, events.TaskCreated, task, task.ID,
		fmt.Sprintf("Task %q was created", task.Title),
		[]uuid.UUID{task.OwnerID}, "")
	return task, nil
}

// Get implements TaskService.Get
func (s *taskServiceImpl) Get(ctx context.Context, taskID, callerID uuid.UUID) (*domain.Task, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}

	task, err := s.tasks.GetVisible(ctx, taskID, callerID)
	if err != nil {
		return nil, NewServiceError("task", "get", "failed to load task", err)
	}
	return task, nil
}

// List implements TaskService.List
func (s *taskServiceImpl) List(
	ctx context.Context,
	callerID uuid.UUID,
	q domain.TaskQuery,
) (*domain.TaskPage, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	q = q.Normalize(s.maxPageSize)
	if q.Scope != domain.ScopeOwned && q.Scope != domain.ScopeAssigned {
		return nil, domain.NewValidationError("scope", "must be owned or assigned", nil)
	}

	items, total, err := s.tasks.List(ctx, callerID, q)
	if err != nil {
		return nil, NewServiceError("task", "list", "failed to list tasks", err)
	}

	return &domain.TaskPage{
		Items:    items,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

// Update implements TaskService.Update
func (s *taskServiceImpl) Update(
	ctx context.Context,
	taskID, callerID uuid.UUID,
	patch domain.TaskPatch,
) (*domain.Task, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	var updated *domain.Task
	var assignees []uuid.UUID

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		task, err := tasks.GetOwnedForUpdate(ctx, taskID, callerID)
		if err != nil {
			return err
		}
		loaded := task.Version
		if patch.ExpectedVersion != nil && *patch.ExpectedVersion != loaded {
			return fmt.Errorf("%w: expected version %d, current %d",
				store.ErrVersionMismatch, *patch.ExpectedVersion, loaded)
		}
		if patch.IsEmpty() {
			updated = task
			return nil
		}

		if err := task.Apply(patch, s.now()); err != nil {
			return err
		}
		if err := tasks.Update(ctx, task, loaded); err != nil {
			return err
		}

		assignees, err = assigneeIDs(ctx, s.assignments.WithTx(tx), taskID)
		if err != nil {
			return err
		}
		updated = task
		return nil
	})
	if err != nil {
		if domain.IsValidationError(err) {
			return nil, err
		}
		return nil, NewServiceError("task", "update", "failed to update task", err)
	}

	if patch.IsEmpty() {
		log.Debug("empty patch, task left unchanged", slog.String("task_id", taskID.String()))
		return updated, nil
	}

	log.Info("task updated",
		slog.String("task_id", taskID.String()),
		slog.Int("version", updated.Version))

	s.notifier.publish(ctx, events.TaskUpdated, updated, updated.ID,
		fmt.Sprintf("Task %q was updated", updated.Title),
		taskAudience(updated.OwnerID, assignees), events.TaskTopic(updated.ID))
	return updated, nil
}

// Delete implements TaskService.Delete
func (s *taskServiceImpl) Delete(ctx context.Context, taskID, callerID uuid.UUID) error {
	if err := requireCaller(callerID); err != nil {
		return err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	var deleted *domain.Task
	var assignees []uuid.UUID

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		tasks := s.tasks.WithTx(tx)

		task, err := tasks.GetOwnedForUpdate(ctx, taskID, callerID)
		if err != nil {
			return err
		}
		// Captured before the cascade removes them.
		assignees, err = assigneeIDs(ctx, s.assignments.WithTx(tx), taskID)
		if err != nil {
			return err
		}
		if err := tasks.Delete(ctx, taskID, callerID); err != nil {
			return err
		}
		deleted = task
		return nil
	})
	if err != nil {
		return NewServiceError("task", "delete", "failed to delete task", err)
	}

	log.Info("task deleted",
		slog.String("task_id", taskID.String()),
		slog.Int("assignees", len(assignees)))

	s.notifier.publish(ctx, events.TaskDeleted, events.TaskRef{TaskID: taskID}, taskID,
		fmt.Sprintf("Task %q was deleted", deleted.Title),
		taskAudience(deleted.OwnerID, assignees), events.TaskTopic(taskID))
	return nil
}

func assigneeIDs(ctx context.Context, assignments store.AssignmentStore, taskID uuid.UUID) ([]uuid.UUID, error) {
	list, err := assignments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(list))
	for _, a := range list {
		ids = append(ids, a.UserID)
	}
	return ids, nil
}
