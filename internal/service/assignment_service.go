package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/phrazzld/taskhub-api/internal/domain"
	"github.com/phrazzld/taskhub-api/internal/events"
	"github.com/phrazzld/taskhub-api/internal/platform/logger"
	"github.com/phrazzld/taskhub-api/internal/store"
)

// ErrAssigneeNotFound is returned when the user to assign does not exist.
var ErrAssigneeNotFound = domain.NewValidationError("user_id", "user not found", nil)

// AssignmentService manages collaborators on tasks. Only the owner may
// assign or unassign; owner and assignees may list.
type AssignmentService interface {
	Assign(ctx context.Context, taskID, ownerID, assigneeID uuid.UUID) (*domain.Assignment, error)
	Unassign(ctx context.Context, taskID, ownerID, assigneeID uuid.UUID) error
	List(ctx context.Context, taskID, callerID uuid.UUID) ([]*domain.Assignment, error)
}

type assignmentServiceImpl struct {
	tasks       store.TaskStore
	assignments store.AssignmentStore
	users       store.UserStore
	tx          store.Transactor
	notifier    notifier
	logger      *slog.Logger
}

// NewAssignmentService creates an AssignmentService.
// It returns an error if any of the required dependencies are nil.
func NewAssignmentService(
	tasks store.TaskStore,
	assignments store.AssignmentStore,
	users store.UserStore,
	tx store.Transactor,
	publisher events.Publisher,
	logger *slog.Logger,
) (AssignmentService, error) {
	if tasks == nil {
		return nil, domain.NewValidationError("tasks", "cannot be nil", nil)
	}
	if assignments == nil {
		return nil, domain.NewValidationError("assignments", "cannot be nil", nil)
	}
	if users == nil {
		return nil, domain.NewValidationError("users", "cannot be nil", nil)
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

	log := logger.With(slog.String("component", "assignment_service"))
	return &assignmentServiceImpl{
		tasks:       tasks,
		assignments: assignments,
		users:       users,
		tx:          tx,
		notifier:    notifier{publisher: publisher, logger: log},
		logger:      log,
	}, nil
}

// Assign implements AssignmentService.Assign
func (s *assignmentServiceImpl) Assign(
	ctx context.Context,
	taskID, ownerID, assigneeID uuid.UUID,
) (*domain.Assignment, error) {
	if err := requireCaller(ownerID); err != nil {
		return nil, err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task *domain.Task
	var assignment *domain.Assignment

	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		task, err = s.tasks.WithTx(tx).GetOwnedForUpdate(ctx, taskID, ownerID)
		if err != nil {
			return err
		}

		exists, err := s.users.WithTx(tx).Exists(ctx, assigneeID)
		if err != nil {
			return err
		}
		if !exists {
			return ErrAssigneeNotFound
		}

		assignments := s.assignments.WithTx(tx)
		if _, err := assignments.Get(ctx, taskID, assigneeID); err == nil {
			return store.ErrAlreadyAssigned
		} else if !errors.Is(err, store.ErrAssignmentNotFound) {
			return err
		}

		assignment, err = domain.NewAssignment(taskID, assigneeID)
		if err != nil {
			return err
		}
		return assignments.Create(ctx, assignment)
	})
	if err != nil {
		if domain.IsValidationError(err) {
			return nil, err
		}
		return nil, NewServiceError("assignment", "assign", "failed to assign user", err)
	}

	log.Info("user assigned to task",
		slog.String("task_id", taskID.String()),
		slog.String("assignee_id", assigneeID.String()))

	s.notifier.publish(ctx, events.TaskAssigned,
		events.AssignmentRef{TaskID: taskID, UserID: assigneeID}, taskID,
		fmt.Sprintf("A user was assigned to task %q", task.Title),
		[]uuid.UUID{ownerID, assigneeID}, events.TaskTopic(taskID))
	return assignment, nil
}

// Unassign implements AssignmentService.Unassign
func (s *assignmentServiceImpl) Unassign(ctx context.Context, taskID, ownerID, assigneeID uuid.UUID) error {
	if err := requireCaller(ownerID); err != nil {
		return err
	}
	log := logger.FromContextOrDefault(ctx, s.logger)

	var task *domain.Task
	err := s.tx.WithinTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		task, err = s.tasks.WithTx(tx).GetOwnedForUpdate(ctx, taskID, ownerID)
		if err != nil {
			return err
		}
		return s.assignments.WithTx(tx).Delete(ctx, taskID, assigneeID)
	})
	if err != nil {
		return NewServiceError("assignment", "unassign", "failed to unassign user", err)
	}

	log.Info("user unassigned from task",
		slog.String("task_id", taskID.String()),
		slog.String("assignee_id", assigneeID.String()))

	s.notifier.publish(ctx, events.TaskUnassigned,
		events.AssignmentRef{TaskID: taskID, UserID: assigneeID}, taskID,
		fmt.Sprintf("A user was unassigned from task %q", task.Title),
		[]uuid.UUID{ownerID, assigneeID}, events.TaskTopic(taskID))
	return nil
}

// List implements AssignmentService.List
func (s *assignmentServiceImpl) List(ctx context.Context, taskID, callerID uuid.UUID) ([]*domain.Assignment, error) {
	if err := requireCaller(callerID); err != nil {
		return nil, err
	}
	if _, err := s.tasks.GetVisible(ctx, taskID, callerID); err != nil {
		return nil, NewServiceError("assignment", "list", "failed to load task", err)
	}

	list, err := s.assignments.ListByTask(ctx, taskID)
	if err != nil {
		return nil, NewServiceError("assignment", "list", "failed to list assignments", err)
	}
	if list == nil {
		list = []*domain.Assignment{}
	}
	return list, nil
}
