// Package service holds the mutation orchestrator: task, assignment and
// notification operations that check ownership, persist changes in a
// transaction and only then publish events. Every operation takes the
// caller's user ID explicitly.
package service
