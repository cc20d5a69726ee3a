// Package store defines the persistence interfaces for tasks, assignments,
// users and notifications. Implementations live in internal/platform/postgres;
// services depend only on these interfaces and on Transactor, so the same
// business logic runs against Postgres in production and fakes in tests.
package store
