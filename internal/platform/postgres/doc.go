// Package postgres implements the internal/store interfaces on PostgreSQL
// through database/sql and the pgx stdlib driver. Every store accepts a
// store.DBTX so it can run against the pool or inside a transaction.
package postgres
