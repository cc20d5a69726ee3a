// Package logger provides structured logging functionality for the application.
//
// It configures log/slog with a JSON handler at the configured level and carries
// request-scoped loggers through context.Context so that trace ids follow a
// request from the HTTP layer into services and stores.
package logger
