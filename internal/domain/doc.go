// Package domain contains the core business entities of the task service:
// tasks, assignments, users and archived notifications, together with the
// validation rules and error categories shared by every layer. It has no
// dependency on storage or transport.
package domain
