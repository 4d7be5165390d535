// Package store defines persistence interfaces and shared helpers used by
// the service layer. Implementations live under internal/platform.
package store
