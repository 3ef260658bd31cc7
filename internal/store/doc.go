// Package store defines the persistence ports of the generation layer:
// generation attempts, frame analyses and background tasks. Implementations
// live in internal/platform/postgres.
package store
