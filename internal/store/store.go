// Package store persists scan state: a single current-scan slot plus a
// capped history of finished scans.
package store

import (
	"context"
	"errors"

	"serprank/internal/models"
)

// ErrNotFound is returned when no scan matches the requested ID and
// when the current-scan slot is empty.
var ErrNotFound = errors.New("scan not found")

// Store is the persistence contract. The current slot is overwritten on
// every scan progress step so a process restart loses at most one page
// of work. History holds finished scans, newest first, and evicts the
// oldest entries beyond its cap.
type Store interface {
	SaveCurrent(ctx context.Context, s *models.ScanState) error
	LoadCurrent(ctx context.Context) (*models.ScanState, error)
	ClearCurrent(ctx context.Context) error

	AppendHistory(ctx context.Context, s *models.ScanState) error
	History(ctx context.Context) ([]*models.ScanState, error)
	Get(ctx context.Context, id string) (*models.ScanState, error)

	Close() error
}
