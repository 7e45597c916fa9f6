package storage

import (
	"context"

	"yieldFarm/internal/model"
)

// Journal records submitted positions.
type Journal interface {
	Append(ctx context.Context, record model.PositionRecord) error
	List(ctx context.Context) ([]model.PositionRecord, error)
}
