package db

import (
	"context"
	"errors"

	"crossServer/play"
	"crossServer/state"
)

// Recorder persists rounds to PostgreSQL and caches them in Redis. Either
// store may be left uninitialized; its writes are then skipped.
type Recorder struct{}

var _ play.Recorder = Recorder{}

func (Recorder) RecordRound(ctx context.Context, round play.Round) error {
	return errors.Join(StoreRound(ctx, round), CacheRound(ctx, round))
}

func (Recorder) SaveSnapshot(ctx context.Context, player string, view state.View) error {
	return SaveSessionSnapshot(ctx, player, view)
}
