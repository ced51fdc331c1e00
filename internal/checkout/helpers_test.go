package checkout_test

import (
	"context"
	"errors"

	"github.com/vladislavdragonenkov/indiakart/internal/storage/memory"
)

var errBoom = errors.New("boom")

type failingStorage struct {
	*memory.SnapshotStorage
	fail bool
}

func (s *failingStorage) Set(ctx context.Context, key, value string) error {
	if s.fail {
		return errBoom
	}
	return s.SnapshotStorage.Set(ctx, key, value)
}
