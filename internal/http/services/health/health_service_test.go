package health

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakePool struct{}

func (fakePool) PoolStat() (int32, int32, int32, bool) { return 1, 2, 3, true }

func TestCheck(t *testing.T) {
	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("down") }

	tests := []struct {
		name   string
		deps   Deps
		status string
	}{
		{"ready", Deps{StoreCheck: ok, CacheCheck: ok}, "ready"},
		{"memory cache", Deps{StoreCheck: ok}, "ready"},
		{"cache down", Deps{StoreCheck: ok, CacheCheck: down}, "degraded"},
		{"store down", Deps{StoreCheck: down, CacheCheck: ok}, "unavailable"},
		{"no store", Deps{}, "unavailable"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := NewHealthService(tt.deps).Check(context.Background())
			assert.Equal(t, tt.status, res.Status)
			assert.Contains(t, res.Components, "store")
		})
	}

	res := NewHealthService(Deps{StoreCheck: ok, Pool: fakePool{}}).Check(context.Background())
	assert.Equal(t, "acquired=1 idle=2 total=3", res.Components["db_pool"].Message)
}
