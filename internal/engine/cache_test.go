package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestFetchLoaderOutlivesCallerCancel(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()
	c := NewCache(client, time.Minute)

	want := EffectiveSet{
		UserID:     "u1",
		Scopes:     map[string]ScopePermissions{},
		ComputedAt: time.Now().UTC(),
	}

	ctx, cancel := context.WithCancel(context.Background())
	_, _ = c.Fetch(ctx, "u1", func(loadCtx context.Context) (EffectiveSet, error) {
		// The caller abandons the request mid-computation.
		cancel()
		if err := loadCtx.Err(); err != nil {
			return EffectiveSet{}, err
		}
		return want, nil
	})

	// The first computation must have completed and stored the entry;
	// a recompute here would mean it was torn down with its caller.
	got, err := c.Fetch(context.Background(), "u1", func(context.Context) (EffectiveSet, error) {
		return EffectiveSet{}, errors.New("recomputed")
	})
	if err != nil {
		t.Fatalf("expected entry from first computation, got error: %v", err)
	}
	if got.UserID != "u1" {
		t.Fatalf("unexpected cached entry: %+v", got)
	}
}

func TestFetchWithoutClientDegradesToLoader(t *testing.T) {
	c := NewCache(nil, time.Minute)

	calls := 0
	loader := func(context.Context) (EffectiveSet, error) {
		calls++
		return EffectiveSet{UserID: "u1"}, nil
	}
	for i := 0; i < 3; i++ {
		set, err := c.Fetch(context.Background(), "u1", loader)
		if err != nil {
			t.Fatalf("fetch: %v", err)
		}
		if set.UserID != "u1" {
			t.Fatalf("unexpected set: %+v", set)
		}
	}
	if calls != 3 {
		t.Fatalf("expected every fetch to recompute without redis, got %d calls", calls)
	}
}
