package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestCache(t *testing.T, ttl time.Duration) (*RedisCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewRedisCache(client, ttl), mr
}

func TestRedisCache_RoundTrip(t *testing.T) {
	cache, mr := newTestCache(t, 30*time.Second)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx); ok || err != nil {
		t.Fatalf("expected empty cache, got %v %v", ok, err)
	}

	want := &Stats{
		TotalPatients:       3,
		TotalAppointments:   5,
		PendingAppointments: 2,
		GeneratedAt:         time.Date(2026, 5, 4, 9, 30, 0, 0, time.UTC),
	}
	if err := cache.Set(ctx, want); err != nil {
		t.Fatalf("set: %v", err)
	}
	if ttl := mr.TTL(statsKey); ttl != 30*time.Second {
		t.Errorf("expected 30s TTL, got %s", ttl)
	}

	got, ok, err := cache.Get(ctx)
	if err != nil || !ok {
		t.Fatalf("expected hit, got %v %v", ok, err)
	}
	if got.TotalPatients != 3 || got.PendingAppointments != 2 || !got.GeneratedAt.Equal(want.GeneratedAt) {
		t.Errorf("unexpected stats %+v", got)
	}

	mr.FastForward(31 * time.Second)
	if _, ok, _ := cache.Get(ctx); ok {
		t.Error("expected entry to expire")
	}
}

func TestRedisCache_CorruptValue(t *testing.T) {
	cache, mr := newTestCache(t, time.Minute)
	_ = mr.Set(statsKey, "not-json")

	if _, ok, err := cache.Get(context.Background()); ok || err == nil {
		t.Errorf("expected decode error, got %v %v", ok, err)
	}
}

func TestService_WithRedisCache(t *testing.T) {
	cache, _ := newTestCache(t, time.Minute)
	repo := &mockStatsRepo{stats: &Stats{TotalPatients: 9}}
	svc := NewService(repo, cache)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		st, err := svc.Stats(ctx)
		if err != nil || st.TotalPatients != 9 {
			t.Fatalf("unexpected result %+v %v", st, err)
		}
	}
	if repo.calls != 1 {
		t.Errorf("expected one store query, got %d", repo.calls)
	}
}
