package reference

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestRedisCacheRoundTripAndExpiry(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := NewRedisCache(client, time.Minute)
	ctx := context.Background()

	if _, ok, err := cache.Get(ctx, KindCommune, "Ñuñoa"); err != nil || ok {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	if err := cache.Set(ctx, KindCommune, "Ñuñoa", 42); err != nil {
		t.Fatalf("set: %v", err)
	}
	if !mr.Exists("recruitment:reference:commune:Ñuñoa") {
		t.Fatalf("expected namespaced key, have %v", mr.Keys())
	}

	id, ok, err := cache.Get(ctx, KindCommune, "Ñuñoa")
	if err != nil || !ok || id != 42 {
		t.Fatalf("expected hit 42, got id=%d ok=%v err=%v", id, ok, err)
	}

	if _, ok, _ := cache.Get(ctx, KindRegion, "Ñuñoa"); ok {
		t.Fatal("kinds must not share keys")
	}

	mr.FastForward(2 * time.Minute)
	if _, ok, _ := cache.Get(ctx, KindCommune, "Ñuñoa"); ok {
		t.Fatal("expected entry to expire")
	}
}
