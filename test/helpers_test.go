//go:build integration
// +build integration

package test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/MrEthical07/kvauth/kvstore"
)

// backend describes one store the suite runs against. Connector is used by the
// adapter; Store inspects the keyspace directly.
type backend struct {
	name  string
	setup func(t *testing.T) (kvstore.Connector, kvstore.Store, func())
}

// backends returns every store available to this run.
// miniredis and an embedded NATS server are always available.
// Real Redis is used when REDIS_ADDR is set; a real NATS server when NATS_URL is set.
func backends(t *testing.T) []backend {
	t.Helper()
	out := []backend{
		{name: "miniredis/static", setup: miniredisStatic},
		{name: "miniredis/per-call", setup: miniredisPerCall},
		{name: "nats-embedded/static", setup: func(t *testing.T) (kvstore.Connector, kvstore.Store, func()) {
			return natsStatic(t, embeddedNATS(t))
		}},
		{name: "nats-embedded/per-call", setup: func(t *testing.T) (kvstore.Connector, kvstore.Store, func()) {
			return natsPerCall(t, embeddedNATS(t))
		}},
	}

	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		out = append(out, backend{
			name: "redis:" + addr,
			setup: func(t *testing.T) (kvstore.Connector, kvstore.Store, func()) {
				t.Helper()
				rdb := redis.NewClient(&redis.Options{Addr: addr})
				ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
				defer cancel()
				if err := rdb.Ping(ctx).Err(); err != nil {
					t.Skipf("cannot connect to Redis at %s: %v", addr, err)
				}
				rdb.FlushDB(context.Background())
				store := kvstore.NewRedisStore(rdb)
				return kvstore.NewRedisDialer(&redis.Options{Addr: addr}), store, func() {
					rdb.FlushDB(context.Background())
					_ = rdb.Close()
				}
			},
		})
	}

	if url := os.Getenv("NATS_URL"); url != "" {
		out = append(out, backend{
			name: "nats:" + url,
			setup: func(t *testing.T) (kvstore.Connector, kvstore.Store, func()) {
				return natsPerCall(t, url)
			},
		})
	}

	return out
}

func miniredisStatic(t *testing.T) (kvstore.Connector, kvstore.Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := kvstore.NewRedisStore(rdb)
	return kvstore.Static(store), store, func() { _ = rdb.Close(); mr.Close() }
}

func miniredisPerCall(t *testing.T) (kvstore.Connector, kvstore.Store, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return kvstore.NewRedisDialer(&redis.Options{Addr: mr.Addr()}), kvstore.NewRedisStore(rdb), func() {
		_ = rdb.Close()
		mr.Close()
	}
}

func embeddedNATS(t *testing.T) string {
	t.Helper()
	srv, err := server.NewServer(&server.Options{
		Host:      "127.0.0.1",
		Port:      -1,
		JetStream: true,
		StoreDir:  t.TempDir(),
		NoLog:     true,
		NoSigs:    true,
	})
	if err != nil {
		t.Fatalf("nats server: %v", err)
	}
	go srv.Start()
	if !srv.ReadyForConnections(5 * time.Second) {
		srv.Shutdown()
		t.Fatal("nats server not ready")
	}
	t.Cleanup(srv.Shutdown)
	return srv.ClientURL()
}

func openBucket(t *testing.T, url string) (*nats.Conn, kvstore.Store, string) {
	t.Helper()
	nc, err := nats.Connect(url)
	if err != nil {
		t.Skipf("cannot connect to NATS at %s: %v", url, err)
	}
	bucket := "kvauth_" + strings.NewReplacer("/", "_", " ", "_", ":", "_", ".", "_").Replace(t.Name())
	kv, err := kvstore.OpenNATSBucket(context.Background(), nc, bucket)
	if err != nil {
		nc.Close()
		t.Fatalf("open bucket: %v", err)
	}
	return nc, kvstore.NewNATSStore(kv), bucket
}

func natsStatic(t *testing.T, url string) (kvstore.Connector, kvstore.Store, func()) {
	t.Helper()
	nc, store, _ := openBucket(t, url)
	return kvstore.Static(store), store, nc.Close
}

func natsPerCall(t *testing.T, url string) (kvstore.Connector, kvstore.Store, func()) {
	t.Helper()
	nc, store, bucket := openBucket(t, url)
	return kvstore.NewNATSDialer(url, bucket), store, nc.Close
}
