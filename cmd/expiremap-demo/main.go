package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	expiremap "expire-map"
	"expire-map/internal/logs"
)

func main() {
	fallback := flag.Duration("fallback", time.Second, "reaper sleep when nothing is scheduled")
	level := flag.String("log-level", "info", "minimum level kept in the map's log buffer")
	flag.Parse()

	// Root context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := expiremap.DefaultConfig()
	cfg.Name = "demo"
	cfg.FallbackInterval = *fallback
	cfg.LogLevel = logs.ParseLevel(*level)

	m := expiremap.New[string, string](cfg)
	defer func() {
		if err := m.Close(); err != nil {
			log.Printf("map close: %v", err)
		}
	}()

	log.Printf("expire-map demo starting: fallback=%s", *fallback)

	// 1) put then get
	m.PutMillis("a", "1", 5000)
	report("put a=1 ttl=5000ms", m, "a")

	// 2) remove
	m.Remove("a")
	report("remove a", m, "a")

	// 3) expiry
	m.PutMillis("a", "1", 500)
	if !sleep(ctx, 500*time.Millisecond) {
		return
	}
	report("put a=1 ttl=500ms, waited 500ms", m, "a")

	// 4) non-positive ttl
	m.PutMillis("a", "1", -100)
	report("put a=1 ttl=-100ms", m, "a")

	// 5) overwrite, then let the reaper clean up without any Get
	m.PutMillis("a", "1", 1000)
	m.PutMillis("a", "2", 1000)
	report("put a=1 then a=2", m, "a")

	deadline := time.Now().Add(3 * time.Second)
	for m.Len() > 0 && time.Now().Before(deadline) {
		if !sleep(ctx, 50*time.Millisecond) {
			return
		}
	}
	log.Printf("after ttl: stored entries=%d", m.Len())

	// 6) cache-aside loading
	v, err := m.GetOrLoad(ctx, "user:42", time.Minute, func(ctx context.Context, key string) (string, error) {
		return "value-for-" + key, nil
	})
	if err != nil {
		log.Printf("load user:42: %v", err)
		return
	}
	log.Printf("loaded user:42 = %q", v)

	stats := m.Stats()
	log.Printf("stats: puts=%d reaped=%d stale=%d wakeups=%d",
		stats["puts_total"], stats["reaper_reaped_total"], stats["reaper_stale_total"], stats["reaper_wakeups_total"])

	h := m.Health()
	log.Printf("health: %s (%s)", h.OverallStatus, h.Summary)

	for _, e := range m.RecentLogs(20) {
		fmt.Printf("%s [%s] %s: %s\n", e.TimeStamp.Format(time.RFC3339), e.Level, e.Source, e.Message)
	}
}

func report(step string, m *expiremap.Map[string, string], key string) {
	if v, ok := m.Get(key); ok {
		log.Printf("%-32s -> get(%s) = %q", step, key, v)
		return
	}
	log.Printf("%-32s -> get(%s) = absent", step, key)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		log.Println("received shutdown signal")
		return false
	case <-t.C:
		return true
	}
}
