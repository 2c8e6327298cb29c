package location

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/etsibreadud/qbloco-app/internal/tracking"
)

type collector struct {
	mu    sync.Mutex
	fixes []tracking.Fix
	errs  []error
	got   chan struct{}
}

func newCollector() *collector {
	return &collector{got: make(chan struct{}, 16)}
}

func (c *collector) onFix(f tracking.Fix) {
	c.mu.Lock()
	c.fixes = append(c.fixes, f)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) onError(err error) {
	c.mu.Lock()
	c.errs = append(c.errs, err)
	c.mu.Unlock()
	c.got <- struct{}{}
}

func (c *collector) wait(t *testing.T) {
	t.Helper()
	select {
	case <-c.got:
	case <-time.After(time.Second):
		t.Fatalf("timeout waiting for callback")
	}
}

// fakeGPSD accepts one client, checks the WATCH command and writes lines.
func fakeGPSD(t *testing.T, lines []string, hold bool) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		cmd, _ := bufio.NewReader(conn).ReadString('\n')
		if !strings.HasPrefix(cmd, "?WATCH=") {
			return
		}
		for _, l := range lines {
			_, _ = conn.Write([]byte(l + "\n"))
		}
		if hold {
			time.Sleep(500 * time.Millisecond)
		}
	}()
	return ln.Addr().String()
}

func TestParseReport(t *testing.T) {
	fix, ok, err := parseReport([]byte(`{"class":"TPV","mode":3,"time":"2026-02-14T16:00:00.000Z","lat":-22.9711,"lon":-43.1822,"eph":7.5}`))
	if err != nil || !ok {
		t.Fatalf("expected fix, got ok=%v err=%v", ok, err)
	}
	if fix.Lat != -22.9711 || fix.Lng != -43.1822 {
		t.Fatalf("unexpected position %+v", fix)
	}
	if fix.Accuracy == nil || *fix.Accuracy != 7.5 {
		t.Fatalf("expected eph accuracy")
	}
	if !fix.Timestamp.Equal(time.Date(2026, 2, 14, 16, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected time %v", fix.Timestamp)
	}

	fix, ok, _ = parseReport([]byte(`{"class":"TPV","mode":2,"lat":1,"lon":2,"epx":4,"epy":9}`))
	if !ok || fix.Accuracy == nil || *fix.Accuracy != 9 || !fix.Timestamp.IsZero() {
		t.Fatalf("expected epx/epy fallback, got %+v", fix)
	}

	fix, ok, _ = parseReport([]byte(`{"class":"TPV","mode":3,"lat":1,"lon":2}`))
	if !ok || fix.Accuracy != nil {
		t.Fatalf("expected fix without accuracy")
	}

	skipped := []string{
		`{"class":"TPV","mode":1}`,
		`{"class":"TPV","mode":3,"lat":1}`,
		`{"class":"SKY","satellites":[]}`,
		`{"class":"VERSION","release":"3.25"}`,
		`not json`,
	}
	for _, s := range skipped {
		if _, ok, err := parseReport([]byte(s)); ok || err != nil {
			t.Fatalf("expected %s skipped", s)
		}
	}

	_, _, err = parseReport([]byte(`{"class":"ERROR","message":"unrecognized request"}`))
	if err == nil || !strings.Contains(err.Error(), "unrecognized request") {
		t.Fatalf("expected gpsd error, got %v", err)
	}
}

func TestGPSDWatchDeliversFixes(t *testing.T) {
	addr := fakeGPSD(t, []string{
		`{"class":"VERSION","release":"3.25"}`,
		`{"class":"TPV","mode":1}`,
		`{"class":"TPV","mode":3,"lat":-22.9711,"lon":-43.1822,"eph":5}`,
		`{"class":"TPV","mode":3,"lat":-22.9710,"lon":-43.1822,"eph":5}`,
	}, true)

	g := NewGPSD(addr)
	if !g.Available() || g.Permission(context.Background()) != tracking.PermissionUnsupported {
		t.Fatalf("unexpected capability")
	}

	c := newCollector()
	sub, err := g.Watch(c.onFix, c.onError, tracking.WatchOptions{Timeout: time.Second})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer g.Clear(sub)

	c.wait(t)
	c.wait(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.fixes) != 2 || len(c.errs) != 0 {
		t.Fatalf("expected two fixes, got %d fixes %v", len(c.fixes), c.errs)
	}
}

func TestGPSDWatchSkipsStaleReports(t *testing.T) {
	addr := fakeGPSD(t, []string{
		`{"class":"TPV","mode":3,"time":"2020-01-01T00:00:00Z","lat":1,"lon":2}`,
		`{"class":"TPV","mode":3,"lat":3,"lon":4}`,
	}, true)

	c := newCollector()
	g := NewGPSD(addr)
	sub, err := g.Watch(c.onFix, c.onError, tracking.WatchOptions{MaximumAge: 3 * time.Second, Timeout: time.Second})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	defer g.Clear(sub)

	c.wait(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.fixes) != 1 || c.fixes[0].Lat != 3 {
		t.Fatalf("expected stale report skipped, got %+v", c.fixes)
	}
}

func TestGPSDWatchTimeout(t *testing.T) {
	addr := fakeGPSD(t, []string{`{"class":"SKY"}`}, true)

	c := newCollector()
	g := NewGPSD(addr)
	if _, err := g.Watch(c.onFix, c.onError, tracking.WatchOptions{Timeout: 50 * time.Millisecond}); err != nil {
		t.Fatalf("watch: %v", err)
	}

	c.wait(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) != 1 {
		t.Fatalf("expected timeout error")
	}
	pe, ok := c.errs[0].(*tracking.PositionError)
	if !ok || pe.Code != tracking.CodeTimeout {
		t.Fatalf("expected timeout code, got %v", c.errs[0])
	}
}

func TestGPSDWatchConnectionLost(t *testing.T) {
	addr := fakeGPSD(t, nil, false)

	c := newCollector()
	g := NewGPSD(addr)
	if _, err := g.Watch(c.onFix, c.onError, tracking.WatchOptions{Timeout: time.Second}); err != nil {
		t.Fatalf("watch: %v", err)
	}

	c.wait(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	pe, ok := c.errs[0].(*tracking.PositionError)
	if !ok || pe.Code != tracking.CodePositionUnavailable {
		t.Fatalf("expected position unavailable, got %v", c.errs)
	}
}

func TestGPSDWatchErrorReport(t *testing.T) {
	addr := fakeGPSD(t, []string{`{"class":"ERROR","message":"device busy"}`}, true)

	c := newCollector()
	g := NewGPSD(addr)
	if _, err := g.Watch(c.onFix, c.onError, tracking.WatchOptions{Timeout: time.Second}); err != nil {
		t.Fatalf("watch: %v", err)
	}

	c.wait(t)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) != 1 || !strings.Contains(c.errs[0].Error(), "device busy") {
		t.Fatalf("expected gpsd error, got %v", c.errs)
	}
}

func TestGPSDDialError(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen error: %v", err)
	}
	addr := ln.Addr().String()
	ln.Close()

	g := NewGPSD(addr)
	_, err = g.Watch(func(tracking.Fix) {}, func(error) {}, tracking.DefaultWatchOptions())
	pe, ok := err.(*tracking.PositionError)
	if !ok || pe.Code != tracking.CodePositionUnavailable {
		t.Fatalf("expected position unavailable, got %v", err)
	}
}

func TestGPSDClearStopsDelivery(t *testing.T) {
	addr := fakeGPSD(t, nil, true)

	c := newCollector()
	g := NewGPSD(addr)
	sub, err := g.Watch(c.onFix, c.onError, tracking.WatchOptions{Timeout: time.Second})
	if err != nil {
		t.Fatalf("watch: %v", err)
	}
	g.Clear(sub)
	g.Clear(sub)

	time.Sleep(50 * time.Millisecond)
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.errs) != 0 || len(c.fixes) != 0 {
		t.Fatalf("expected no callbacks after clear")
	}
}

func TestGPSDUnavailableWithoutAddr(t *testing.T) {
	if NewGPSD("").Available() {
		t.Fatalf("expected unavailable without address")
	}
}
