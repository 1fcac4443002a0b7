package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/shopper/internal/catalog"
	"github.com/kalambet/shopper/internal/chat"
)

type mockClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *mockClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *mockClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGetOrCreate_FreshID(t *testing.T) {
	m := NewManager(time.Minute)

	a := m.GetOrCreate("")
	b := m.GetOrCreate("")
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("ids = %q, %q, want distinct non-empty", a.ID, b.ID)
	}
	if m.Len() != 2 {
		t.Errorf("Len = %d, want 2", m.Len())
	}
}

func TestGetOrCreate_ReturnsExisting(t *testing.T) {
	m := NewManager(time.Minute)

	s := m.GetOrCreate("web")
	s.Cart.Add(catalog.Product{ID: "gen_1", Price: 5})

	again := m.GetOrCreate("web")
	if again != s || again.Cart.Len() != 1 {
		t.Errorf("GetOrCreate(web) did not return the existing session")
	}
}

func TestSessionsAreIsolated(t *testing.T) {
	m := NewManager(time.Minute)

	a := m.GetOrCreate("a")
	b := m.GetOrCreate("b")
	a.Cart.Add(catalog.Product{ID: "gen_1"})
	a.History = append(a.History, chat.Message{Role: chat.RoleUser, Content: "hi"})

	if b.Cart.Len() != 0 || len(b.History) != 0 {
		t.Errorf("session b saw session a's state: cart=%d history=%d", b.Cart.Len(), len(b.History))
	}
}

func TestReset(t *testing.T) {
	m := NewManager(time.Minute)
	s := m.GetOrCreate("a")
	s.Cart.Add(catalog.Product{ID: "gen_1"})
	s.History = []chat.Message{{Role: chat.RoleUser, Content: "hi"}}

	if !m.Reset("a") {
		t.Fatal("Reset(a) = false")
	}
	if s.Cart.Len() != 0 || s.History != nil {
		t.Errorf("after Reset: cart=%d history=%v", s.Cart.Len(), s.History)
	}
	if m.Reset("missing") {
		t.Error("Reset(missing) = true")
	}
}

func TestEvict_IdleSessions(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	m := NewManagerWithClock(30*time.Minute, clock)

	m.GetOrCreate("old")
	clock.Advance(20 * time.Minute)
	m.GetOrCreate("recent")
	clock.Advance(15 * time.Minute)

	if n := m.Evict(); n != 1 {
		t.Errorf("Evict = %d, want 1", n)
	}
	if _, ok := m.Get("old"); ok {
		t.Error("old session survived eviction")
	}
	if _, ok := m.Get("recent"); !ok {
		t.Error("recent session was evicted")
	}
}

func TestEvict_GetRefreshesIdleTime(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	m := NewManagerWithClock(10*time.Minute, clock)

	m.GetOrCreate("a")
	clock.Advance(8 * time.Minute)
	m.Get("a")
	clock.Advance(8 * time.Minute)

	if n := m.Evict(); n != 0 {
		t.Errorf("Evict = %d, want 0", n)
	}
}

func TestEvict_ZeroTTLKeepsEverything(t *testing.T) {
	clock := &mockClock{now: time.Now()}
	m := NewManagerWithClock(0, clock)
	m.GetOrCreate("a")
	clock.Advance(24 * time.Hour)

	if n := m.Evict(); n != 0 || m.Len() != 1 {
		t.Errorf("Evict = %d, Len = %d, want 0 and 1", n, m.Len())
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	m := NewManager(time.Minute)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- m.Run(ctx, time.Millisecond) }()
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run = %v, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestConcurrentGetOrCreate(t *testing.T) {
	m := NewManager(time.Minute)
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s := m.GetOrCreate("shared")
			s.Lock()
			s.Cart.Add(catalog.Product{ID: "gen_1"})
			s.Unlock()
		}()
	}
	wg.Wait()

	s, _ := m.Get("shared")
	if s.Cart.Len() != 50 {
		t.Errorf("cart has %d items, want 50", s.Cart.Len())
	}
}
