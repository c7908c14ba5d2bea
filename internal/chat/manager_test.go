package chat

import (
	"fmt"
	"sync"
	"testing"
)

func TestSessionManagerRegisterAndGet(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager()

	sess := NewSession("user-1", "tab-1", nil)
	sm.Register(sess)

	if got := sm.GetActive("user-1", "tab-1"); got != sess {
		t.Fatal("GetActive should return the registered session")
	}
	if got := sm.GetActive("user-1", "tab-2"); got != nil {
		t.Fatal("GetActive for unknown tab should return nil")
	}
	if got := sm.GetActive("user-2", "tab-1"); got != nil {
		t.Fatal("GetActive for unknown user should return nil")
	}
	if n := sm.Count(); n != 1 {
		t.Fatalf("Count = %d, want 1", n)
	}
}

func TestSessionManagerReplaceSameTab(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager()

	old := NewSession("user-1", "tab-1", nil)
	sm.Register(old)

	fresh := NewSession("user-1", "tab-1", nil)
	sm.Register(fresh)

	if got := sm.GetActive("user-1", "tab-1"); got != fresh {
		t.Fatal("replacement session should be the active one")
	}
	if n := sm.Count(); n != 1 {
		t.Fatalf("Count after replace = %d, want 1", n)
	}

	// Unregistering the stale session must not evict its replacement.
	sm.Unregister(old)
	if got := sm.GetActive("user-1", "tab-1"); got != fresh {
		t.Fatal("unregistering a stale session evicted the active one")
	}
}

func TestSessionManagerUnregister(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager()

	sess := NewSession("user-1", "tab-1", nil)
	sm.Register(sess)
	sm.Unregister(sess)

	if got := sm.GetActive("user-1", "tab-1"); got != nil {
		t.Fatal("session should be gone after Unregister")
	}
	if n := sm.Count(); n != 0 {
		t.Fatalf("Count = %d, want 0", n)
	}
}

func TestSessionManagerConcurrent(t *testing.T) {
	t.Parallel()
	sm := NewSessionManager()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 5; j++ {
				sess := NewSession(fmt.Sprintf("user-%d", i), fmt.Sprintf("tab-%d", j), nil)
				sm.Register(sess)
				sm.GetActive(sess.UserID, sess.ID)
				sm.Unregister(sess)
			}
		}(i)
	}
	wg.Wait()

	if n := sm.Count(); n != 0 {
		t.Fatalf("Count after churn = %d, want 0", n)
	}
}
