package approval

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BrendanGraham14/steer-sub008/pkg/types"
)

func TestCoordinator_AskGrantedOnce(t *testing.T) {
	c := NewCoordinator()
	req := Request{SessionID: "s1", CallID: "c1", ToolName: "bash"}

	var dec Decision
	var err error
	done := make(chan struct{})
	go func() {
		dec, err = c.Ask(context.Background(), req)
		close(done)
	}()

	// Give Ask a moment to register the pending request.
	time.Sleep(10 * time.Millisecond)
	if !c.Respond("s1", "c1", Decision{Granted: true, Scope: ScopeOnce}) {
		t.Fatal("Respond should have matched the pending request")
	}
	<-done

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !dec.Granted {
		t.Fatal("expected granted decision")
	}
	if c.IsApproved("s1", "bash") {
		t.Fatal("a once-scoped grant should not mark the tool session-approved")
	}
}

func TestCoordinator_AskGrantedSession(t *testing.T) {
	c := NewCoordinator()
	req := Request{SessionID: "s1", CallID: "c1", ToolName: "bash"}

	done := make(chan struct{})
	go func() {
		c.Ask(context.Background(), req)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	c.Respond("s1", "c1", Decision{Granted: true, Scope: ScopeSession})
	<-done

	if !c.IsApproved("s1", "bash") {
		t.Fatal("session-scoped grant should mark the tool approved")
	}
}

func TestCoordinator_AskDenied(t *testing.T) {
	c := NewCoordinator()
	req := Request{SessionID: "s1", CallID: "c1", ToolName: "bash"}

	var dec Decision
	done := make(chan struct{})
	go func() {
		dec, _ = c.Ask(context.Background(), req)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	c.Respond("s1", "c1", Decision{Granted: false})
	<-done

	if dec.Granted {
		t.Fatal("expected denied decision")
	}
}

func TestCoordinator_AskCancelled(t *testing.T) {
	c := NewCoordinator()
	ctx, cancel := context.WithCancel(context.Background())
	req := Request{SessionID: "s1", CallID: "c1", ToolName: "bash"}

	var err error
	done := make(chan struct{})
	go func() {
		_, err = c.Ask(ctx, req)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	cancel()
	<-done

	if err == nil {
		t.Fatal("expected context cancellation error")
	}
}

func TestCoordinator_RespondStaleID(t *testing.T) {
	c := NewCoordinator()
	if c.Respond("unknown", "c1", Decision{Granted: true}) {
		t.Fatal("Respond should report false for an unknown session")
	}

	req := Request{SessionID: "s1", CallID: "c1", ToolName: "bash"}
	done := make(chan struct{})
	go func() {
		c.Ask(context.Background(), req)
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)

	if c.Respond("s1", "wrong-call", Decision{Granted: true}) {
		t.Fatal("Respond should reject a mismatched call id")
	}
	c.Respond("s1", "c1", Decision{Granted: true, Scope: ScopeOnce})
	<-done
}

func TestCoordinator_SerializesPerSession(t *testing.T) {
	c := NewCoordinator()
	var mu sync.Mutex
	var order []string

	var wg sync.WaitGroup
	for i, id := range []types.ToolCallID{"c1", "c2"} {
		wg.Add(1)
		go func(i int, callID types.ToolCallID) {
			defer wg.Done()
			c.Ask(context.Background(), Request{SessionID: "s1", CallID: callID, ToolName: "bash"})
			mu.Lock()
			order = append(order, string(callID))
			mu.Unlock()
		}(i, id)
	}

	// Resolve whichever one is pending, repeatedly, until both finish.
	deadline := time.After(2 * time.Second)
	for len(order) < 2 {
		select {
		case <-deadline:
			t.Fatal("timed out waiting for both approvals to resolve")
		default:
		}
		c.Respond("s1", "c1", Decision{Granted: true, Scope: ScopeOnce})
		c.Respond("s1", "c2", Decision{Granted: true, Scope: ScopeOnce})
		time.Sleep(5 * time.Millisecond)
		mu.Lock()
		n := len(order)
		mu.Unlock()
		if n >= 2 {
			break
		}
	}
	wg.Wait()
}

func TestCoordinator_ClearSession(t *testing.T) {
	c := NewCoordinator()
	done := make(chan struct{})
	go func() {
		c.Ask(context.Background(), Request{SessionID: "s1", CallID: "c1", ToolName: "bash"})
		close(done)
	}()
	time.Sleep(10 * time.Millisecond)
	c.Respond("s1", "c1", Decision{Granted: true, Scope: ScopeSession})
	<-done

	c.ClearSession("s1")
	if c.IsApproved("s1", "bash") {
		t.Fatal("ClearSession should remove session-wide approvals")
	}
}
