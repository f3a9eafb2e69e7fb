package kvfs_test

import (
	"testing"

	"github.com/hviana/kvfs"
)

func TestInFlightRegistryMutualExclusion(t *testing.T) {
	r := kvfs.NewInFlightRegistry()

	started, count := r.StartSaving("a/b", "c1")
	if !started || count != 1 {
		t.Fatalf("StartSaving: want (true, 1), got (%v, %d)", started, count)
	}

	if started, _ := r.StartSaving("a/b", "c2"); started {
		t.Fatalf("StartSaving: second save for same uri must short-circuit")
	}
	if started, _ := r.StartDeleting("a/b", "c2"); started {
		t.Fatalf("StartDeleting: delete for a saving uri must short-circuit")
	}

	progress, status, ok := r.Status("a/b")
	if !ok || status != kvfs.StatusSaving || progress != 0 {
		t.Fatalf("Status: want (0, saving, true), got (%d, %v, %v)", progress, status, ok)
	}

	r.EndSaving("a/b", "c1")
	if _, _, ok := r.Status("a/b"); ok {
		t.Fatalf("Status: expected no in-flight state after EndSaving")
	}
	if n := r.ClientReqs("c1"); n != 0 {
		t.Fatalf("ClientReqs(c1): want 0 after EndSaving, got %d", n)
	}
}

func TestInFlightRegistryClientReqs(t *testing.T) {
	r := kvfs.NewInFlightRegistry()

	if n := r.IncrClient("c"); n != 1 {
		t.Fatalf("IncrClient: want 1, got %d", n)
	}
	if n := r.IncrClient("c"); n != 2 {
		t.Fatalf("IncrClient: want 2, got %d", n)
	}
	r.DecrClient("c")
	if n := r.ClientReqs("c"); n != 1 {
		t.Fatalf("ClientReqs: want 1, got %d", n)
	}
	r.DecrClient("c")
	if n := r.ClientReqs("c"); n != 0 {
		t.Fatalf("ClientReqs: want 0, got %d", n)
	}
}
