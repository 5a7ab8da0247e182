package ai

import (
	"sync"
	"testing"
)

func TestBudgetApprovesPrefixUnderCap(t *testing.T) {
	b := NewBudget(0.10)
	approvals := 0
	for i := 0; i < 10; i++ {
		// Each image costs a flat $0.04, so only two fit under $0.10.
		if b.ApproveImages(1, "test") {
			approvals++
		}
	}
	if approvals != 2 {
		t.Fatalf("approved %d images under a $0.10 cap, want 2", approvals)
	}
	if spent := b.SpentUSD(); spent > 0.10 {
		t.Fatalf("spent %f exceeds cap", spent)
	}
	if len(b.Events()) != 2 {
		t.Fatalf("event log has %d entries, want 2", len(b.Events()))
	}
}

func TestBudgetDenialLeavesLedgerUntouched(t *testing.T) {
	b := NewBudget(0.05)
	if !b.ApproveImages(1, "first") {
		t.Fatal("first image should fit under $0.05")
	}
	before := b.SpentUSD()
	if b.ApproveImages(1, "second") {
		t.Fatal("second image should be denied")
	}
	if b.SpentUSD() != before {
		t.Fatalf("denied approval mutated ledger: %f -> %f", before, b.SpentUSD())
	}
}

func TestBudgetZeroCapApprovesNothingPaid(t *testing.T) {
	b := NewBudget(0)
	if b.ApproveImages(1, "") {
		t.Fatal("zero cap approved an image")
	}
	if b.ApproveText(100000, 100000, "") {
		t.Fatal("zero cap approved text")
	}
	// Zero-cost text (zero chars both ways) still passes: spend stays 0.
	if !b.ApproveText(0, 0, "") {
		t.Fatal("zero-cost operation should be approved at zero cap")
	}
	if b.SpentUSD() != 0 {
		t.Fatalf("spent = %f, want 0", b.SpentUSD())
	}
	if b.RemainingUSD() != 0 {
		t.Fatalf("remaining = %f, want 0", b.RemainingUSD())
	}
}

func TestBudgetRemainingNeverNegative(t *testing.T) {
	b := NewBudget(0.04)
	b.ApproveImages(1, "")
	if got := b.RemainingUSD(); got < 0 {
		t.Fatalf("remaining = %f, want >= 0", got)
	}
}

func TestBudgetEstimateTextScalesWithSize(t *testing.T) {
	b := NewBudget(1)
	small := b.EstimateText(1000, 1000)
	large := b.EstimateText(10000, 10000)
	if large <= small {
		t.Fatalf("estimate does not scale: %f vs %f", small, large)
	}
	// 4 chars per token at $0.15/M in and $0.60/M out.
	want := (1000.0/4)/1e6*0.15 + (1000.0/4)/1e6*0.60
	if diff := small - want; diff > 1e-12 || diff < -1e-12 {
		t.Fatalf("EstimateText(1000,1000) = %g, want %g", small, want)
	}
}

func TestBudgetConcurrentApprovalsNeverOverspend(t *testing.T) {
	b := NewBudget(0.20) // room for exactly five $0.04 images
	var wg sync.WaitGroup
	approved := make(chan bool, 32)
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			approved <- b.ApproveImages(1, "race")
		}()
	}
	wg.Wait()
	close(approved)
	count := 0
	for ok := range approved {
		if ok {
			count++
		}
	}
	if count != 5 {
		t.Fatalf("approved %d concurrent images under a $0.20 cap, want 5", count)
	}
	if b.SpentUSD() > 0.20+1e-9 {
		t.Fatalf("overspent: %f", b.SpentUSD())
	}
}
