package stub

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"token-deploy-wizard/internal/domain"
)

func TestDeployer_SucceedsWithContractID(t *testing.T) {
	d := NewDeployer()
	draft := domain.TokenDraft{Name: "Test Coin", Symbol: "TC", Decimals: 7, InitialSupply: "1000000", AdminWallet: "GABC"}

	res, err := d.Submit(context.Background(), "dep-1", draft, domain.FeeBreakdown{})
	if err != nil {
		t.Fatalf("Submit failed: %v", err)
	}
	if len(res.TransactionID) != 64 {
		t.Errorf("expected 64-char hex tx id, got %q", res.TransactionID)
	}
	if !strings.HasPrefix(res.ContractID, "C") || len(res.ContractID) != 56 {
		t.Errorf("expected C... strkey, got %q", res.ContractID)
	}
	if d.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", d.Calls())
	}
	sub := d.Submissions()[0]
	if sub.Draft.Symbol != "TC" || sub.DeploymentID != "dep-1" {
		t.Errorf("recorded submission: symbol=%q id=%q", sub.Draft.Symbol, sub.DeploymentID)
	}
}

func TestDeployer_FailNext(t *testing.T) {
	d := NewDeployer()
	boom := errors.New("insufficient balance")
	d.FailNext(boom)
	d.FailNext(nil)

	if _, err := d.Submit(context.Background(), "dep", domain.TokenDraft{}, domain.FeeBreakdown{}); !errors.Is(err, boom) {
		t.Errorf("first call: expected %v, got %v", boom, err)
	}
	if _, err := d.Submit(context.Background(), "dep", domain.TokenDraft{}, domain.FeeBreakdown{}); !errors.Is(err, ErrScripted) {
		t.Errorf("second call: expected ErrScripted, got %v", err)
	}
	if _, err := d.Submit(context.Background(), "dep", domain.TokenDraft{}, domain.FeeBreakdown{}); err != nil {
		t.Errorf("third call: expected success, got %v", err)
	}
}

func TestDeployer_BlockRelease(t *testing.T) {
	d := NewDeployer()
	d.Block()

	done := make(chan error, 1)
	go func() {
		_, err := d.Submit(context.Background(), "dep-1", domain.TokenDraft{Symbol: "TC"}, domain.FeeBreakdown{})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("Submit returned while blocked")
	case <-time.After(50 * time.Millisecond):
	}

	d.Release()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Submit did not return after Release")
	}
}
