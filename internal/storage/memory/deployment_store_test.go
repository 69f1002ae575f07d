package memory

import (
	"context"
	"errors"
	"testing"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/storage"
)

func testRecord(id, session, symbol string, startedAt int64) *domain.DeploymentRecord {
	tx := "tx-" + id
	finished := startedAt + 1000
	return &domain.DeploymentRecord{
		DeploymentID:  id,
		SessionID:     session,
		Network:       "stellar",
		Name:          "Test Coin",
		Symbol:        symbol,
		Decimals:      7,
		InitialSupply: "1000000",
		AdminWallet:   "GADMIN",
		BaseFee:       "5",
		MetadataFee:   "0",
		TotalFee:      "5",
		State:         domain.DeploymentSucceeded,
		TransactionID: &tx,
		StartedAt:     startedAt,
		FinishedAt:    &finished,
	}
}

func TestDeploymentStore_InsertAndGetByID(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	rec := testRecord("dep1", "sess1", "TC", 1704067200000)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	got, err := store.GetByID(ctx, "dep1")
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Symbol != "TC" {
		t.Errorf("Symbol mismatch: got %s, want TC", got.Symbol)
	}
	if got.TransactionID == nil || *got.TransactionID != "tx-dep1" {
		t.Errorf("TransactionID mismatch: got %v", got.TransactionID)
	}

	// Returned records are copies.
	*got.TransactionID = "changed"
	again, _ := store.GetByID(ctx, "dep1")
	if *again.TransactionID != "tx-dep1" {
		t.Error("store returned aliased record")
	}
}

func TestDeploymentStore_Duplicate(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	rec := testRecord("dep1", "sess1", "TC", 1)
	if err := store.Insert(ctx, rec); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}
	if err := store.Insert(ctx, rec); !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("expected ErrDuplicateKey, got %v", err)
	}
}

func TestDeploymentStore_InvalidInput(t *testing.T) {
	store := NewDeploymentStore()
	if err := store.Insert(context.Background(), &domain.DeploymentRecord{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("expected ErrInvalidInput, got %v", err)
	}
}

func TestDeploymentStore_NotFound(t *testing.T) {
	store := NewDeploymentStore()
	if _, err := store.GetByID(context.Background(), "missing"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeploymentStore_GetBySessionOrdered(t *testing.T) {
	store := NewDeploymentStore()
	ctx := context.Background()

	for _, r := range []*domain.DeploymentRecord{
		testRecord("c", "sess1", "TC", 3000),
		testRecord("a", "sess1", "TC", 1000),
		testRecord("b", "sess2", "XX", 2000),
	} {
		if err := store.Insert(ctx, r); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetBySession(ctx, "sess1")
	if err != nil {
		t.Fatalf("GetBySession failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records, got %d", len(got))
	}
	if got[0].DeploymentID != "a" || got[1].DeploymentID != "c" {
		t.Errorf("wrong order: %s, %s", got[0].DeploymentID, got[1].DeploymentID)
	}

	bySymbol, err := store.GetBySymbol(ctx, "XX")
	if err != nil {
		t.Fatalf("GetBySymbol failed: %v", err)
	}
	if len(bySymbol) != 1 || bySymbol[0].DeploymentID != "b" {
		t.Errorf("unexpected GetBySymbol result: %v", bySymbol)
	}
}
