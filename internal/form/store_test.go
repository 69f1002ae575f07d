package form

import (
	"testing"

	"token-deploy-wizard/internal/domain"
)

func strPtr(s string) *string { return &s }
func intPtr(n int) *int       { return &n }

func TestStore_UpdatePreservesUntouchedFields(t *testing.T) {
	s := NewStore()
	s.Update(domain.DraftPatch{Name: strPtr("A"), Symbol: strPtr("B")})

	got := s.Update(domain.DraftPatch{Symbol: strPtr("X")})

	if got.Name != "A" {
		t.Errorf("name: got %q, want A", got.Name)
	}
	if got.Symbol != "X" {
		t.Errorf("symbol: got %q, want X", got.Symbol)
	}
}

func TestStore_UpdateAllFields(t *testing.T) {
	s := NewStore()
	s.SetMetadata(&domain.Metadata{Description: "keep me"})

	got := s.Update(domain.DraftPatch{
		Name:          strPtr("Test Coin"),
		Symbol:        strPtr("TC"),
		Decimals:      intPtr(7),
		InitialSupply: strPtr("1000000"),
		AdminWallet:   strPtr("GABC"),
	})

	if got.Decimals != 7 || got.InitialSupply != "1000000" || got.AdminWallet != "GABC" {
		t.Errorf("unexpected draft: %+v", got)
	}
	if got.Metadata == nil || got.Metadata.Description != "keep me" {
		t.Error("basic-info update must not touch metadata")
	}
}

func TestStore_EmptyPatchIsNoop(t *testing.T) {
	s := NewStore()
	s.Update(domain.DraftPatch{Name: strPtr("A")})

	got := s.Update(domain.DraftPatch{})
	if got.Name != "A" {
		t.Errorf("empty patch changed draft: %+v", got)
	}
}

func TestStore_SetMetadataReplacesWholesale(t *testing.T) {
	s := NewStore()
	img := &domain.ImageFile{Name: "a.png", MimeType: "image/png", Size: 10}
	s.SetMetadata(&domain.Metadata{Image: img, Description: "desc"})

	// A replacement without the sibling field drops it: no deep merge.
	got := s.SetMetadata(&domain.Metadata{Description: "new"})
	if got.Metadata.Image != nil {
		t.Error("expected image to be replaced by nil")
	}
	if got.Metadata.Description != "new" {
		t.Errorf("description: got %q", got.Metadata.Description)
	}

	if got := s.SetMetadata(nil); got.Metadata != nil {
		t.Error("nil metadata should clear to absent")
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s := NewStore()
	in := &domain.Metadata{Description: "original"}
	s.SetMetadata(in)

	in.Description = "mutated by caller"
	d := s.Draft()
	if d.Metadata.Description != "original" {
		t.Error("store must copy metadata on write")
	}

	d.Metadata.Description = "mutated by reader"
	if s.Draft().Metadata.Description != "original" {
		t.Error("store must copy metadata on read")
	}
}

func TestStore_Reset(t *testing.T) {
	s := NewStore()
	s.Update(domain.DraftPatch{Name: strPtr("A"), Decimals: intPtr(7)})
	s.SetMetadata(&domain.Metadata{Description: "d"})

	s.Reset()

	if got := s.Draft(); got != (domain.TokenDraft{}) {
		t.Errorf("expected empty draft, got %+v", got)
	}
}
