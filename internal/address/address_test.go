package address

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"

	"github.com/mr-tron/base58"
	"github.com/stellar/go/strkey"
)

func testStellarAddress(t *testing.T) string {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr, err := strkey.Encode(strkey.VersionByteAccountID, pub)
	if err != nil {
		t.Fatalf("encode strkey: %v", err)
	}
	return addr
}

func TestStellar_ValidAddress(t *testing.T) {
	addr := testStellarAddress(t)

	if len(addr) != 56 {
		t.Fatalf("expected 56 chars, got %d", len(addr))
	}
	if addr[0] != 'G' {
		t.Errorf("expected G prefix, got %c", addr[0])
	}
	if !(Stellar{}).IsValidAddress(addr) {
		t.Errorf("expected %s to be valid", addr)
	}
}

func TestStellar_RejectsBadChecksum(t *testing.T) {
	addr := []byte(testStellarAddress(t))

	// Flip one payload character to another alphabet member.
	if addr[10] == 'A' {
		addr[10] = 'B'
	} else {
		addr[10] = 'A'
	}

	if (Stellar{}).IsValidAddress(string(addr)) {
		t.Error("expected checksum mismatch to be rejected")
	}
}

func TestStellar_RejectsWrongVersion(t *testing.T) {
	contract, err := strkey.Encode(strkey.VersionByteContract, bytes.Repeat([]byte{7}, 32))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if contract[0] != 'C' {
		t.Fatalf("expected C prefix, got %c", contract[0])
	}
	if (Stellar{}).IsValidAddress(contract) {
		t.Error("contract ID must not validate as an account ID")
	}
}

func TestStellar_RejectsMalformed(t *testing.T) {
	valid := testStellarAddress(t)
	cases := map[string]string{
		"empty":     "",
		"short":     valid[:55],
		"long":      valid + "A",
		"lowercase": strings.ToLower(valid),
		"bad chars": "G" + strings.Repeat("1", 55),
		"spaces":    " " + valid[1:],
	}

	for name, input := range cases {
		if (Stellar{}).IsValidAddress(input) {
			t.Errorf("%s: expected %q to be invalid", name, input)
		}
	}
}

func TestStellar_RejectsSecretSeed(t *testing.T) {
	seed, err := strkey.Encode(strkey.VersionByteSeed, bytes.Repeat([]byte{9}, 32))
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if (Stellar{}).IsValidAddress(seed) {
		t.Error("secret seed must not validate as an account ID")
	}
}

func TestSolana_ValidWallet(t *testing.T) {
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	addr := base58.Encode(pub)

	if !(Solana{}).IsValidAddress(addr) {
		t.Errorf("expected %s to be valid", addr)
	}
}

func TestSolana_RejectsOffCurve(t *testing.T) {
	// Find a 32-byte value that does not decode to a curve point.
	var offCurve []byte
	for i := 0; i < 256 && offCurve == nil; i++ {
		candidate := bytes.Repeat([]byte{byte(i)}, 32)
		candidate[31] &= 0x7f
		if !isOnCurve(candidate) {
			offCurve = candidate
		}
	}
	if offCurve == nil {
		t.Fatal("no off-curve candidate found")
	}

	if (Solana{}).IsValidAddress(base58.Encode(offCurve)) {
		t.Error("expected off-curve key to be rejected")
	}
}

func TestSolana_RejectsMalformed(t *testing.T) {
	cases := []string{
		"",
		"0OIl",                      // characters outside base58 alphabet
		strings.Repeat("1", 31),     // too short
		base58.Encode([]byte{1, 2}), // wrong decoded length
	}
	for _, input := range cases {
		if (Solana{}).IsValidAddress(input) {
			t.Errorf("expected %q to be invalid", input)
		}
	}
}

func TestLookup(t *testing.T) {
	v, err := Lookup(" Stellar ")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if v.Network() != NetworkStellar {
		t.Errorf("expected stellar, got %s", v.Network())
	}

	if _, err := Lookup("dogecoin"); err == nil {
		t.Error("expected error for unknown network")
	}

	networks := Networks()
	if len(networks) != 2 || networks[0] != NetworkSolana || networks[1] != NetworkStellar {
		t.Errorf("unexpected networks: %v", networks)
	}
}
