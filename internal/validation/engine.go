package validation

import "token-deploy-wizard/internal/domain"

// AddressChecker is the network-specific address predicate. It is treated as
// a black box.
type AddressChecker interface {
	IsValidAddress(s string) bool
}

// AddressFunc adapts a plain predicate to AddressChecker.
type AddressFunc func(string) bool

// IsValidAddress calls f(s).
func (f AddressFunc) IsValidAddress(s string) bool { return f(s) }

// Engine bundles the field rules with the network address predicate.
type Engine struct {
	addresses AddressChecker
}

// NewEngine creates an Engine that validates admin wallets with addresses.
func NewEngine(addresses AddressChecker) *Engine {
	return &Engine{addresses: addresses}
}

// AdminWallet validates the admin wallet against the network grammar.
func (e *Engine) AdminWallet(wallet string) Result {
	if wallet == "" {
		return Fail(domain.FieldAdminWallet, MsgWalletRequired)
	}
	if e.addresses == nil {
		return Fail(domain.FieldAdminWallet, msgAddressCheckerAbsent)
	}
	if !e.addresses.IsValidAddress(wallet) {
		return Fail(domain.FieldAdminWallet, MsgWalletInvalid)
	}
	return OK()
}

// BasicInfo validates all five required fields and returns the union of
// their errors.
func (e *Engine) BasicInfo(d domain.TokenDraft) Result {
	return Merge(
		Name(d.Name),
		Symbol(d.Symbol),
		Decimals(d.Decimals),
		InitialSupply(d.InitialSupply),
		e.AdminWallet(d.AdminWallet),
	)
}

// Metadata validates optional metadata. Nil metadata is valid.
func (e *Engine) Metadata(m *domain.Metadata) Result {
	if m == nil {
		return OK()
	}
	return Merge(Image(m.Image), Description(m.Description))
}

// Field validates a single named field of d. Unknown fields pass.
func (e *Engine) Field(field string, d domain.TokenDraft) Result {
	switch field {
	case domain.FieldName:
		return Name(d.Name)
	case domain.FieldSymbol:
		return Symbol(d.Symbol)
	case domain.FieldDecimals:
		return Decimals(d.Decimals)
	case domain.FieldInitialSupply:
		return InitialSupply(d.InitialSupply)
	case domain.FieldAdminWallet:
		return e.AdminWallet(d.AdminWallet)
	case domain.FieldImage:
		return Image(d.Metadata.ImageOrNil())
	case domain.FieldDescription:
		return Description(d.Metadata.DescriptionOrEmpty())
	default:
		return OK()
	}
}
