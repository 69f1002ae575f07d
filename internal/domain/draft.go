package domain

// TokenDraft is the in-progress token definition accumulated across wizard steps.
// InitialSupply is kept as a decimal numeral string to avoid precision loss.
type TokenDraft struct {
	Name          string    `json:"name"`
	Symbol        string    `json:"symbol"`
	Decimals      int       `json:"decimals"`
	InitialSupply string    `json:"initialSupply"`
	AdminWallet   string    `json:"adminWallet"`
	Metadata      *Metadata `json:"metadata,omitempty"` // nil until the Metadata step is visited
}

// Clone returns a copy that shares no mutable state with d.
// The image handle itself is immutable and is shared.
func (d TokenDraft) Clone() TokenDraft {
	out := d
	if d.Metadata != nil {
		m := *d.Metadata
		out.Metadata = &m
	}
	return out
}

// HasMetadataContent reports whether the draft carries an image or a non-empty description.
func (d TokenDraft) HasMetadataContent() bool {
	return d.Metadata.HasContent()
}

// DraftPatch is a partial update of the top-level basic-info fields.
// Nil fields are left untouched.
type DraftPatch struct {
	Name          *string `json:"name,omitempty"`
	Symbol        *string `json:"symbol,omitempty"`
	Decimals      *int    `json:"decimals,omitempty"`
	InitialSupply *string `json:"initialSupply,omitempty"`
	AdminWallet   *string `json:"adminWallet,omitempty"`
}

// IsEmpty reports whether the patch targets no field.
func (p DraftPatch) IsEmpty() bool {
	return p.Name == nil && p.Symbol == nil && p.Decimals == nil &&
		p.InitialSupply == nil && p.AdminWallet == nil
}

// Fields returns the names of the fields the patch targets, in form order.
func (p DraftPatch) Fields() []string {
	var fields []string
	if p.Name != nil {
		fields = append(fields, FieldName)
	}
	if p.Symbol != nil {
		fields = append(fields, FieldSymbol)
	}
	if p.Decimals != nil {
		fields = append(fields, FieldDecimals)
	}
	if p.InitialSupply != nil {
		fields = append(fields, FieldInitialSupply)
	}
	if p.AdminWallet != nil {
		fields = append(fields, FieldAdminWallet)
	}
	return fields
}

// Field names used as keys in validation results.
const (
	FieldName          = "name"
	FieldSymbol        = "symbol"
	FieldDecimals      = "decimals"
	FieldInitialSupply = "initialSupply"
	FieldAdminWallet   = "adminWallet"
	FieldImage         = "image"
	FieldDescription   = "description"
)

// BasicInfoFields lists the required fields of the first step.
var BasicInfoFields = []string{
	FieldName,
	FieldSymbol,
	FieldDecimals,
	FieldInitialSupply,
	FieldAdminWallet,
}
