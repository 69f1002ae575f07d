package validation

import (
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/rivo/uniseg"

	"token-deploy-wizard/internal/domain"
)

// Field limits.
const (
	MaxNameLength        = 32
	MaxSymbolLength      = 12
	MinDecimals          = 0
	MaxDecimals          = 18
	MaxDescriptionLength = 500
)

// Messages returned for failing fields.
const (
	MsgNameRequired         = "Token name is required"
	MsgNameTooLong          = "Token name must be 32 characters or less"
	MsgNameInvalidChars     = "Token name may only contain letters, numbers, spaces and basic punctuation"
	MsgSymbolRequired       = "Token symbol is required"
	MsgSymbolTooLong        = "Token symbol must be 12 characters or less"
	MsgSymbolUppercase      = "Token symbol must contain only uppercase letters (A-Z)"
	MsgDecimalsNotInteger   = "Decimals must be a whole number"
	MsgDecimalsRange        = "Decimals must be between 0 and 18"
	MsgSupplyRequired       = "Initial supply is required"
	MsgSupplyNotInteger     = "Initial supply must be a positive whole number"
	MsgSupplyLeadingZero    = "Initial supply must not have leading zeros"
	MsgSupplyNotPositive    = "Initial supply must be greater than zero"
	MsgWalletRequired       = "Admin wallet address is required"
	MsgWalletInvalid        = "Invalid wallet address format"
	MsgDescriptionTooLong   = "Description must be 500 characters or less"
	MsgImageInvalidType     = "Invalid file type. Please upload PNG, JPG, or SVG"
	MsgImageTooLarge        = "File size must be 5MB or less"
	MsgImageEmpty           = "Image file is empty"
	msgAddressCheckerAbsent = "No address format is configured for this network"
)

// namePunctuation is the punctuation accepted in display names besides letters,
// digits and spaces.
const namePunctuation = "-_.,'&()!:#+/"

// Name validates a token display name: 1 to 32 characters of letters, digits,
// spaces and common punctuation; whitespace-only names are rejected.
func Name(name string) Result {
	if strings.TrimSpace(name) == "" {
		return Fail(domain.FieldName, MsgNameRequired)
	}
	if utf8.RuneCountInString(name) > MaxNameLength {
		return Fail(domain.FieldName, MsgNameTooLong)
	}
	for _, r := range name {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == ' ' {
			continue
		}
		if strings.ContainsRune(namePunctuation, r) {
			continue
		}
		return Fail(domain.FieldName, MsgNameInvalidChars)
	}
	return OK()
}

// Symbol validates a ticker symbol: 1 to 12 uppercase ASCII letters.
// Lowercase input is rejected even though front ends uppercase it first.
func Symbol(symbol string) Result {
	if symbol == "" {
		return Fail(domain.FieldSymbol, MsgSymbolRequired)
	}
	if utf8.RuneCountInString(symbol) > MaxSymbolLength {
		return Fail(domain.FieldSymbol, MsgSymbolTooLong)
	}
	for i := 0; i < len(symbol); i++ {
		if symbol[i] < 'A' || symbol[i] > 'Z' {
			return Fail(domain.FieldSymbol, MsgSymbolUppercase)
		}
	}
	return OK()
}

// Decimals validates a decimals value in [0, 18]. Out-of-range values are
// reported, not clamped.
func Decimals(decimals int) Result {
	if decimals < MinDecimals || decimals > MaxDecimals {
		return Fail(domain.FieldDecimals, MsgDecimalsRange)
	}
	return OK()
}

// DecimalsText validates raw decimals input as typed by a user.
// Non-numeric input is an error.
func DecimalsText(raw string) Result {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return Fail(domain.FieldDecimals, MsgDecimalsNotInteger)
	}
	return Decimals(n)
}

// InitialSupply validates a decimal numeral string that must denote a
// positive integer. Signs, fractions, exponents, separators and leading zeros
// are rejected.
func InitialSupply(supply string) Result {
	if supply == "" {
		return Fail(domain.FieldInitialSupply, MsgSupplyRequired)
	}
	for i := 0; i < len(supply); i++ {
		if supply[i] < '0' || supply[i] > '9' {
			return Fail(domain.FieldInitialSupply, MsgSupplyNotInteger)
		}
	}
	if strings.TrimLeft(supply, "0") == "" {
		return Fail(domain.FieldInitialSupply, MsgSupplyNotPositive)
	}
	if supply[0] == '0' {
		return Fail(domain.FieldInitialSupply, MsgSupplyLeadingZero)
	}
	return OK()
}

// Description validates the optional description. Length is counted in
// user-perceived characters (grapheme clusters), not bytes.
func Description(description string) Result {
	if uniseg.GraphemeClusterCount(description) > MaxDescriptionLength {
		return Fail(domain.FieldDescription, MsgDescriptionTooLong)
	}
	return OK()
}
