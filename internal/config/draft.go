package config

import (
	"fmt"

	"github.com/spf13/viper"

	"token-deploy-wizard/internal/domain"
	"token-deploy-wizard/internal/form"
)

// DraftFile is a token definition read from YAML or JSON.
// Decimals stays text so it is coerced the way interactive input is.
type DraftFile struct {
	Name          string `mapstructure:"name"`
	Symbol        string `mapstructure:"symbol"`
	Decimals      string `mapstructure:"decimals"`
	InitialSupply string `mapstructure:"initial_supply"`
	AdminWallet   string `mapstructure:"admin_wallet"`
	Description   string `mapstructure:"description"`
	Image         string `mapstructure:"image"` // path to the image file
}

// LoadDraft reads a draft file. The format follows the file extension.
func LoadDraft(path string) (DraftFile, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return DraftFile{}, fmt.Errorf("read draft %s: %w", path, err)
	}
	var d DraftFile
	if err := v.Unmarshal(&d); err != nil {
		return DraftFile{}, fmt.Errorf("decode draft %s: %w", path, err)
	}
	return d, nil
}

// Patch returns the basic-info fields as a patch, coerced like form input.
func (d DraftFile) Patch() domain.DraftPatch {
	symbol := form.NormalizeSymbol(d.Symbol)
	decimals := form.ParseDecimals(d.Decimals)
	return domain.DraftPatch{
		Name:          &d.Name,
		Symbol:        &symbol,
		Decimals:      &decimals,
		InitialSupply: &d.InitialSupply,
		AdminWallet:   &d.AdminWallet,
	}
}

// HasMetadata reports whether the file carries an image path or a description.
func (d DraftFile) HasMetadata() bool {
	return d.Image != "" || d.Description != ""
}
