package config

import (
	"encoding/json"
	"os"

	ierr "github.com/playforge/asc-pricer/internal/errors"
	"github.com/shopspring/decimal"
)

// PriceTable maps product ids to their base-currency price.
type PriceTable map[string]decimal.Decimal

// PercentageTable maps territory codes to the multiplier applied to the base
// price when localizing. Territories absent from the table default to 1.0.
type PercentageTable map[string]decimal.Decimal

// LoadPriceTable reads a productID -> price JSON file.
func LoadPriceTable(path string) (PriceTable, error) {
	var table PriceTable
	if err := loadJSON(path, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// LoadPercentageTable reads a territory -> percentage JSON file.
func LoadPercentageTable(path string) (PercentageTable, error) {
	var table PercentageTable
	if err := loadJSON(path, &table); err != nil {
		return nil, err
	}
	return table, nil
}

// Percentage returns the multiplier for a territory, defaulting to 1.0.
func (t PercentageTable) Percentage(territory string) decimal.Decimal {
	if t != nil {
		if pct, ok := t[territory]; ok {
			return pct
		}
	}
	return decimal.NewFromInt(1)
}

func loadJSON(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return ierr.WithError(err).
			WithHintf("Unable to read %s", path).
			Mark(ierr.ErrValidation)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return ierr.WithError(err).
			WithHintf("File %s is not valid JSON", path).
			Mark(ierr.ErrValidation)
	}
	return nil
}
