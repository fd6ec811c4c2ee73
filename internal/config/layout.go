package config

import (
	"errors"
	"fmt"
	"strings"
)

const (
	LayoutEnhanced = "enhanced"
	LayoutSimple   = "simple"
)

// ErrUnknownLayout is returned for layout names without a preset.
var ErrUnknownLayout = errors.New("unknown bill layout")

// LayoutConfig selects between the bill document variants.
type LayoutConfig struct {
	CustomMargins    bool `json:"custom_margins"`     // 0.5 inch on all sides
	DecorativeRule   bool `json:"decorative_rule"`    // divider under the letterhead
	EmphasizeFields  bool `json:"emphasize_fields"`   // bold name, bold right-aligned date
	DateBeforeBillTo bool `json:"date_before_bill_to"`
	PaymentTerms     bool `json:"payment_terms"`
}

func EnhancedLayout() LayoutConfig {
	return LayoutConfig{
		CustomMargins:    true,
		DecorativeRule:   true,
		EmphasizeFields:  true,
		DateBeforeBillTo: true,
		PaymentTerms:     true,
	}
}

func SimpleLayout() LayoutConfig {
	return LayoutConfig{}
}

// LayoutByName resolves a preset name. It maps an empty name to the enhanced
// preset, which is also the built-in default of BillConfig. Request handlers
// resolve an empty name to the configured BillConfig.Layout instead and only
// call LayoutByName for explicit names.
func LayoutByName(name string) (LayoutConfig, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", LayoutEnhanced:
		return EnhancedLayout(), nil
	case LayoutSimple:
		return SimpleLayout(), nil
	default:
		return LayoutConfig{}, fmt.Errorf("%w: %q", ErrUnknownLayout, name)
	}
}
