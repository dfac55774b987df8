package heatmap

import (
	"fmt"

	"github.com/jwulff/glucoscape/internal/aggregate"
	"github.com/jwulff/glucoscape/internal/domain"
)

// Palette holds the four class colors. It is a plain value and never changes
// after construction.
type Palette struct {
	Low      domain.RGB
	OnTarget domain.RGB
	High     domain.RGB
	Missing  domain.RGB
}

// DefaultPalette returns the standard colors.
func DefaultPalette() Palette {
	return Palette{
		Low:      domain.HSL(359, 0.47, 0.51),
		OnTarget: domain.HSL(98, 0.32, 0.45),
		High:     domain.HSL(42, 1.00, 0.40),
		Missing:  domain.NewRGB(0x99, 0x99, 0x99),
	}
}

// ParsePalette overrides default colors with hex strings. Empty strings keep the default.
func ParsePalette(low, onTarget, high, missing string) (Palette, error) {
	p := DefaultPalette()
	overrides := []struct {
		name string
		hex  string
		dst  *domain.RGB
	}{
		{"low", low, &p.Low},
		{"on-target", onTarget, &p.OnTarget},
		{"high", high, &p.High},
		{"missing", missing, &p.Missing},
	}
	for _, o := range overrides {
		if o.hex == "" {
			continue
		}
		c, err := domain.ParseHex(o.hex)
		if err != nil {
			return Palette{}, fmt.Errorf("invalid %s color: %w", o.name, err)
		}
		*o.dst = c
	}
	return p, nil
}

// ForClass returns the color of a sample class.
func (p Palette) ForClass(class aggregate.RangeClass) domain.RGB {
	switch class {
	case aggregate.ClassLow:
		return p.Low
	case aggregate.ClassHigh:
		return p.High
	default:
		return p.OnTarget
	}
}
