package bloodsugar

import "strings"

// MmolToMgdl is the mg/dL equivalent of 1 mmol/L of glucose (molar mass based).
const MmolToMgdl = 18.018018018

// Unit is a glucose concentration unit.
type Unit string

const (
	UnitMgdl Unit = "mgdl"
	UnitMmol Unit = "mmol"
)

// ParseUnit maps the spellings used by Nightscout to a Unit.
// Anything unrecognised is treated as mg/dL, the canonical unit.
func ParseUnit(s string) Unit {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "mmol", "mmol/l":
		return UnitMmol
	default:
		return UnitMgdl
	}
}

// Label returns the display label for the unit.
func (u Unit) Label() string {
	if u == UnitMmol {
		return "mmol/l"
	}
	return "mg/dl"
}

// ToCanonical converts a value expressed in unit to mg/dL.
func ToCanonical(value float64, unit Unit) float64 {
	if unit == UnitMmol {
		return value * MmolToMgdl
	}
	return value
}

// FromCanonical converts a mg/dL value to unit.
func FromCanonical(mgdl float64, unit Unit) float64 {
	if unit == UnitMmol {
		return mgdl / MmolToMgdl
	}
	return mgdl
}

// MgdlToMmol converts mg/dL to mmol/L rounded to one decimal, as shown on CGM receivers.
func MgdlToMmol(mgdl float64) float64 {
	return float64(int(FromCanonical(mgdl, UnitMmol)*10+0.5)) / 10.0
}
