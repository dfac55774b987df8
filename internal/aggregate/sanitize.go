package aggregate

import (
	"errors"
	"fmt"
	"math"

	"github.com/jwulff/glucoscape/internal/bloodsugar"
)

// ErrMalformedSample marks a sample that cannot be aggregated.
var ErrMalformedSample = errors.New("malformed sample")

// Rejected is a sample dropped by Sanitize together with the reason.
type Rejected struct {
	Sample bloodsugar.Sample
	Err    error
}

// CheckSample returns an error wrapping ErrMalformedSample if s has no
// timestamp or a value that is not a finite positive number.
func CheckSample(s bloodsugar.Sample) error {
	switch {
	case s.Timestamp.IsZero():
		return fmt.Errorf("%w: missing timestamp", ErrMalformedSample)
	case math.IsNaN(s.Value) || math.IsInf(s.Value, 0):
		return fmt.Errorf("%w: non-finite value at %s", ErrMalformedSample, s.Timestamp.Format("2006-01-02 15:04"))
	case s.Value <= 0:
		return fmt.Errorf("%w: non-positive value %g at %s", ErrMalformedSample, s.Value, s.Timestamp.Format("2006-01-02 15:04"))
	}
	return nil
}

// Sanitize splits samples into those safe to aggregate and those rejected.
// The order of the kept samples is preserved. Malformed samples are skipped,
// never propagated, so a NaN can't reach the percentages.
func Sanitize(samples []bloodsugar.Sample) ([]bloodsugar.Sample, []Rejected) {
	valid := make([]bloodsugar.Sample, 0, len(samples))
	var rejected []Rejected
	for _, s := range samples {
		if err := CheckSample(s); err != nil {
			rejected = append(rejected, Rejected{Sample: s, Err: err})
			continue
		}
		valid = append(valid, s)
	}
	return valid, rejected
}
