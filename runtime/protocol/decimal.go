package protocol

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Decimal is an arbitrary-precision-enough fixed-point amount used for cost
// accounting: costs are treated as exact decimals and aggregation never
// drops precision by round-tripping through a float. It stores the value as an integer number of
// micro-units (1e-6) so that repeated addition across many provider calls
// never accumulates floating-point error. Six fractional digits comfortably
// covers per-token USD pricing (e.g. $0.000003/token).
type Decimal struct {
	Micros int64 `json:"micros"`
}

const decimalScale = 1_000_000

// DecimalFromFloat constructs a Decimal from a float64 literal. Intended only
// for constructing constants/fixtures (e.g. in tests or config parsing), not
// for runtime aggregation — aggregation must use Add.
func DecimalFromFloat(v float64) Decimal {
	return Decimal{Micros: int64(v*decimalScale + sign(v)*0.5)}
}

func sign(v float64) float64 {
	if v < 0 {
		return -1
	}
	return 1
}

// DecimalFromString parses a decimal literal such as "0.000123".
func DecimalFromString(s string) (Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Decimal{}, nil
	}
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	parts := strings.SplitN(s, ".", 2)
	whole, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return Decimal{}, fmt.Errorf("protocol: invalid decimal %q: %w", s, err)
	}
	micros := whole * decimalScale
	if len(parts) == 2 {
		frac := parts[1]
		if len(frac) > 6 {
			frac = frac[:6]
		}
		for len(frac) < 6 {
			frac += "0"
		}
		fv, err := strconv.ParseInt(frac, 10, 64)
		if err != nil {
			return Decimal{}, fmt.Errorf("protocol: invalid decimal %q: %w", s, err)
		}
		micros += fv
	}
	if neg {
		micros = -micros
	}
	return Decimal{Micros: micros}, nil
}

// Add returns the exact sum of d and other.
func (d Decimal) Add(other Decimal) Decimal { return Decimal{Micros: d.Micros + other.Micros} }

// Cmp returns -1, 0, or 1 depending on whether d is less than, equal to, or
// greater than other.
func (d Decimal) Cmp(other Decimal) int {
	switch {
	case d.Micros < other.Micros:
		return -1
	case d.Micros > other.Micros:
		return 1
	default:
		return 0
	}
}

// String renders the decimal in fixed-point form, e.g. "0.000123".
func (d Decimal) String() string {
	neg := d.Micros < 0
	micros := d.Micros
	if neg {
		micros = -micros
	}
	whole := micros / decimalScale
	frac := micros % decimalScale
	s := fmt.Sprintf("%d.%06d", whole, frac)
	if neg {
		s = "-" + s
	}
	return s
}

// MarshalJSON renders the decimal as a JSON number string to avoid precision
// loss in consumers that parse JSON numbers as float64.
func (d Decimal) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON accepts either a JSON string or a JSON number.
func (d *Decimal) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		v, err := DecimalFromString(s)
		if err != nil {
			return err
		}
		*d = v
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*d = DecimalFromFloat(f)
	return nil
}
