package password

import (
	"strings"
	"unicode"
)

// Policy define requisitos mínimos para passwords nuevos.
type Policy struct {
	MinLength    int
	MaxLength    int
	RequireDigit bool
	RequireMixed bool // mayúscula y minúscula
}

// PolicyError lista las reglas incumplidas (too_short, too_long, missing_digit, missing_mixed_case).
type PolicyError struct {
	Reasons []string
}

func (e *PolicyError) Error() string {
	return "password: policy violation: " + strings.Join(e.Reasons, ",")
}

// Check retorna nil o un *PolicyError.
func (p Policy) Check(s string) error {
	var reasons []string
	n := len([]rune(s))
	if n < p.MinLength {
		reasons = append(reasons, "too_short")
	}
	if p.MaxLength > 0 && n > p.MaxLength {
		reasons = append(reasons, "too_long")
	}

	var upper, lower, digit bool
	for _, r := range s {
		upper = upper || unicode.IsUpper(r)
		lower = lower || unicode.IsLower(r)
		digit = digit || unicode.IsDigit(r)
	}
	if p.RequireDigit && !digit {
		reasons = append(reasons, "missing_digit")
	}
	if p.RequireMixed && !(upper && lower) {
		reasons = append(reasons, "missing_mixed_case")
	}

	if len(reasons) > 0 {
		return &PolicyError{Reasons: reasons}
	}
	return nil
}
