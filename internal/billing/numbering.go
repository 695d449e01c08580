package billing

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Document kinds sharing the numbering machinery.
const (
	DocTypeDevis   = "devis"
	DocTypeFacture = "facture"
)

// Sequence tokens, widest first so rendering replaces {NNN} before {NN}.
var sequenceTokens = []struct {
	token string
	width int
}{
	{"{NNN}", 3},
	{"{NN}", 2},
	{"{N}", 1},
}

// NumberFormat describes how document numbers are rendered for one document
// type, e.g. "DEV-{YYYY}-{NNN}" producing DEV-2026-001. Year tokens {YYYY}
// and {YY} are substituted from the issue date; the sequence token gives
// the zero-padding width. With AnnualReset the sequence restarts at 1 each
// year; without it the sequence runs across years and the search prefix
// stops before the year token.
type NumberFormat struct {
	Prefix      string
	Format      string
	AnnualReset bool
}

// Validate checks the format template against its configured prefix: the
// template must start with the prefix and carry exactly one sequence token.
func (f NumberFormat) Validate() error {
	if f.Prefix == "" || !strings.HasPrefix(f.Format, f.Prefix) {
		return fmt.Errorf("%w: numbering format %q does not start with prefix %q", ErrValidation, f.Format, f.Prefix)
	}
	count := 0
	for _, st := range sequenceTokens {
		count += strings.Count(f.Format, st.token)
	}
	if count != 1 {
		return fmt.Errorf("%w: numbering format %q needs exactly one sequence token, found %d", ErrValidation, f.Format, count)
	}
	return nil
}

// SearchPrefix returns the literal prefix shared by every number of the
// given year: the format with year tokens substituted, truncated where the
// sequence token starts. Existing numbers are matched with prefix + "%".
func (f NumberFormat) SearchPrefix(asOf time.Time) string {
	rendered := substituteYear(f.Format, asOf)
	for _, st := range sequenceTokens {
		if i := strings.Index(rendered, st.token); i >= 0 {
			rendered = rendered[:i]
			break
		}
	}
	if !f.AnnualReset {
		// Sequence runs across years: match everything after the fixed prefix.
		if i := strings.Index(f.Format, "{Y"); i >= 0 {
			return f.Format[:i]
		}
	}
	return rendered
}

// Render produces the number for the given sequence value.
func (f NumberFormat) Render(seq int, asOf time.Time) string {
	out := substituteYear(f.Format, asOf)
	for _, st := range sequenceTokens {
		if strings.Contains(out, st.token) {
			out = strings.ReplaceAll(out, st.token, fmt.Sprintf("%0*d", st.width, seq))
			break
		}
	}
	return out
}

// NextSequence finds the highest trailing numeric segment among the
// existing numbers of a bucket and increments it. An empty bucket starts
// the sequence at 1. Comparing parsed suffixes rather than raw strings
// keeps the ordering correct even after the sequence outgrows its padding
// width.
func NextSequence(existing []string) int {
	max := 0
	for _, numero := range existing {
		if n := trailingNumber(numero); n > max {
			max = n
		}
	}
	return max + 1
}

// trailingNumber parses the numeric suffix of a rendered number,
// e.g. "DEV-2026-042" -> 42. Returns 0 when no digits terminate the string.
func trailingNumber(numero string) int {
	end := len(numero)
	start := end
	for start > 0 && numero[start-1] >= '0' && numero[start-1] <= '9' {
		start--
	}
	if start == end {
		return 0
	}
	n, err := strconv.Atoi(numero[start:end])
	if err != nil {
		return 0
	}
	return n
}

func substituteYear(format string, asOf time.Time) string {
	year := asOf.Year()
	out := strings.ReplaceAll(format, "{YYYY}", strconv.Itoa(year))
	out = strings.ReplaceAll(out, "{YY}", fmt.Sprintf("%02d", year%100))
	return out
}
