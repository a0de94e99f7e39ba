package format

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// DefaultInvoiceNumberTemplate yields numbers like "LB2026-0007".
const DefaultInvoiceNumberTemplate = "{PREFIX}{YYYY}-{SEQ4}"

var (
	tokenRe = regexp.MustCompile(`\{([A-Z]+)(\d*)\}`)

	ErrEmptyTemplate = errors.New("invoice number template is empty")
)

// FormatInvoiceNumber formats a human-readable invoice number from a template, the
// owner's prefix, the issue date and the yearly sequence.
//
// Tokens: {PREFIX}, {YYYY}, {YY}, {MM}, {SEQ} and {SEQn} for a sequence zero-padded
// to n digits. Anything else in braces is rejected.
func FormatInvoiceNumber(template, prefix string, issuedAt time.Time, seq int64) (string, error) {
	if template == "" {
		return "", ErrEmptyTemplate
	}
	if seq <= 0 {
		return "", fmt.Errorf("invalid invoice sequence: %d", seq)
	}
	prefix = strings.TrimSpace(prefix)
	if strings.ContainsAny(prefix, "{}") {
		return "", fmt.Errorf("invalid invoice prefix: %q", prefix)
	}

	var unknown string
	out := tokenRe.ReplaceAllStringFunc(template, func(tok string) string {
		m := tokenRe.FindStringSubmatch(tok)
		name, width := m[1], m[2]
		if width != "" && name != "SEQ" {
			unknown = tok
			return tok
		}
		switch name {
		case "PREFIX":
			return prefix
		case "YYYY":
			return issuedAt.Format("2006")
		case "YY":
			return issuedAt.Format("06")
		case "MM":
			return issuedAt.Format("01")
		case "SEQ":
			n, _ := strconv.Atoi(width)
			return fmt.Sprintf("%0*d", n, seq)
		}
		unknown = tok
		return tok
	})

	if unknown != "" {
		return "", fmt.Errorf("unknown token %s in invoice number template", unknown)
	}
	if strings.ContainsAny(out, "{}") {
		return "", fmt.Errorf("unbalanced braces in invoice number template: %s", template)
	}
	return out, nil
}
