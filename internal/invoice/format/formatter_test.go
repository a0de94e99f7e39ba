package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatInvoiceNumber(t *testing.T) {
	issued := time.Date(2026, 3, 9, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name     string
		template string
		prefix   string
		seq      int64
		want     string
	}{
		{"default without prefix", DefaultInvoiceNumberTemplate, "", 1, "2026-0001"},
		{"default with prefix", DefaultInvoiceNumberTemplate, "LB", 27, "LB2026-0027"},
		{"sequence wider than padding", DefaultInvoiceNumberTemplate, "", 12345, "2026-12345"},
		{"month and short year", "{YY}{MM}/{SEQ}", "", 8, "2603/8"},
		{"plain sequence", "{SEQ3}", "", 5, "005"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FormatInvoiceNumber(tt.template, tt.prefix, issued, tt.seq)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestFormatInvoiceNumberErrors(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	_, err := FormatInvoiceNumber("", "", issued, 1)
	assert.ErrorIs(t, err, ErrEmptyTemplate)
	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, "", issued, 0)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("{YYYY}-{UNKNOWN}", "", issued, 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber(DefaultInvoiceNumberTemplate, "{SEQ}", issued, 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("{YYYY-{SEQ}", "", issued, 1)
	assert.Error(t, err)
	_, err = FormatInvoiceNumber("{MM2}-{SEQ}", "", issued, 1)
	assert.Error(t, err)
}
