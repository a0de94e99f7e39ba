package fiscal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeCodiceFiscale(t *testing.T) {
	valid := []struct {
		in   string
		want string
	}{
		{"RSSMRA85T10A562S", "RSSMRA85T10A562S"},
		{" rssmra85t10a562s ", "RSSMRA85T10A562S"},
		{"BNC LRA 80A41 H501D", "BNCLRA80A41H501D"},
		{"VRDGPP80A01F205X", "VRDGPP80A01F205X"},
	}
	for _, tt := range valid {
		got, err := NormalizeCodiceFiscale(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got)
	}

	invalid := []string{"", "RSSMRA85T10A562", "RSSMRA85T10A562X", "RSSMRA85T10A56-S"}
	for _, in := range invalid {
		_, err := NormalizeCodiceFiscale(in)
		assert.ErrorIs(t, err, ErrInvalidCodiceFiscale, in)
	}
}

func TestNormalizePartitaIVA(t *testing.T) {
	got, err := NormalizePartitaIVA("IT 12345678903")
	require.NoError(t, err)
	assert.Equal(t, "12345678903", got)

	got, err = NormalizePartitaIVA("00743110157")
	require.NoError(t, err)
	assert.Equal(t, "00743110157", got)

	for _, in := range []string{"01234567890", "1234567890", "1234567890A"} {
		_, err := NormalizePartitaIVA(in)
		assert.ErrorIs(t, err, ErrInvalidPartitaIVA, in)
	}
}
