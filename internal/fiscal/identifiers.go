package fiscal

import (
	"errors"
	"strings"
)

var (
	ErrInvalidCodiceFiscale = errors.New("invalid_codice_fiscale")
	ErrInvalidPartitaIVA    = errors.New("invalid_partita_iva")
)

// Values of a codice fiscale character in an odd (1-based) position.
var oddCharValues = map[rune]int{
	'0': 1, '1': 0, '2': 5, '3': 7, '4': 9, '5': 13, '6': 15, '7': 17, '8': 19, '9': 21,
	'A': 1, 'B': 0, 'C': 5, 'D': 7, 'E': 9, 'F': 13, 'G': 15, 'H': 17, 'I': 19, 'J': 21,
	'K': 2, 'L': 4, 'M': 18, 'N': 20, 'O': 11, 'P': 3, 'Q': 6, 'R': 8, 'S': 12, 'T': 14,
	'U': 16, 'V': 10, 'W': 22, 'X': 25, 'Y': 24, 'Z': 23,
}

// NormalizeCodiceFiscale uppercases and strips spaces, then checks the length, the
// alphabet and the control character of a personal codice fiscale.
func NormalizeCodiceFiscale(raw string) (string, error) {
	cf := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if len(cf) != 16 {
		return "", ErrInvalidCodiceFiscale
	}

	sum := 0
	for i, r := range cf[:15] {
		if !isAlnum(r) {
			return "", ErrInvalidCodiceFiscale
		}
		if i%2 == 0 {
			sum += oddCharValues[r]
			continue
		}
		if r >= '0' && r <= '9' {
			sum += int(r - '0')
		} else {
			sum += int(r - 'A')
		}
	}

	if rune(cf[15]) != rune('A'+sum%26) {
		return "", ErrInvalidCodiceFiscale
	}
	return cf, nil
}

// NormalizePartitaIVA validates an 11 digit VAT number and its check digit.
func NormalizePartitaIVA(raw string) (string, error) {
	piva := strings.TrimPrefix(strings.ToUpper(strings.Join(strings.Fields(raw), "")), "IT")
	if len(piva) != 11 {
		return "", ErrInvalidPartitaIVA
	}

	sum := 0
	for i, r := range piva[:10] {
		if r < '0' || r > '9' {
			return "", ErrInvalidPartitaIVA
		}
		d := int(r - '0')
		if i%2 == 1 {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
	}

	last := rune(piva[10])
	if last < '0' || last > '9' || int(last-'0') != (10-sum%10)%10 {
		return "", ErrInvalidPartitaIVA
	}
	return piva, nil
}

func isAlnum(r rune) bool {
	return (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z')
}
