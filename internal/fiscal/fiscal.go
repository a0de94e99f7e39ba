// Package fiscal derives the monetary and legal fields of an invoice issued by a
// professional under the Italian RF01 or RF19 regime.
//
// Every function in this package is pure: no I/O, no shared state, safe to call
// concurrently. Amounts are shopspring decimals and are never rounded until they are
// formatted for display.
package fiscal

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Regime is the "regime fiscale" code printed on the invoice.
type Regime string

const (
	// RegimeOrdinario is the ordinary regime; health services are VAT exempt under art. 10.
	RegimeOrdinario Regime = "RF01"
	// RegimeForfettario is the flat-rate regime.
	RegimeForfettario Regime = "RF19"
)

var (
	// StampDutyThreshold is the exempt amount above which the revenue stamp is due.
	StampDutyThreshold = decimal.RequireFromString("77.47")
	// StampDutyAmount is the fixed revenue stamp applied above the threshold.
	StampDutyAmount = decimal.RequireFromString("2.00")

	hundred = decimal.NewFromInt(100)
)

const (
	clauseArticle10 = "Operazione esente da IVA ai sensi dell'art. 10, comma 1, n. 18 del D.P.R. 633/1972."
	clauseFlatRate  = "Operazione effettuata ai sensi dell'art. 1, commi da 54 a 89, della Legge n. 190/2014 " +
		"(regime forfettario). Operazione senza applicazione dell'IVA e non soggetta a ritenuta d'acconto."

	noteEnpapToPatient    = "Contributo integrativo ENPAP addebitato al paziente ai sensi dell'art. 8, comma 3, della Legge 335/1995."
	noteEnpapProfessional = "Contributo integrativo ENPAP a carico del professionista, non addebitato al paziente."

	noteStampDuty = "Imposta di bollo da 2,00 euro assolta in modo virtuale ai sensi del D.M. 17 giugno 2014."
)

// Input carries what the calculator needs for a single invoice.
type Input struct {
	Regime         Regime
	Amount         decimal.Decimal // importo della prestazione
	EnpapPercent   decimal.Decimal
	EnpapToPatient bool
}

// Result is the fiscal breakdown of one invoice. It is a projection of Input and is
// recomputed whenever the input changes.
type Result struct {
	Imponibile  decimal.Decimal
	Enpap       decimal.Decimal
	Bollo       decimal.Decimal
	Totale      decimal.Decimal
	FraseLegale string
	NotaEnpap   string
	// NotaBollo is nil when no stamp duty applies.
	NotaBollo *string
}

// HasStampDuty reports whether the revenue stamp is charged.
func (r Result) HasStampDuty() bool {
	return r.Bollo.IsPositive()
}

// ParseRegime accepts a regime code regardless of case and surrounding spaces.
func ParseRegime(raw string) (Regime, error) {
	regime := Regime(strings.ToUpper(strings.TrimSpace(raw)))
	switch regime {
	case RegimeOrdinario, RegimeForfettario:
		return regime, nil
	default:
		return "", &InvalidRegimeError{Code: raw}
	}
}

// Valid reports whether r is one of the recognized codes.
func (r Regime) Valid() bool {
	return r == RegimeOrdinario || r == RegimeForfettario
}
