package fiscal

import "github.com/shopspring/decimal"

// ComputeStampDuty returns the revenue stamp due on totalForBollo. The comparison is
// strict: exactly 77.47 carries no stamp.
func ComputeStampDuty(totalForBollo decimal.Decimal) decimal.Decimal {
	if totalForBollo.GreaterThan(StampDutyThreshold) {
		return StampDutyAmount
	}
	return decimal.Zero
}

// ComputeEnpapContribution returns the ENPAP contribution shown on the invoice. When
// the professional absorbs it the invoice carries zero.
func ComputeEnpapContribution(taxableBase, percentage decimal.Decimal, chargeToPatient bool) decimal.Decimal {
	if !chargeToPatient {
		return decimal.Zero
	}
	return taxableBase.Mul(percentage).Div(hundred)
}

// LegalExemptionClause returns the VAT exemption sentence required for regime.
func LegalExemptionClause(regime Regime) (string, error) {
	switch regime {
	case RegimeOrdinario:
		return clauseArticle10, nil
	case RegimeForfettario:
		return clauseFlatRate, nil
	default:
		return "", &InvalidRegimeError{Code: string(regime)}
	}
}

// EnpapNote returns the ENPAP note wording for the given charging choice.
func EnpapNote(chargeToPatient bool) string {
	if chargeToPatient {
		return noteEnpapToPatient
	}
	return noteEnpapProfessional
}

// ComputeFiscalBreakdown validates in and derives the full invoice breakdown. No
// arithmetic happens before validation succeeds.
func ComputeFiscalBreakdown(in Input) (Result, error) {
	if err := validate(in); err != nil {
		return Result{}, err
	}

	imponibile := in.Amount
	enpap := ComputeEnpapContribution(imponibile, in.EnpapPercent, in.EnpapToPatient)
	// stamp duty is assessed before the stamp itself is added
	bollo := ComputeStampDuty(imponibile.Add(enpap))
	totale := imponibile.Add(enpap).Add(bollo)

	clause, err := LegalExemptionClause(in.Regime)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Imponibile:  imponibile,
		Enpap:       enpap,
		Bollo:       bollo,
		Totale:      totale,
		FraseLegale: clause,
		NotaEnpap:   EnpapNote(in.EnpapToPatient),
	}
	if bollo.IsPositive() {
		note := noteStampDuty
		result.NotaBollo = &note
	}
	return result, nil
}

func validate(in Input) error {
	if !in.Regime.Valid() {
		return &InvalidRegimeError{Code: string(in.Regime)}
	}
	if in.Amount.IsNegative() {
		return &InvalidAmountError{Field: "importo_prestazione", Value: in.Amount.String()}
	}
	if in.EnpapPercent.IsNegative() {
		return &InvalidAmountError{Field: "percentuale_enpap", Value: in.EnpapPercent.String()}
	}
	return nil
}
