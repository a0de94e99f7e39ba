package pdf

import (
	"context"
	"strings"

	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// GenerateReceipt renders the payment acknowledgement of a paid invoice.
func (p *PDFProvider) GenerateReceipt(ctx context.Context, data ReceiptData) ([]byte, error) {
	if strings.TrimSpace(data.Number) == "" {
		return nil, ErrMissingNumber
	}

	m := newDocument()
	addTitle(m, "Quietanza di pagamento")

	m.AddRow(14,
		col.New(6).Add(
			text.New("Fattura n. "+data.Number+" del "+data.IssueDate, props.Text{Size: 9}),
			text.New("Data pagamento: "+data.DatePaid, props.Text{Size: 9, Top: 5}),
		),
		col.New(6),
	)

	addParties(m, data.Issuer, data.Patient)

	m.AddRow(14,
		text.NewCol(12, "Ricevuto il pagamento di "+data.Total, props.Text{
			Size:  13,
			Style: fontstyle.Bold,
			Top:   4,
		}),
	)

	addServiceAndAmounts(m, data.InvoiceData)
	addNotes(m, data.InvoiceData)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}
