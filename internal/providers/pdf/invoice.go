package pdf

import (
	"context"
	"errors"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

var ErrMissingNumber = errors.New("invoice number is required")

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateInvoice(ctx context.Context, data InvoiceData) ([]byte, error) {
	if strings.TrimSpace(data.Number) == "" {
		return nil, ErrMissingNumber
	}

	m := newDocument()
	addTitle(m, "Fattura n. "+data.Number)

	m.AddRow(14,
		col.New(6).Add(
			text.New("Data emissione: "+data.IssueDate, props.Text{Size: 9}),
			text.New("Scadenza: "+data.DueDate, props.Text{Size: 9, Top: 5}),
		),
		col.New(6),
	)

	addParties(m, data.Issuer, data.Patient)
	addServiceAndAmounts(m, data)
	addNotes(m, data)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return doc.GetBytes(), nil
}

func newDocument() core.Maroto {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Pagina {current} di {total}",
			Place:   props.RightBottom,
		}).
		Build()
	return maroto.New(cfg)
}

func addTitle(m core.Maroto, title string) {
	m.AddRow(14,
		text.NewCol(12, title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
}

func addParties(m core.Maroto, issuer, patient Party) {
	m.AddRow(42,
		col.New(6).Add(partyComponents("Professionista", issuer)...),
		col.New(6).Add(partyComponents("Paziente", patient)...),
	)
}

func partyComponents(heading string, party Party) []core.Component {
	components := []core.Component{
		text.New(heading, props.Text{Style: fontstyle.Bold, Size: 9}),
		text.New(party.Name, props.Text{Size: 10, Top: 5}),
	}

	top := 10.0
	add := func(label, value string) {
		if strings.TrimSpace(value) == "" {
			return
		}
		components = append(components, text.New(label+value, props.Text{Size: 8, Top: top}))
		top += 4
	}
	add("", party.Address)
	add("C.F. ", party.CodiceFiscale)
	add("P.IVA ", party.PartitaIVA)
	add("", party.Email)
	add("", party.Phone)
	add("IBAN ", party.IBAN)
	return components
}

func addServiceAndAmounts(m core.Maroto, data InvoiceData) {
	m.AddRow(8,
		text.NewCol(9, "Descrizione", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(3, "Importo", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	m.AddRow(2, line.NewCol(12))

	if desc := strings.TrimSpace(data.Description); desc != "" {
		m.AddRow(8, text.NewCol(12, desc, props.Text{Size: 9, Style: fontstyle.Italic}))
	}
	for _, l := range data.Lines {
		m.AddRow(8,
			text.NewCol(9, l.Label, props.Text{Size: 9}),
			text.NewCol(3, l.Amount, props.Text{Size: 9, Align: align.Right}),
		)
	}

	m.AddRow(2, line.NewCol(12))
	m.AddRow(10,
		col.New(6),
		text.NewCol(3, "Totale", props.Text{Style: fontstyle.Bold, Size: 10}),
		text.NewCol(3, data.Total, props.Text{Style: fontstyle.Bold, Size: 10, Align: align.Right}),
	)
}

func addNotes(m core.Maroto, data InvoiceData) {
	for _, note := range []string{data.FraseLegale, data.NotaEnpap, data.NotaBollo} {
		if strings.TrimSpace(note) == "" {
			continue
		}
		m.AddRow(10, text.NewCol(12, note, props.Text{Size: 8, Top: 2}))
	}
}
