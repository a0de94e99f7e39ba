package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/parcella/internal/fiscal"
	invoicedomain "github.com/smallbiznis/parcella/internal/invoice/domain"
)

// invoiceView renders the stored fiscal snapshot with two-decimal amounts.
type invoiceView struct {
	invoicedomain.Invoice
	Imponibile   string `json:"imponibile"`
	Enpap        string `json:"enpap"`
	Bollo        string `json:"bollo"`
	Totale       string `json:"totale"`
	EnpapPercent string `json:"percentuale_enpap"`
	Overdue      bool   `json:"overdue"`
}

type markPaidRequest struct {
	PaidAt *time.Time `json:"paid_at"`
}

func (s *Server) newInvoiceView(inv invoicedomain.Invoice) invoiceView {
	return invoiceView{
		Invoice:      inv,
		Imponibile:   fiscal.Format2(inv.Imponibile),
		Enpap:        fiscal.Format2(inv.Enpap),
		Bollo:        fiscal.Format2(inv.Bollo),
		Totale:       fiscal.Format2(inv.Totale),
		EnpapPercent: fiscal.Format2(inv.EnpapPercent),
		Overdue:      inv.Overdue(s.now()),
	}
}

func (s *Server) ListInvoices(c *gin.Context) {
	year, err := parseOptionalInt(c.Query("year"))
	if err != nil {
		AbortWithError(c, newValidationError("year", "invalid_year", "year must be a number"))
		return
	}
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a number"))
		return
	}

	req := invoicedomain.ListInvoiceRequest{
		PageToken: strings.TrimSpace(c.Query("page_token")),
		PatientID: strings.TrimSpace(c.Query("patient_id")),
		Status:    strings.TrimSpace(c.Query("status")),
	}
	if year != nil {
		req.Year = *year
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.invoiceSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]invoiceView, 0, len(resp.Invoices))
	for _, inv := range resp.Invoices {
		views = append(views, s.newInvoiceView(inv))
	}
	c.JSON(http.StatusOK, gin.H{"data": views, "page_info": resp.PageInfo})
}

func (s *Server) CreateInvoice(c *gin.Context) {
	var req invoicedomain.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	inv, err := s.invoiceSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("invoice_number", inv.Number)
	c.JSON(http.StatusCreated, gin.H{"data": s.newInvoiceView(inv)})
}

func (s *Server) GetInvoiceByID(c *gin.Context) {
	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": s.newInvoiceView(inv)})
}

func (s *Server) RenderInvoice(c *gin.Context) {
	doc, err := s.invoiceSvc.Render(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writePDF(c, doc)
}

func (s *Server) RenderInvoiceReceipt(c *gin.Context) {
	doc, err := s.invoiceSvc.RenderReceipt(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	writePDF(c, doc)
}

func (s *Server) SendInvoice(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	if err := s.invoiceSvc.Send(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	inv, err := s.invoiceSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("invoice_number", inv.Number)
	c.JSON(http.StatusOK, gin.H{"data": s.newInvoiceView(inv)})
}

func (s *Server) MarkInvoicePaid(c *gin.Context) {
	var req markPaidRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		AbortWithError(c, invalidRequestError())
		return
	}

	inv, err := s.invoiceSvc.MarkPaid(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.PaidAt)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("invoice_number", inv.Number)
	c.JSON(http.StatusOK, gin.H{"data": s.newInvoiceView(inv)})
}

func (s *Server) CancelInvoice(c *gin.Context) {
	inv, err := s.invoiceSvc.Cancel(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set("invoice_number", inv.Number)
	c.JSON(http.StatusOK, gin.H{"data": s.newInvoiceView(inv)})
}

func writePDF(c *gin.Context, doc invoicedomain.Document) {
	disposition := "attachment"
	if inline, _ := parseOptionalBool(c.Query("inline")); inline != nil && *inline {
		disposition = "inline"
	}
	c.Header("Content-Disposition", fmt.Sprintf("%s; filename=%q", disposition, doc.Filename))
	c.Data(http.StatusOK, "application/pdf", doc.Content)
}
