package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/parcella/internal/fiscal"
	supportdomain "github.com/smallbiznis/parcella/internal/support/domain"
)

type ticketReplyRequest struct {
	Body string `json:"body"`
}

type ticketStatusRequest struct {
	Status string `json:"status"`
}

type monthTotalView struct {
	Month    int    `json:"month"`
	Invoices int64  `json:"invoices"`
	Totale   string `json:"totale"`
}

type statsView struct {
	supportdomain.Stats
	MonthlyTotal []monthTotalView `json:"monthly_totals"`
}

func bindTicketList(c *gin.Context) (supportdomain.ListTicketRequest, bool) {
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a number"))
		return supportdomain.ListTicketRequest{}, false
	}
	req := supportdomain.ListTicketRequest{
		PageToken: strings.TrimSpace(c.Query("page_token")),
		Status:    strings.TrimSpace(c.Query("status")),
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}
	return req, true
}

func (s *Server) OpenTicket(c *gin.Context) {
	var req supportdomain.OpenTicketRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.supportSvc.Open(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": ticket})
}

func (s *Server) ListMyTickets(c *gin.Context) {
	req, ok := bindTicketList(c)
	if !ok {
		return
	}

	resp, err := s.supportSvc.ListMine(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Tickets, "page_info": resp.PageInfo})
}

// GetTicket serves both the owner view and the admin console; the service decides
// who may read the thread.
func (s *Server) GetTicket(c *gin.Context) {
	ticket, err := s.supportSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

func (s *Server) ReplyTicket(c *gin.Context) {
	var req ticketReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.supportSvc.Reply(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

func (s *Server) CloseTicket(c *gin.Context) {
	ticket, err := s.supportSvc.Close(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

func (s *Server) AdminListTickets(c *gin.Context) {
	req, ok := bindTicketList(c)
	if !ok {
		return
	}

	resp, err := s.supportSvc.ListAll(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Tickets, "page_info": resp.PageInfo})
}

func (s *Server) AdminReplyTicket(c *gin.Context) {
	var req ticketReplyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.supportSvc.AdminReply(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Body)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

func (s *Server) AdminSetTicketStatus(c *gin.Context) {
	var req ticketStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	ticket, err := s.supportSvc.SetStatus(c.Request.Context(), strings.TrimSpace(c.Param("id")), req.Status)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": ticket})
}

func (s *Server) AdminStats(c *gin.Context) {
	stats, err := s.supportSvc.Stats(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	months := make([]monthTotalView, 0, len(stats.MonthlyTotal))
	for _, m := range stats.MonthlyTotal {
		months = append(months, monthTotalView{Month: m.Month, Invoices: m.Invoices, Totale: fiscal.Format2(m.Totale)})
	}
	c.JSON(http.StatusOK, gin.H{"data": statsView{Stats: stats, MonthlyTotal: months}})
}
