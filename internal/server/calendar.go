package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	calendardomain "github.com/smallbiznis/parcella/internal/calendar/domain"
)

func (s *Server) CreateEvent(c *gin.Context) {
	var req calendardomain.CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.calendarSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": event})
}

func (s *Server) GetEvent(c *gin.Context) {
	event, err := s.calendarSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (s *Server) UpdateEvent(c *gin.Context) {
	var req calendardomain.UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	event, err := s.calendarSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": event})
}

func (s *Server) DeleteEvent(c *gin.Context) {
	if err := s.calendarSvc.Delete(c.Request.Context(), strings.TrimSpace(c.Param("id"))); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// GetAgenda lists events and invoice due dates in [from, to). A bare "to" date is
// included in the range.
func (s *Server) GetAgenda(c *gin.Context) {
	from, err := parseOptionalTime(c.Query("from"), false)
	if err != nil || from == nil {
		AbortWithError(c, newValidationError("from", "invalid_from", "from must be a date or RFC3339 time"))
		return
	}
	to, err := parseOptionalTime(c.Query("to"), true)
	if err != nil || to == nil {
		AbortWithError(c, newValidationError("to", "invalid_to", "to must be a date or RFC3339 time"))
		return
	}

	entries, err := s.calendarSvc.Agenda(c.Request.Context(), calendardomain.AgendaRequest{
		From:  *from,
		To:    *to,
		Kinds: splitCSV(c.Query("kinds")),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": entries})
}
