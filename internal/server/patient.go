package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	patientdomain "github.com/smallbiznis/parcella/internal/patient/domain"
)

func (s *Server) ListPatients(c *gin.Context) {
	includeArchived, err := parseOptionalBool(c.Query("include_archived"))
	if err != nil {
		AbortWithError(c, newValidationError("include_archived", "invalid_bool", "include_archived must be a boolean"))
		return
	}
	pageSize, err := parseOptionalInt(c.Query("page_size"))
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "page_size must be a number"))
		return
	}

	req := patientdomain.ListPatientRequest{
		PageToken: strings.TrimSpace(c.Query("page_token")),
		Query:     strings.TrimSpace(c.Query("q")),
	}
	if includeArchived != nil {
		req.IncludeArchived = *includeArchived
	}
	if pageSize != nil {
		req.PageSize = *pageSize
	}

	resp, err := s.patientSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Patients, "page_info": resp.PageInfo})
}

func (s *Server) CreatePatient(c *gin.Context) {
	var req patientdomain.CreatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.patientSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": item})
}

func (s *Server) GetPatient(c *gin.Context) {
	item, err := s.patientSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) UpdatePatient(c *gin.Context) {
	var req patientdomain.UpdatePatientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.patientSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}

func (s *Server) ArchivePatient(c *gin.Context) {
	item, err := s.patientSvc.Archive(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": item})
}
