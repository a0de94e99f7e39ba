package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/smallbiznis/parcella/internal/catalog/domain"
	"github.com/smallbiznis/parcella/internal/fiscal"
)

type catalogItemView struct {
	catalogdomain.Item
	Price string `json:"price"`
}

func newCatalogItemView(item catalogdomain.Item) catalogItemView {
	return catalogItemView{Item: item, Price: fiscal.Format2(item.Price)}
}

func (s *Server) ListCatalogItems(c *gin.Context) {
	includeInactive, err := parseOptionalBool(c.Query("include_inactive"))
	if err != nil {
		AbortWithError(c, newValidationError("include_inactive", "invalid_bool", "include_inactive must be a boolean"))
		return
	}

	items, err := s.catalogSvc.List(c.Request.Context(), includeInactive != nil && *includeInactive)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	views := make([]catalogItemView, 0, len(items))
	for _, item := range items {
		views = append(views, newCatalogItemView(item))
	}
	c.JSON(http.StatusOK, gin.H{"data": views})
}

func (s *Server) CreateCatalogItem(c *gin.Context) {
	var req catalogdomain.CreateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.catalogSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": newCatalogItemView(item)})
}

func (s *Server) GetCatalogItem(c *gin.Context) {
	item, err := s.catalogSvc.Get(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newCatalogItemView(item)})
}

func (s *Server) UpdateCatalogItem(c *gin.Context) {
	var req catalogdomain.UpdateItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	item, err := s.catalogSvc.Update(c.Request.Context(), strings.TrimSpace(c.Param("id")), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newCatalogItemView(item)})
}

func (s *Server) DeactivateCatalogItem(c *gin.Context) {
	item, err := s.catalogSvc.Deactivate(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newCatalogItemView(item)})
}
