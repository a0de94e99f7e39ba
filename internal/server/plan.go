package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type changePlanRequest struct {
	Tier string `json:"tier"`
}

func (s *Server) GetPlan(c *gin.Context) {
	plan, err := s.planSvc.Current(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plan})
}

// ChangePlan records the tier directly; there is no checkout step.
func (s *Server) ChangePlan(c *gin.Context) {
	var req changePlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	plan, err := s.planSvc.ChangeTier(c.Request.Context(), req.Tier)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": plan})
}
