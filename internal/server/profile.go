package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/parcella/internal/fiscal"
	profiledomain "github.com/smallbiznis/parcella/internal/profile/domain"
)

type profileView struct {
	profiledomain.Profile
	PercentualeEnpap string `json:"percentuale_enpap"`
}

type fiscalPreviewRequest struct {
	Amount string `json:"amount"`
}

type fiscalPreviewView struct {
	fiscal.View
	Regime         string `json:"regime_fiscale"`
	EnpapPercent   string `json:"percentuale_enpap"`
	EnpapToPatient bool   `json:"enpap_a_paziente"`
	HasStampDuty   bool   `json:"has_stamp_duty"`
}

func newProfileView(p profiledomain.Profile) profileView {
	return profileView{Profile: p, PercentualeEnpap: fiscal.Format2(p.PercentualeEnpap)}
}

func (s *Server) GetProfile(c *gin.Context) {
	profile, err := s.profileSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newProfileView(profile)})
}

func (s *Server) UpsertProfile(c *gin.Context) {
	var req profiledomain.UpsertProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	profile, err := s.profileSvc.Upsert(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": newProfileView(profile)})
}

// FiscalPreview shows the breakdown an invoice of the given amount would carry with
// the current profile settings. Nothing is stored.
func (s *Server) FiscalPreview(c *gin.Context) {
	var req fiscalPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.Amount))
	if err != nil {
		AbortWithError(c, newValidationError("amount", "invalid_amount", "amount must be a decimal number"))
		return
	}

	profile, err := s.profileSvc.Get(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	result, err := s.profileSvc.FiscalPreview(c.Request.Context(), amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": fiscalPreviewView{
		View:           result.View(),
		Regime:         profile.RegimeFiscale,
		EnpapPercent:   fiscal.Format2(profile.PercentualeEnpap),
		EnpapToPatient: profile.EnpapAPaziente,
		HasStampDuty:   result.HasStampDuty(),
	}})
}
