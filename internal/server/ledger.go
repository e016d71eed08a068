package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	ledgerdomain "github.com/wagedesk/wagedesk/internal/ledger/domain"
)

func (s *Server) createRecovery(c *gin.Context) {
	var in ledgerdomain.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body"})
		return
	}
	entry, err := s.ledger.Create(c.Request.Context(), in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (s *Server) updateRecovery(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ledgerdomain.ErrEntryNotFound)
		return
	}
	var in ledgerdomain.EntryInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body"})
		return
	}
	entry, err := s.ledger.Update(c.Request.Context(), id, in)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, entry)
}

func (s *Server) deleteRecovery(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, ledgerdomain.ErrEntryNotFound)
		return
	}
	if err := s.ledger.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) listRecoveries(c *gin.Context) {
	entries, err := s.ledger.ListByCertificate(c.Request.Context(),
		c.Query("establishment_code"), c.Query("certificate_number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type previewRequest struct {
	EstablishmentCode string  `json:"establishment_code"`
	CertificateNumber string  `json:"certificate_number"`
	Amount            float64 `json:"amount"`
}

func (s *Server) previewAllocation(c *gin.Context) {
	var req previewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body"})
		return
	}
	breakdown, err := s.ledger.Preview(c.Request.Context(),
		req.EstablishmentCode, req.CertificateNumber, req.Amount)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, breakdown)
}
