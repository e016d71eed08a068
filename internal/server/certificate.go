package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
)

func (s *Server) listCertificates(c *gin.Context) {
	certs, err := s.certs.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

func (s *Server) listTrash(c *gin.Context) {
	certs, err := s.certs.ListTrash(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"certificates": certs})
}

func (s *Server) getCertificate(c *gin.Context) {
	code := c.Query("establishment_code")
	if code == "" {
		AbortWithError(c, certdomain.ErrInvalidEstablishmentCode)
		return
	}
	cert, err := s.certs.GetByNumber(c.Request.Context(), code, c.Param("number"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

func (s *Server) updateSharedFields(c *gin.Context) {
	var patch certdomain.SharedFieldsPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid_request_body"})
		return
	}
	if err := s.certs.UpdateShared(c.Request.Context(), c.Param("code"), patch); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) softDeleteCertificate(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, certdomain.ErrNotFound)
		return
	}
	if err := s.certs.SoftDelete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) restoreCertificate(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, certdomain.ErrNotFound)
		return
	}
	if err := s.certs.Restore(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) purgeCertificate(c *gin.Context) {
	id, err := snowflake.ParseString(c.Param("id"))
	if err != nil {
		AbortWithError(c, certdomain.ErrNotFound)
		return
	}
	if err := s.certs.Purge(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
