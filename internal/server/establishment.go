package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) listEstablishments(c *gin.Context) {
	out, err := s.establishments.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"establishments": out})
}

func (s *Server) getEstablishment(c *gin.Context) {
	e, err := s.establishments.GetByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func (s *Server) syncEstablishment(c *gin.Context) {
	if err := s.establishments.SyncToCertificates(c.Request.Context(), c.Param("code")); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
