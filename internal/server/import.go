package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wagedesk/wagedesk/internal/importer"
)

// sheetRows pulls the uploaded workbook out of the multipart "file" field and
// parses it into normalized rows.
func sheetRows(c *gin.Context) ([]importer.Row, bool) {
	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing_file"})
		return nil, false
	}
	defer file.Close()

	rows, err := importer.Workbook(file)
	if err != nil {
		AbortWithError(c, err)
		return nil, false
	}
	return rows, true
}

func (s *Server) importCertificates(c *gin.Context) {
	rows, ok := sheetRows(c)
	if !ok {
		return
	}
	report, err := s.certs.BulkUpsert(c.Request.Context(), rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) importRecoveries(c *gin.Context) {
	rows, ok := sheetRows(c)
	if !ok {
		return
	}
	report, err := s.ledger.BulkImport(c.Request.Context(), rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) importEstablishments(c *gin.Context) {
	rows, ok := sheetRows(c)
	if !ok {
		return
	}
	report, err := s.establishments.BulkUpsert(c.Request.Context(), rows)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
