package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	certdomain "github.com/wagedesk/wagedesk/internal/certificate/domain"
	esttdomain "github.com/wagedesk/wagedesk/internal/establishment/domain"
	"github.com/wagedesk/wagedesk/internal/importer"
	ledgerdomain "github.com/wagedesk/wagedesk/internal/ledger/domain"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

type errorPayload struct {
	Error string                  `json:"error"`
	Rows  []ledgerdomain.RowError `json:"rows,omitempty"`
}

// AbortWithError records err on the context and stops the handler chain. The
// response is written by ErrorHandlingMiddleware.
func AbortWithError(c *gin.Context, err error) {
	_ = c.Error(err)
	c.Abort()
}

// ErrorHandlingMiddleware converts recorded errors into JSON responses.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		lastErr := c.Errors.Last()
		if lastErr == nil || c.Writer.Written() {
			return
		}
		status, payload := mapError(lastErr.Err)
		c.JSON(status, payload)
	}
}

// ClassifyError labels an error for request logging.
func ClassifyError(err error) (string, string) {
	status, payload := mapError(err)
	if status >= http.StatusInternalServerError {
		return "internal", payload.Error
	}
	return "client", payload.Error
}

func mapError(err error) (int, errorPayload) {
	var batch *ledgerdomain.BatchValidationError
	if errors.As(err, &batch) {
		return http.StatusBadRequest, errorPayload{Error: "batch_validation_failed", Rows: batch.Rows}
	}

	switch {
	case errors.Is(err, orgcontext.ErrMissingOrg):
		return http.StatusBadRequest, errorPayload{Error: err.Error()}

	case errors.Is(err, certdomain.ErrNotFound),
		errors.Is(err, ledgerdomain.ErrEntryNotFound),
		errors.Is(err, ledgerdomain.ErrCertificateNotFound),
		errors.Is(err, esttdomain.ErrNotFound):
		return http.StatusNotFound, errorPayload{Error: err.Error()}

	case errors.Is(err, ledgerdomain.ErrDuplicateEntry):
		return http.StatusConflict, errorPayload{Error: err.Error()}

	case errors.Is(err, certdomain.ErrNotTrashed):
		return http.StatusConflict, errorPayload{Error: err.Error()}

	case errors.Is(err, ledgerdomain.ErrInvalidAmount),
		errors.Is(err, ledgerdomain.ErrInvalidInstrumentType),
		errors.Is(err, ledgerdomain.ErrInvalidReference),
		errors.Is(err, ledgerdomain.ErrInvalidInstrumentDate),
		errors.Is(err, ledgerdomain.ErrAllocationMismatch),
		errors.Is(err, ledgerdomain.ErrNegativeAllocation),
		errors.Is(err, ledgerdomain.ErrEmptyImport),
		errors.Is(err, ledgerdomain.ErrImportTooLarge),
		errors.Is(err, certdomain.ErrInvalidCertificateNumber),
		errors.Is(err, certdomain.ErrInvalidEstablishmentCode),
		errors.Is(err, certdomain.ErrEmptyImport),
		errors.Is(err, certdomain.ErrImportTooLarge),
		errors.Is(err, esttdomain.ErrInvalidCode),
		errors.Is(err, esttdomain.ErrEmptyImport),
		errors.Is(err, importer.ErrEmptyWorkbook),
		errors.Is(err, importer.ErrNoSheet):
		return http.StatusBadRequest, errorPayload{Error: err.Error()}
	}

	return http.StatusInternalServerError, errorPayload{Error: "internal_error"}
}
