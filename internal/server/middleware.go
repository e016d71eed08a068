package server

import (
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	"github.com/wagedesk/wagedesk/internal/config"
	"github.com/wagedesk/wagedesk/internal/orgcontext"
)

// OrgMiddleware resolves the tenant from the X-Org-Id header, falling back to
// the deployment default for single-office installs.
func OrgMiddleware(cfg config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var orgID snowflake.ID
		if raw := strings.TrimSpace(c.GetHeader("X-Org-Id")); raw != "" {
			parsed, err := snowflake.ParseString(raw)
			if err != nil {
				AbortWithError(c, orgcontext.ErrMissingOrg)
				return
			}
			orgID = parsed
		} else if cfg.DefaultOrgID != 0 {
			orgID = snowflake.ID(cfg.DefaultOrgID)
		}

		if orgID != 0 {
			ctx := orgcontext.WithOrgID(c.Request.Context(), orgID)
			c.Request = c.Request.WithContext(ctx)
		}
		c.Next()
	}
}
