package handler

import (
	"encoding/json"
	"net"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/admin-api/internal/middleware"
	"github.com/noah-isme/admin-api/internal/models"
	"github.com/noah-isme/admin-api/internal/service"
	appErrors "github.com/noah-isme/admin-api/pkg/errors"
)

// Reserved list view query parameters. Every other parameter is a JSON array filter.
const (
	paramLimit  = "limit"
	paramOffset = "offset"
	paramSearch = "custom_search"
	paramFormat = "format"
)

func claimsFromContext(c *gin.Context) *models.JWTClaims {
	value, exists := c.Get(middleware.ContextUserKey)
	if !exists {
		return nil
	}
	claims, ok := value.(*models.JWTClaims)
	if !ok {
		return nil
	}
	return claims
}

func modelIDParam(c *gin.Context) string {
	return service.ModelID(c.Param("app"), c.Param("model"))
}

func intQuery(c *gin.Context, name string) (int, error) {
	raw := c.Query(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "invalid "+name),
			map[string][]string{name: {"A valid non-negative integer is required."}})
	}
	return n, nil
}

// listParams reads paging, search and filter query parameters.
func listParams(c *gin.Context, reserved ...string) (models.ListParams, error) {
	var params models.ListParams
	var err error
	if params.Limit, err = intQuery(c, paramLimit); err != nil {
		return params, err
	}
	if params.Offset, err = intQuery(c, paramOffset); err != nil {
		return params, err
	}
	params.Search = c.Query(paramSearch)

	skip := map[string]struct{}{paramLimit: {}, paramOffset: {}, paramSearch: {}}
	for _, name := range reserved {
		skip[name] = struct{}{}
	}
	for name, values := range c.Request.URL.Query() {
		if _, ok := skip[name]; ok || len(values) == 0 {
			continue
		}
		var list []interface{}
		if err := json.Unmarshal([]byte(values[0]), &list); err != nil {
			return params, appErrors.WithFields(appErrors.Clone(appErrors.ErrValidation, "invalid filter "+name),
				map[string][]string{name: {"Expected a JSON array of values."}})
		}
		if params.Filters == nil {
			params.Filters = make(map[string][]interface{})
		}
		params.Filters[name] = list
	}
	return params, nil
}

// clientIP prefers the first X-Forwarded-For hop over the socket address.
func clientIP(c *gin.Context) string {
	if forwarded := c.GetHeader("X-Forwarded-For"); forwarded != "" {
		return strings.TrimSpace(strings.Split(forwarded, ",")[0])
	}
	host, _, err := net.SplitHostPort(c.Request.RemoteAddr)
	if err != nil {
		return c.Request.RemoteAddr
	}
	return host
}
