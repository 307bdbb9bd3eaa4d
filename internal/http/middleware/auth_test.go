package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/nusakarya/projectledger/internal/model"
)

func roleRouter(principal *model.Principal, allowed ...string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	if principal != nil {
		router.Use(func(c *gin.Context) {
			c.Set(principalKey, *principal)
		})
	}
	router.POST("/guarded", RequireRoles(allowed...), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"ok": true})
	})
	return router
}

func TestRequireRoles(t *testing.T) {
	cases := []struct {
		name      string
		principal *model.Principal
		allowed   []string
		status    int
	}{
		{
			name:      "matching role passes",
			principal: &model.Principal{UserID: uuid.New(), Role: model.RoleFinance},
			allowed:   []string{model.RoleProjectManager, model.RoleFinance},
			status:    http.StatusOK,
		},
		{
			name:      "admin passes any check",
			principal: &model.Principal{UserID: uuid.New(), Role: model.RoleAdmin},
			allowed:   []string{model.RoleClient},
			status:    http.StatusOK,
		},
		{
			name:      "admin passes empty allow list",
			principal: &model.Principal{UserID: uuid.New(), Role: model.RoleAdmin},
			status:    http.StatusOK,
		},
		{
			name:      "role outside the set is rejected",
			principal: &model.Principal{UserID: uuid.New(), Role: model.RoleSiteManager},
			allowed:   []string{model.RoleFinance},
			status:    http.StatusForbidden,
		},
		{
			name:      "non-admin rejected by empty allow list",
			principal: &model.Principal{UserID: uuid.New(), Role: model.RoleProjectManager},
			status:    http.StatusForbidden,
		},
		{
			name:    "missing principal is unauthenticated",
			allowed: []string{model.RoleFinance},
			status:  http.StatusUnauthorized,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := roleRouter(tc.principal, tc.allowed...)
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/guarded", nil)
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.status, rec.Code)
		})
	}
}
