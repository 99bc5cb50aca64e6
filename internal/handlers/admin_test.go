package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

// The listing's query validation must run before any store access, so these
// all pass a nil DB on purpose.
func TestAdminListRidesRejectsUnknownSortField(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/admin/rides", AdminListRides(nil))

	tests := []struct {
		name  string
		query string
	}{
		{"injection through sortBy", "sortBy=id%3BDROP%20TABLE%20rides"},
		{"unknown column", "sortBy=password_hash"},
		{"raw column name not in allow-list form", "sortBy=requested_at"},
		{"bad order", "order=sideways"},
		{"order injection", "order=desc,id"},
		{"zero limit", "limit=0"},
		{"oversized limit", "limit=5000"},
		{"non-numeric limit", "limit=ten"},
		{"negative offset", "offset=-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/admin/rides?"+tt.query, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, http.StatusBadRequest, w.Code)
		})
	}
}

func TestRideSortColumnsAllowList(t *testing.T) {
	// Every exposed sort key maps to a fixed column name; the map is the
	// only path into ORDER BY.
	expected := map[string]string{
		"id":          "id",
		"status":      "status",
		"requestedAt": "requested_at",
		"scheduledAt": "scheduled_at",
		"serviceKind": "service_kind",
	}
	assert.Equal(t, expected, rideSortColumns)
}
