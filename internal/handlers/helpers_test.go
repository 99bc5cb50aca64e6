package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestParseIDParam(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name       string
		param      string
		wantID     uint
		wantStatus int
	}{
		{"numeric id", "42", 42, http.StatusOK},
		{"zero rejected", "0", 0, http.StatusBadRequest},
		{"non-numeric rejected", "abc", 0, http.StatusBadRequest},
		{"negative rejected", "-5", 0, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			var got uint
			r.GET("/rides/:rideId", func(c *gin.Context) {
				got = parseIDParam(c, "rideId")
				if got != 0 {
					c.JSON(200, gin.H{"id": got})
				}
			})

			w := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/rides/"+tt.param, nil)
			r.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Equal(t, tt.wantID, got)
		})
	}
}
