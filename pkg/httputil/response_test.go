package httputil

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestErrorMapsMarkers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := []struct {
		err    error
		status int
		body   string
	}{
		{apperr.Validation("ingest", "content is required"), http.StatusBadRequest, "content is required"},
		{apperr.Wrap(apperr.ErrNotFound, "t", "get", "transcript not found", nil), http.StatusNotFound, "not_found"},
		{apperr.Wrap(apperr.ErrConflict, "t", "archive", "in flight", nil), http.StatusConflict, "conflict"},
		{errors.New("dial tcp 10.0.0.3:5432: refused"), http.StatusInternalServerError, "internal server error"},
	}
	for _, tc := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		Error(c, tc.err)
		assert.Equal(t, tc.status, w.Code)
		assert.Contains(t, w.Body.String(), tc.body)
		assert.NotContains(t, w.Body.String(), "10.0.0.3")
	}
}

func TestQueryInt(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/?limit=20&offset=abc", nil)
	assert.Equal(t, 20, QueryInt(c, "limit", 50))
	assert.Equal(t, 0, QueryInt(c, "offset", 0))
	assert.Equal(t, 7, QueryInt(c, "missing", 7))
}
