// Package httputil holds the gin response helpers shared by the delivery layers.
package httputil

import (
	"net/http"
	"strconv"

	"github.com/eugene-nechvoloda/MeetyAI-sub000/pkg/apperr"

	"github.com/gin-gonic/gin"
)

// Error writes err with the status its apperr marker maps to. Unclassified
// failures get a generic message so internals do not leak.
func Error(c *gin.Context, err error) {
	status := apperr.HTTPStatus(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal server error"
	}
	c.JSON(status, gin.H{"error": message, "code": apperr.Code(err)})
}

// UserID returns the caller set by the auth middleware.
func UserID(c *gin.Context) string {
	return c.GetString("userID")
}

// QueryInt parses a query parameter, falling back to def.
func QueryInt(c *gin.Context, key string, def int) int {
	value, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil {
		return def
	}
	return value
}
