package api

import (
	"strconv"

	"github.com/gin-gonic/gin"
)

// queryInt parses a query param as an int, falling back to def on
// absence or parse failure.
func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func parseTimestamp(raw string) int64 {
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}
