package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

func (s *Server) handleGetExp(c *gin.Context) {
	total, level, err := s.ledger.Balance(c.Request.Context(), c.Param("did"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"did": c.Param("did"), "total": total, "level": level})
}

func (s *Server) handleExpHistory(c *gin.Context) {
	page, err := s.store.ListExpDeltas(c.Request.Context(), c.Param("did"), c.Query("cursor"), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}
