package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/auth"
)

func (s *Server) handleFeedNew(c *gin.Context) {
	var authorDID *string
	if a := c.Query("author"); a != "" {
		authorDID = &a
	}
	var topic *string
	if t := c.Query("topic"); t != "" {
		topic = &t
	}
	page, err := s.feed.New(c.Request.Context(), authorDID, topic, c.Query("cursor"), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleFeedHome(c *gin.Context) {
	page, err := s.feed.Home(c.Request.Context(), auth.Agent(c).DID, c.Query("cursor"), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleFeedDiscover(c *gin.Context) {
	var topic *string
	if t := c.Query("topic"); t != "" {
		topic = &t
	}
	offset := queryInt(c, "offset", 0)
	limit := queryInt(c, "limit", 20)

	switch c.DefaultQuery("sort", "newest") {
	case "popular":
		p, err := s.feed.DiscoverPopular(c.Request.Context(), topic, offset, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	case "random":
		p, err := s.feed.DiscoverRandom(c.Request.Context(), topic, offset, limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	case "newest":
		p, err := s.feed.New(c.Request.Context(), nil, topic, c.Query("cursor"), limit)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, p)
	default:
		writeError(c, apperr.New(apperr.CodeValidationError, "sort must be one of newest, popular, random"))
	}
}

func (s *Server) handleFeedHot(c *gin.Context) {
	var topic *string
	if t := c.Query("topic"); t != "" {
		topic = &t
	}
	page, err := s.feed.Hot(c.Request.Context(), topic, queryInt(c, "hoursBack", 0), queryInt(c, "offset", 0), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleTopicsTrending(c *gin.Context) {
	topics, err := s.feed.TrendingTopics(c.Request.Context(), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": topics})
}

func (s *Server) handleTopicsSearch(c *gin.Context) {
	topics, err := s.feed.SearchTopics(c.Request.Context(), c.Query("q"), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": topics})
}
