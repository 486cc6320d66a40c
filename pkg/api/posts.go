package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/auth"
	"github.com/tcsenpai/lattice/pkg/content"
	"github.com/tcsenpai/lattice/pkg/models"
)

type createPostRequest struct {
	Title    *string `json:"title"`
	Content  string  `json:"content" binding:"required"`
	ParentID *string `json:"parentId"`
}

func (s *Server) handleCreatePost(c *gin.Context) {
	var req createPostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.CodeValidationError, "invalid request body", err))
		return
	}
	author := auth.Agent(c)
	post, err := s.content.CreatePost(c.Request.Context(), content.CreateInput{
		AuthorDID: author.DID,
		Title:     req.Title,
		Content:   req.Content,
		ParentID:  req.ParentID,
		Signature: c.GetHeader("X-Signature"),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

func (s *Server) handleGetPost(c *gin.Context) {
	post, err := s.store.GetPost(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

func (s *Server) handleDeletePost(c *gin.Context) {
	if err := s.content.DeletePost(c.Request.Context(), c.Param("id"), auth.Agent(c).DID, models.DeletedByAuthor); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleReplies(c *gin.Context) {
	page, err := s.feed.Replies(c.Request.Context(), c.Param("id"), c.Query("cursor"), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

type castVoteRequest struct {
	Value int `json:"value" binding:"required"`
}

func (s *Server) handleCastVote(c *gin.Context) {
	var req castVoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.CodeValidationError, "invalid request body", err))
		return
	}
	if err := s.votes.Cast(c.Request.Context(), c.Param("id"), auth.Agent(c).DID, req.Value); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type fileReportRequest struct {
	PostID string `json:"postId" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

func (s *Server) handleFileReport(c *gin.Context) {
	var req fileReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.CodeValidationError, "invalid request body", err))
		return
	}
	if err := s.reports.File(c.Request.Context(), req.PostID, auth.Agent(c).DID, req.Reason); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
