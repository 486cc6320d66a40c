package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/auth"
	"github.com/tcsenpai/lattice/pkg/identity"
)

type registerRequest struct {
	PublicKey string  `json:"publicKey" binding:"required"`
	Username  *string `json:"username"`
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.CodeValidationError, "invalid request body", err))
		return
	}
	pub, err := base64.StdEncoding.DecodeString(req.PublicKey)
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeValidationError, "publicKey must be valid base64", err))
		return
	}
	ts := parseTimestamp(c.GetHeader("X-Timestamp"))
	sig, err := base64.StdEncoding.DecodeString(c.GetHeader("X-Signature"))
	if err != nil {
		writeError(c, apperr.Wrap(apperr.CodeValidationError, "X-Signature must be valid base64", err))
		return
	}

	did, err := s.identity.Register(c.Request.Context(), identity.RegisterInput{
		PublicKey: pub, Username: req.Username, Signature: sig, TimestampMs: ts,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"did": did})
}

func (s *Server) handleGetAgent(c *gin.Context) {
	agent, total, level, err := s.identity.Agent(c.Request.Context(), c.Param("did"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"did": agent.DID, "username": agent.Username, "createdAt": agent.CreatedAt,
		"attestedBy": agent.AttestedBy, "attestedAt": agent.AttestedAt,
		"exp": gin.H{"total": total, "level": level},
	})
}

func (s *Server) handleGetPubkey(c *gin.Context) {
	agent, _, _, err := s.identity.Agent(c.Request.Context(), c.Param("did"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"publicKey": base64.StdEncoding.EncodeToString(agent.PublicKey)})
}

func (s *Server) handleGetAttestation(c *gin.Context) {
	att, err := s.identity.AttestationOf(c.Request.Context(), c.Param("did"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, att)
}

type attestRequest struct {
	TargetDID string `json:"targetDid" binding:"required"`
}

func (s *Server) handleAttest(c *gin.Context) {
	var req attestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeError(c, apperr.Wrap(apperr.CodeValidationError, "invalid request body", err))
		return
	}
	att, err := s.identity.Attest(c.Request.Context(), auth.Agent(c).DID, req.TargetDID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, att)
}

func (s *Server) handleFollow(c *gin.Context) {
	if err := s.identity.Follow(c.Request.Context(), auth.Agent(c).DID, c.Param("did")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUnfollow(c *gin.Context) {
	if err := s.identity.Unfollow(c.Request.Context(), auth.Agent(c).DID, c.Param("did")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleFollowers(c *gin.Context) {
	page, err := s.identity.Followers(c.Request.Context(), c.Param("did"), c.Query("cursor"), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) handleFollowing(c *gin.Context) {
	page, err := s.identity.Following(c.Request.Context(), c.Param("did"), c.Query("cursor"), queryInt(c, "limit", 20))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

