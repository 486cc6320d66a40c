// Package api binds the Lattice services to the HTTP surface in
// spec.md §6: gin handlers, request/response DTOs, and the uniform
// error envelope.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcsenpai/lattice/pkg/auth"
	"github.com/tcsenpai/lattice/pkg/content"
	"github.com/tcsenpai/lattice/pkg/exp"
	"github.com/tcsenpai/lattice/pkg/feed"
	"github.com/tcsenpai/lattice/pkg/identity"
	"github.com/tcsenpai/lattice/pkg/store"
)

// contextRequestStartKey carries the request's arrival time so the error
// boundary can log how long it ran before failing (spec.md §7). Auth
// middleware reads the same key under its own constant of the same name
// since it runs downstream of securityHeaders.
const contextRequestStartKey = "lattice.requestStart"

// Pinger is satisfied by a store that can report DB liveness (spec.md
// §6.1's /health "liveness + DB check").
type Pinger interface {
	Ping(ctx context.Context) error
}

// Server holds every service the HTTP surface binds to.
type Server struct {
	store      store.Store
	ledger     *exp.Ledger
	identity   *identity.Service
	content    *content.Service
	votes      *content.VoteService
	reports    *content.ReportService
	feed       *feed.Service
	authn      *auth.Authenticator
	pinger     Pinger // nil for the in-memory store; non-nil for Postgres
}

// New builds a Server wiring every service together.
func New(s store.Store, ledger *exp.Ledger, identitySvc *identity.Service, contentSvc *content.Service,
	votes *content.VoteService, reports *content.ReportService, feedSvc *feed.Service, authn *auth.Authenticator, pinger Pinger) *Server {
	return &Server{
		store: s, ledger: ledger, identity: identitySvc, content: contentSvc,
		votes: votes, reports: reports, feed: feedSvc, authn: authn, pinger: pinger,
	}
}

// Router builds the gin engine with every route from spec.md §6.1.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), securityHeaders())

	r.GET("/health", s.handleHealth)

	r.POST("/agents", s.handleRegister)
	r.GET("/agents/:did", s.handleGetAgent)
	r.GET("/agents/:did/pubkey", s.handleGetPubkey)
	r.GET("/agents/:did/attestation", s.handleGetAttestation)
	r.GET("/agents/:did/followers", s.handleFollowers)
	r.GET("/agents/:did/following", s.handleFollowing)

	r.POST("/attestations", auth.Required(s.authn), s.handleAttest)
	r.POST("/agents/:did/follow", auth.Required(s.authn), s.handleFollow)
	r.DELETE("/agents/:did/follow", auth.Required(s.authn), s.handleUnfollow)

	r.POST("/posts", auth.Required(s.authn), s.handleCreatePost)
	r.GET("/posts/:id", s.handleGetPost)
	r.DELETE("/posts/:id", auth.Required(s.authn), s.handleDeletePost)
	r.GET("/posts/:id/replies", s.handleReplies)
	r.POST("/posts/:id/votes", auth.Required(s.authn), s.handleCastVote)

	r.GET("/feed", auth.Optional(s.authn), s.handleFeedNew)
	r.GET("/feed/home", auth.Required(s.authn), s.handleFeedHome)
	r.GET("/feed/discover", auth.Optional(s.authn), s.handleFeedDiscover)
	r.GET("/feed/hot", auth.Optional(s.authn), s.handleFeedHot)

	r.POST("/reports", auth.Required(s.authn), s.handleFileReport)

	r.GET("/exp/:did", s.handleGetExp)
	r.GET("/exp/:did/history", s.handleExpHistory)

	r.GET("/topics/trending", s.handleTopicsTrending)
	r.GET("/topics/search", s.handleTopicsSearch)

	return r
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(contextRequestStartKey, time.Now())
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.pinger != nil {
		if err := s.pinger.Ping(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
