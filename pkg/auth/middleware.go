package auth

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/models"
)

const contextAgentKey = "lattice.authenticatedAgent"

// contextRequestStartKey mirrors pkg/api's key of the same name: the
// securityHeaders middleware that sets it runs upstream of Required and
// Optional in the router chain.
const contextRequestStartKey = "lattice.requestStart"

func envelopeFromRequest(c *gin.Context) (Envelope, error) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		return Envelope{}, apperr.Wrap(apperr.CodeInternalError, "failed to read request body", err)
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(body))

	ts := parseTimestamp(c.GetHeader("X-Timestamp"))
	return Envelope{
		DID:       c.GetHeader("X-DID"),
		Signature: c.GetHeader("X-Signature"),
		Timestamp: ts,
		Nonce:     c.GetHeader("X-Nonce"),
		Method:    c.Request.Method,
		Path:      c.Request.URL.RequestURI(),
		Body:      body,
	}, nil
}

// Required returns gin middleware that rejects the request unless the
// full auth pipeline succeeds, attaching the authenticated agent to the
// request context on success.
func Required(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		env, err := envelopeFromRequest(c)
		if err != nil {
			writeAuthError(c, err, "")
			return
		}
		agent, err := a.Authenticate(c.Request.Context(), env)
		if err != nil {
			writeAuthError(c, err, env.DID)
			return
		}
		c.Set(contextAgentKey, agent)
		c.Next()
	}
}

// Optional returns gin middleware that attaches the authenticated agent
// when present and valid, but never rejects the request.
func Optional(a *Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		env, err := envelopeFromRequest(c)
		if err == nil {
			if agent := a.AuthenticateOptional(c.Request.Context(), env); agent != nil {
				c.Set(contextAgentKey, agent)
			}
		}
		c.Next()
	}
}

// Agent retrieves the authenticated agent attached by Required or
// Optional, if any.
func Agent(c *gin.Context) *models.Agent {
	v, ok := c.Get(contextAgentKey)
	if !ok {
		return nil
	}
	agent, _ := v.(*models.Agent)
	return agent
}

func writeAuthError(c *gin.Context, err error, claimedDID string) {
	appErr, ok := apperr.AsAppError(err)
	if !ok {
		logAuthFailure(c, slog.LevelError, apperr.CodeInternalError, claimedDID, err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": gin.H{"code": apperr.CodeInternalError, "message": err.Error()}})
		return
	}
	level := slog.LevelDebug
	if appErr.Code == apperr.CodeAuthVerificationError || appErr.Code == apperr.CodeInternalError {
		level = slog.LevelError
	}
	logAuthFailure(c, level, appErr.Code, claimedDID, err)
	c.AbortWithStatusJSON(statusFor(appErr.Code), gin.H{"error": gin.H{"code": appErr.Code, "message": appErr.Message}})
}

func logAuthFailure(c *gin.Context, level slog.Level, code apperr.Code, claimedDID string, err error) {
	slog.Log(c.Request.Context(), level, "auth failed",
		"code", code, "route", c.FullPath(), "method", c.Request.Method,
		"did", claimedDID, "duration", elapsed(c), "error", err)
}

func elapsed(c *gin.Context) time.Duration {
	v, ok := c.Get(contextRequestStartKey)
	if !ok {
		return 0
	}
	start, ok := v.(time.Time)
	if !ok {
		return 0
	}
	return time.Since(start)
}

func parseTimestamp(raw string) int64 {
	ts, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0
	}
	return ts
}

func statusFor(code apperr.Code) int {
	switch code {
	case apperr.CodeAuthAgentNotFound:
		return http.StatusUnauthorized
	case apperr.CodeAuthVerificationError, apperr.CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusUnauthorized
	}
}
