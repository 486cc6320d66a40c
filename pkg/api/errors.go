package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tcsenpai/lattice/pkg/apperr"
	"github.com/tcsenpai/lattice/pkg/auth"
)

// writeError maps an error onto the uniform {"error":{...}} envelope and
// the status code table in spec.md §6.3, logging the failure at the HTTP
// boundary the way the teacher does in pkg/api/errors.go.
func writeError(c *gin.Context, err error) {
	appErr, ok := apperr.AsAppError(err)
	if !ok {
		logFailure(c, slog.LevelError, apperr.CodeInternalError, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": gin.H{
			"code": apperr.CodeInternalError, "message": err.Error(),
		}})
		return
	}
	logFailure(c, levelFor(appErr.Code), appErr.Code, err)
	body := gin.H{"code": appErr.Code, "message": appErr.Message}
	if appErr.Details != nil {
		body["details"] = appErr.Details
	}
	c.JSON(statusForCode(appErr.Code), gin.H{"error": body})
}

// levelFor picks slog.Debug for validation/auth/client-side failures and
// slog.Error for storage/internal failures (spec.md §7).
func levelFor(code apperr.Code) slog.Level {
	switch code {
	case apperr.CodeValidationError,
		apperr.CodeAuthMissingHeaders, apperr.CodeAuthTimestampInvalid, apperr.CodeAuthInvalidNonce,
		apperr.CodeAuthReplayDetected, apperr.CodeAuthInvalidDID, apperr.CodeAuthAgentNotFound,
		apperr.CodeAuthSignatureInvalid, apperr.CodeAuthInvalidRegistrationSignature,
		apperr.CodeNotFound, apperr.CodeConflict, apperr.CodeForbidden,
		apperr.CodeRateLimitExceeded, apperr.CodeSpamDetected:
		return slog.LevelDebug
	default:
		return slog.LevelError
	}
}

func logFailure(c *gin.Context, level slog.Level, code apperr.Code, err error) {
	did := ""
	if agent := auth.Agent(c); agent != nil {
		did = agent.DID
	}
	slog.Log(c.Request.Context(), level, "request failed",
		"code", code, "route", c.FullPath(), "method", c.Request.Method,
		"did", did, "duration", elapsedSince(c), "error", err)
}

func elapsedSince(c *gin.Context) time.Duration {
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

func statusForCode(code apperr.Code) int {
	switch code {
	case apperr.CodeValidationError:
		return http.StatusBadRequest
	case apperr.CodeAuthMissingHeaders, apperr.CodeAuthTimestampInvalid, apperr.CodeAuthInvalidNonce,
		apperr.CodeAuthReplayDetected, apperr.CodeAuthInvalidDID, apperr.CodeAuthAgentNotFound,
		apperr.CodeAuthSignatureInvalid, apperr.CodeAuthInvalidRegistrationSignature:
		return http.StatusUnauthorized
	case apperr.CodeForbidden:
		return http.StatusForbidden
	case apperr.CodeNotFound:
		return http.StatusNotFound
	case apperr.CodeConflict:
		return http.StatusConflict
	case apperr.CodeRateLimitExceeded, apperr.CodeSpamDetected:
		return http.StatusTooManyRequests
	case apperr.CodeAuthVerificationError, apperr.CodeInternalError:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
