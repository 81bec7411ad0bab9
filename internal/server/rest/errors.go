package rest

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/ergoauth/internal/common"
	"github.com/dmitrijs2005/ergoauth/internal/server/oauth"
	"github.com/gin-gonic/gin"
)

// maxBodyBytes caps request bodies read by readBody.
const maxBodyBytes = 1 << 20

var statusTable = []struct {
	err    error
	status int
}{
	{common.ErrInvalidEmail, http.StatusBadRequest},
	{common.ErrWeakPassword, http.StatusBadRequest},
	{common.ErrMissingCode, http.StatusBadRequest},
	{common.ErrInvalidState, http.StatusBadRequest},
	{common.ErrInvalidProfile, http.StatusBadRequest},
	{common.ErrEmailTaken, http.StatusConflict},
	{common.ErrInvalidCreds, http.StatusUnauthorized},
	{common.ErrNoRefresh, http.StatusUnauthorized},
	{common.ErrInvalidRefresh, http.StatusUnauthorized},
	{common.ErrRevokedRefresh, http.StatusUnauthorized},
	{common.ErrorUnauthorized, http.StatusUnauthorized},
	{common.ErrorForbidden, http.StatusForbidden},
	{common.ErrUserNotFound, http.StatusNotFound},
	{common.ErrOAuthDisabled, http.StatusNotFound},
}

// statusFor maps a service error to an HTTP status and a client-safe
// message. Anything unrecognised is a 500 with a fixed message.
func statusFor(err error) (int, string) {
	var perr *oauth.ProviderError
	if errors.As(err, &perr) {
		return http.StatusBadRequest, perr.Error()
	}
	for _, e := range statusTable {
		if errors.Is(err, e.err) {
			return e.status, e.err.Error()
		}
	}
	return http.StatusInternalServerError, common.ErrorInternal.Error()
}

func (h *Handler) fail(c *gin.Context, err error) {
	status, msg := statusFor(err)
	if status == http.StatusInternalServerError {
		h.log.Error(c.Request.Context(), "request failed", "path", c.FullPath(), "error", err)
	}
	c.AbortWithStatusJSON(status, gin.H{"ok": false, "error": msg})
}

// readBody decodes a JSON object from the request body. It is lenient on
// purpose: an empty, oversized or malformed body yields an empty map, and the
// handler then validates the missing fields like any other bad input.
func readBody(c *gin.Context) map[string]any {
	body := map[string]any{}
	raw, err := io.ReadAll(io.LimitReader(c.Request.Body, maxBodyBytes))
	if err != nil || len(raw) == 0 {
		return body
	}
	if err := json.Unmarshal(raw, &body); err != nil || body == nil {
		return map[string]any{}
	}
	return body
}

// str returns body[key] when it is a string.
func str(body map[string]any, key string) string {
	s, _ := body[key].(string)
	return s
}
