package middleware

import (
	"context"
	"net/http"
	"regexp"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/spendsight/internal/memory"
)

const (
	SessionHeader = "X-Session-ID"
	sessionKey    = contextKey("session")
)

var sessionPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

// SessionID returns the conversation session resolved by Session.
func SessionID(ctx context.Context) string {
	id, _ := ctx.Value(sessionKey).(string)
	return id
}

// Session picks the conversation session from the sessionId query parameter
// or the X-Session-ID header, minting a new one when neither is usable, and
// echoes it in the response header. Conversation memory is scoped to the
// authenticated subject, so Auth must run first.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.URL.Query().Get("sessionId")
		if id == "" {
			id = r.Header.Get(SessionHeader)
		}

		if !sessionPattern.MatchString(id) {
			id = uuid.NewString()
		}

		w.Header().Set(SessionHeader, id)
		ctx := context.WithValue(r.Context(), sessionKey, id)
		ctx = memory.WithOwner(ctx, Subject(ctx))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
