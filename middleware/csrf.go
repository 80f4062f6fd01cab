package middleware

import (
	"crypto/rand"
	"crypto/subtle"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/devmarvs/bulwark"
	"github.com/devmarvs/bulwark/apperr"
	"github.com/devmarvs/bulwark/session"
)

const (
	// CSRFField is the form field carrying the token; it wins over the header.
	CSRFField = "csrf_token"
	// CSRFHeader is the request header carrying the token.
	CSRFHeader = "X-Csrf-Token"
	// CSRFSessionKey is the session value holding the issued token.
	CSRFSessionKey = "csrf_token"

	csrfTokenBytes = 32
)

// ErrCSRFTokenMismatch is the cause of every token rejection.
var ErrCSRFTokenMismatch = errors.New("csrf token mismatch")

// CSRFOptions configures the CSRF guard.
type CSRFOptions struct {
	Recorder DecisionRecorder
}

// CSRF checks mutating requests whose Origin (or Referer) host equals the
// Host header against the session token. Requests without both headers, or
// with differing hosts, are treated as cross-origin and left to the CORS
// policy. The guard never issues tokens; see IssueCSRFToken. Session must run
// first.
func CSRF(options CSRFOptions) bulwark.Middleware {
	return func(next bulwark.Handler) bulwark.Handler {
		return func(ctx *bulwark.Context) error {
			if !isMutatingMethod(ctx.Request.Method) {
				return next(ctx)
			}
			if !sameOrigin(ctx.Request) {
				record(options.Recorder, StageCSRF, OutcomeSkip)
				return next(ctx)
			}

			sess, ok := SessionFromContext(ctx)
			if !ok {
				err := errors.New("csrf guard requires the session stage")
				fail(ctx, options.Recorder, StageCSRF, err)
				return apperr.Internal("internal server error", err)
			}

			stored, _ := sess.Lookup(CSRFSessionKey)
			submitted := submittedCSRFToken(ctx.Request)
			if stored == "" || submitted == "" || !secureCompare(submitted, stored) {
				deny(ctx, options.Recorder, StageCSRF, "token mismatch", slog.Bool("has_session_token", stored != ""))
				return apperr.CSRF("csrf token mismatch", ErrCSRFTokenMismatch)
			}

			record(options.Recorder, StageCSRF, OutcomeAllow)
			return next(ctx)
		}
	}
}

// IssueCSRFToken returns the session's token, creating and saving one on
// first use. It uses the session loaded by Session, or loads one from store.
func IssueCSRFToken(ctx *bulwark.Context, store session.Store) (string, error) {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		if store == nil {
			return "", errors.New("csrf: session store not configured")
		}
		loaded, err := store.Get(ctx.Request)
		if err != nil {
			return "", err
		}
		sess = loaded
		SetSession(ctx, sess)
	}

	if token, ok := sess.Lookup(CSRFSessionKey); ok && token != "" {
		return token, nil
	}

	token, err := generateToken(csrfTokenBytes)
	if err != nil {
		return "", err
	}
	sess.Set(CSRFSessionKey, token)
	if store != nil {
		if err := store.Save(ctx.ResponseWriter, sess); err != nil {
			return "", err
		}
	}
	return token, nil
}

// CSRFToken returns the session's token without creating one.
func CSRFToken(ctx *bulwark.Context) string {
	sess, ok := SessionFromContext(ctx)
	if !ok {
		return ""
	}
	return sess.Get(CSRFSessionKey)
}

// CSRFTokenHandler serves the issuance endpoint as {"csrf_token": "..."}.
func CSRFTokenHandler(store session.Store) bulwark.Handler {
	return func(ctx *bulwark.Context) error {
		token, err := IssueCSRFToken(ctx, store)
		if err != nil {
			return apperr.Unavailable("csrf token unavailable", err)
		}
		ctx.ResponseWriter.Header().Set("Cache-Control", "no-store")
		return ctx.JSON(http.StatusOK, map[string]string{CSRFField: token})
	}
}

func isMutatingMethod(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

// sameOrigin compares the host of Origin, or Referer when Origin is absent,
// with the Host header.
func sameOrigin(r *http.Request) bool {
	source := r.Header.Get("Origin")
	if source == "" {
		source = r.Header.Get("Referer")
	}
	if source == "" || r.Host == "" {
		return false
	}

	parsed, err := url.Parse(source)
	if err != nil || parsed.Host == "" {
		return false
	}
	return strings.EqualFold(parsed.Host, r.Host)
}

func submittedCSRFToken(r *http.Request) string {
	if isFormRequest(r) {
		if value := r.PostFormValue(CSRFField); value != "" {
			return value
		}
	}
	return r.Header.Get(CSRFHeader)
}

func generateToken(length int) (string, error) {
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func isFormRequest(r *http.Request) bool {
	contentType := r.Header.Get("Content-Type")
	return strings.HasPrefix(contentType, "application/x-www-form-urlencoded") || strings.HasPrefix(contentType, "multipart/form-data")
}

func secureCompare(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
