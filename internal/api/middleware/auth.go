package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"Ballot/internal/core/votes"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// Context keys for storing voter information
type contextKey string

const (
	VoterKey     contextKey = "voter"
	JWTClaimsKey contextKey = "jwt_claims"
)

// VoterTypeClaim optionally overrides the default voter type of a token
const VoterTypeClaim = "voter_type"

// VoterAuthMiddleware authenticates voters from HS256 Bearer tokens.
// The token subject is the voter id; the voter_type claim, when present,
// selects the voter type.
type VoterAuthMiddleware struct {
	logger           *slog.Logger
	defaultVoterType string
	secret           []byte
}

// NewVoterAuthMiddleware creates a new voter auth middleware
func NewVoterAuthMiddleware(secret []byte, defaultVoterType string, logger *slog.Logger) *VoterAuthMiddleware {
	if logger == nil {
		logger = slog.Default()
	}
	return &VoterAuthMiddleware{
		secret:           secret,
		defaultVoterType: defaultVoterType,
		logger:           logger,
	}
}

// RequireAuth rejects requests without a valid token with 401 and injects the
// voter reference into the context otherwise
func (m *VoterAuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			writeAuthError(w, "Missing or malformed Authorization header. Expected: Bearer <token>")
			return
		}

		voter, claims, err := m.verify(token)
		if err != nil {
			m.logger.Warn("auth failure",
				"ip", r.RemoteAddr,
				"method", r.Method,
				"path", r.URL.Path,
				"error", err)
			writeAuthError(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withVoter(r.Context(), voter, claims)))
	})
}

// OptionalAuth loads the voter if a valid token is present, but lets
// anonymous requests through
func (m *VoterAuthMiddleware) OptionalAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, ok := bearerToken(r)
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		voter, claims, err := m.verify(token)
		if err != nil {
			m.logger.Debug("optional auth failed", "error", err)
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(withVoter(r.Context(), voter, claims)))
	})
}

func (m *VoterAuthMiddleware) verify(token string) (votes.Ref, jwt.Token, error) {
	if len(m.secret) == 0 {
		return votes.Ref{}, nil, errors.New("no signing secret configured")
	}

	parsed, err := jwt.Parse([]byte(token),
		jwt.WithKey(jwa.HS256, m.secret),
		jwt.WithValidate(true),
	)
	if err != nil {
		return votes.Ref{}, nil, err
	}

	voterType := m.defaultVoterType
	if raw, ok := parsed.Get(VoterTypeClaim); ok {
		s, isString := raw.(string)
		if !isString || strings.TrimSpace(s) == "" {
			return votes.Ref{}, nil, errors.New("voter_type claim must be a non-empty string")
		}
		voterType = s
	}

	voter := votes.NewRef(voterType, parsed.Subject())
	if err := voter.Validate(); err != nil {
		return votes.Ref{}, nil, err
	}
	return voter, parsed, nil
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	return token, token != ""
}

func withVoter(ctx context.Context, voter votes.Ref, claims jwt.Token) context.Context {
	ctx = context.WithValue(ctx, VoterKey, voter)
	return context.WithValue(ctx, JWTClaimsKey, claims)
}

// GetVoter extracts the authenticated voter from the request context
func GetVoter(r *http.Request) (votes.Ref, bool) {
	return VoterFromContext(r.Context())
}

// VoterFromContext is GetVoter for code holding only a context
func VoterFromContext(ctx context.Context) (votes.Ref, bool) {
	voter, ok := ctx.Value(VoterKey).(votes.Ref)
	return voter, ok && !voter.IsZero()
}

// GetJWTClaims extracts the verified token from the request context.
// Returns nil if not authenticated.
func GetJWTClaims(r *http.Request) jwt.Token {
	claims, _ := r.Context().Value(JWTClaimsKey).(jwt.Token)
	return claims
}

// SetTestVoter sets the voter in the context for testing purposes.
// This function should ONLY be used in tests to mock authenticated voters.
func SetTestVoter(ctx context.Context, voter votes.Ref) context.Context {
	return context.WithValue(ctx, VoterKey, voter)
}

// writeAuthError writes a JSON error response for authentication failures
func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	response := `{"error":"AuthenticationRequired","message":"` + message + `"}`
	if _, err := w.Write([]byte(response)); err != nil {
		slog.Error("failed to write auth error response", "error", err)
	}
}
