package httpapi

import (
	"errors"
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"

	"stockpulse/backend/internal/domain"
)

const tokenIssuer = "stockpulse"

var (
	errMissingToken = errors.New("missing bearer token")
	errInvalidToken = errors.New("invalid or expired token")
	errTokenSubject = errors.New("invalid token subject")
)

// TokenVerifier checks HS256 bearer tokens issued by the account service. The
// token subject is the id of the user whose sales are being analysed.
type TokenVerifier struct {
	secret   []byte
	tokenTTL time.Duration
}

func NewTokenVerifier(secret string, tokenTTL time.Duration) *TokenVerifier {
	if secret == "" {
		secret = "dev-change-me"
	}
	if tokenTTL <= 0 {
		tokenTTL = 8 * time.Hour
	}
	return &TokenVerifier{secret: []byte(secret), tokenTTL: tokenTTL}
}

func (v *TokenVerifier) ParseToken(tokenStr string) (domain.Actor, error) {
	claims := &jwtlib.RegisteredClaims{}
	token, err := jwtlib.ParseWithClaims(tokenStr, claims, func(t *jwtlib.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwtlib.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return v.secret, nil
	}, jwtlib.WithValidMethods([]string{"HS256"}), jwtlib.WithExpirationRequired())
	if err != nil || !token.Valid {
		return domain.Actor{}, errInvalidToken
	}
	sub, err := claims.GetSubject()
	if err != nil || strings.TrimSpace(sub) == "" {
		return domain.Actor{}, errTokenSubject
	}
	return domain.Actor{UserID: strings.TrimSpace(sub)}, nil
}

// Sign issues a token for userID. It exists for local tooling and tests; the
// production issuer lives outside this service.
func (v *TokenVerifier) Sign(userID string) (string, time.Time, error) {
	now := time.Now().UTC()
	expiresAt := now.Add(v.tokenTTL)
	claims := jwtlib.RegisteredClaims{
		Subject:   userID,
		IssuedAt:  jwtlib.NewNumericDate(now),
		ExpiresAt: jwtlib.NewNumericDate(expiresAt),
		Issuer:    tokenIssuer,
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	signed, err := token.SignedString(v.secret)
	return signed, expiresAt, err
}

// attemptLimiter caps failed authentication attempts per client inside a
// sliding window.
type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

// Blocked reports whether key has used up its failures for the window.
func (l *attemptLimiter) Blocked(key string) bool {
	if l == nil {
		return false
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.prune(key, time.Now())
	return len(kept) >= l.max
}

func (l *attemptLimiter) Fail(key string) {
	if l == nil {
		return
	}
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[key] = append(l.prune(key, now), now)
}

func (l *attemptLimiter) prune(key string, now time.Time) []time.Time {
	cutoff := now.Add(-l.window)
	history := l.entries[key]
	kept := history[:0]
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) == 0 {
		delete(l.entries, key)
		return nil
	}
	l.entries[key] = kept
	return kept
}

func clientKey(r *http.Request) string {
	host := strings.TrimSpace(r.RemoteAddr)
	if host == "" {
		return "unknown"
	}
	if addr, err := netip.ParseAddrPort(host); err == nil {
		return addr.Addr().String()
	}
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		return host[:idx]
	}
	return host
}
