package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"recview/internal/logging"
	"recview/internal/metrics"
)

// DefaultRealm is the Basic auth realm shown by browsers.
const DefaultRealm = "Video Server"

// Password length limits. bcrypt ignores bytes past 72.
const (
	MinPasswordLength = 6
	MaxPasswordLength = 72
)

// Errors returned by HashPassword.
var (
	ErrPasswordTooShort = fmt.Errorf("password must be at least %d characters", MinPasswordLength)
	ErrPasswordTooLong  = fmt.Errorf("password must not exceed %d bytes", MaxPasswordLength)
)

// Credential is the single shared username and bcrypt password hash.
// An empty Username or PasswordHash disables authentication.
type Credential struct {
	Username     string
	PasswordHash string
	Realm        string
}

// Gate checks HTTP Basic credentials against a Credential.
type Gate struct {
	username []byte
	hash     []byte
	realm    string
}

// New creates a Gate. The credential is copied and never changes afterwards.
func New(cred Credential) *Gate {
	realm := cred.Realm
	if realm == "" {
		realm = DefaultRealm
	}

	g := &Gate{realm: realm}
	if cred.Username != "" && cred.PasswordHash != "" {
		g.username = []byte(cred.Username)
		g.hash = []byte(cred.PasswordHash)
	}
	return g
}

// Enabled reports whether requests must authenticate.
func (g *Gate) Enabled() bool {
	return g != nil && len(g.username) > 0
}

// Check validates an Authorization header value. It always succeeds when
// the gate is disabled.
func (g *Gate) Check(header string) bool {
	if !g.Enabled() {
		return true
	}

	user, pass, ok := parseBasic(header)
	if !ok {
		return false
	}

	userOK := subtle.ConstantTimeCompare([]byte(user), g.username) == 1
	// always run bcrypt so a wrong username costs the same as a wrong password
	passOK := bcrypt.CompareHashAndPassword(g.hash, []byte(pass)) == nil
	return userOK && passOK
}

func parseBasic(header string) (user, pass string, ok bool) {
	r := http.Request{Header: http.Header{"Authorization": {header}}}
	return r.BasicAuth()
}

// Middleware rejects requests without valid credentials with 401 and a
// Basic challenge. Rejected requests never reach next.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	if !g.Enabled() {
		return next
	}

	challenge := fmt.Sprintf(`Basic realm="%s", charset="UTF-8"`, strings.ReplaceAll(g.realm, `"`, "'"))

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header != "" && g.Check(header) {
			metrics.AuthAttemptsTotal.WithLabelValues("success").Inc()
			next.ServeHTTP(w, r)
			return
		}

		if header != "" {
			metrics.AuthAttemptsTotal.WithLabelValues("failure").Inc()
			logging.Warn("Failed authentication from %s for %s", clientIP(r), r.URL.Path)
		}

		w.Header().Set("WWW-Authenticate", challenge)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		ip, _, _ := strings.Cut(fwd, ",")
		return strings.TrimSpace(ip)
	}
	return r.RemoteAddr
}

// HashPassword returns the bcrypt hash to configure as AUTH_PASSWORD_HASH.
func HashPassword(password string) (string, error) {
	if len(password) < MinPasswordLength {
		return "", ErrPasswordTooShort
	}
	if len(password) > MaxPasswordLength {
		return "", ErrPasswordTooLong
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// ValidateHash reports whether hash looks like a usable bcrypt hash.
func ValidateHash(hash string) error {
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return errors.Join(errors.New("AUTH_PASSWORD_HASH is not a bcrypt hash"), err)
	}
	return nil
}

// VerifyPassword reports whether password matches a bcrypt hash.
func VerifyPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
