package webserver

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/unicafe/cafeteria/internal/domain"
	"go.uber.org/zap"
)

const (
	RoleAdmin    = "admin"
	RoleCustomer = "customer"

	SessionName = "cafeteria_session"

	userKey    = "user"
	guestKey   = "guest_token"
	sessionKey = "guest_id"
)

// Claims is the payload of the bearer tokens accepted by the APIs.
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// UserID parses the subject claim.
func (c *Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// IssueToken signs an HS256 token for userID.
func IssueToken(secret string, userID int64, role string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return token, errors.Wrap(err, "sign token")
}

// JWTAuth validates bearer tokens. When required is false a request without
// a valid token continues anonymously.
func JWTAuth(secret []byte, required bool) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		SigningKey: secret,
		ContextKey: userKey,
		NewClaimsFunc: func(echo.Context) jwt.Claims {
			return new(Claims)
		},
		ContinueOnIgnoredError: !required,
		ErrorHandler: func(c echo.Context, err error) error {
			if !required {
				return nil
			}
			return Fail(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing or invalid token", nil)
		},
	})
}

// RequireRole rejects tokens whose role differs from role.
func RequireRole(role string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			claims := CurrentClaims(c)
			if claims == nil || claims.Role != role {
				return Fail(c, http.StatusForbidden, "FORBIDDEN", "Insufficient role", nil)
			}
			return next(c)
		}
	}
}

// CurrentClaims returns the validated token claims, or nil.
func CurrentClaims(c echo.Context) *Claims {
	token, ok := c.Get(userKey).(*jwt.Token)
	if !ok || token == nil || !token.Valid {
		return nil
	}
	claims, _ := token.Claims.(*Claims)
	return claims
}

// CurrentUserID returns the authenticated user id.
func CurrentUserID(c echo.Context) (int64, bool) {
	claims := CurrentClaims(c)
	if claims == nil {
		return 0, false
	}
	return claims.UserID()
}

func newSessionStore(secret string) sessions.Store {
	store := sessions.NewCookieStore([]byte(secret))
	store.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return store
}

// GuestSession makes sure every store request carries a guest token in a
// signed cookie, creating one on first contact.
func GuestSession(store sessions.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			sess, err := store.Get(c.Request(), SessionName)
			if err != nil {
				zap.L().Debug("discarding unreadable session", zap.Error(err))
			}
			token, _ := sess.Values[sessionKey].(string)
			if token == "" {
				token = uuid.NewString()
				sess.Values[sessionKey] = token
				if err := sess.Save(c.Request(), c.Response()); err != nil {
					return errors.Wrap(err, "save session")
				}
			}
			c.Set(guestKey, token)
			return next(c)
		}
	}
}

// GuestToken returns the session token of the current visitor.
func GuestToken(c echo.Context) string {
	token, _ := c.Get(guestKey).(string)
	return token
}

// CurrentOwner resolves the cart owner: the authenticated user when a token
// is present, otherwise the guest session.
func CurrentOwner(c echo.Context) domain.Owner {
	if id, ok := CurrentUserID(c); ok {
		return domain.UserOwner(id)
	}
	return domain.SessionOwner(GuestToken(c))
}
