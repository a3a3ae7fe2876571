package utils

import (
	"errors"
	"strings"
	"time"

	"brokercrm/config"
	"brokercrm/models"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionCookieName is the one cookie both realms share. Which realm a
// request authenticates as is decided by the session row, never by which
// cookie it presents.
const SessionCookieName = "session_token"

type SessionClaims struct {
	SessionID string `json:"session_id"`
	Realm     string `json:"realm"`
	jwt.RegisteredClaims
}

func signSessionToken(sessionID, realm string, expiresAt time.Time) (string, error) {
	claims := &SessionClaims{
		SessionID: sessionID,
		Realm:     realm,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(config.AppConfig.SessionSecret))
}

func parseSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return []byte(config.AppConfig.SessionSecret), nil
	})
	if err != nil {
		return nil, err
	}
	if claims, ok := token.Claims.(*SessionClaims); ok && token.Valid {
		return claims, nil
	}
	return nil, errors.New("invalid token")
}

// CreateSession establishes a new session for the given principal and returns
// the row together with the signed cookie value. Any prior session presented
// on the request is destroyed first so a cookie is only ever tied to one
// principal.
func CreateSession(db *gorm.DB, c *fiber.Ctx, realm string, principalID uint) (*models.Session, string, error) {
	if old := TokenFromRequest(c); old != "" {
		if claims, err := parseSessionToken(old); err == nil {
			db.Delete(&models.Session{}, "id = ?", claims.SessionID)
		}
	}

	session := &models.Session{
		ID:        uuid.NewString(),
		Realm:     realm,
		UserAgent: c.Get("User-Agent"),
		IPAddress: c.IP(),
		ExpiresAt: time.Now().Add(config.AppConfig.SessionTTL),
	}
	switch realm {
	case models.RealmStaff:
		session.UserID = &principalID
	case models.RealmClient:
		session.PortalAccountID = &principalID
	default:
		return nil, "", errors.New("unknown realm")
	}

	if err := db.Create(session).Error; err != nil {
		return nil, "", err
	}

	tokenString, err := signSessionToken(session.ID, realm, session.ExpiresAt)
	if err != nil {
		db.Delete(session)
		return nil, "", err
	}
	return session, tokenString, nil
}

// ResolveSession maps a cookie value to a live session. A missing, malformed,
// unknown or expired token yields (nil, nil): anonymity is a normal outcome,
// not an error. A non-nil error means the session store itself failed.
func ResolveSession(db *gorm.DB, tokenString string) (*models.Session, error) {
	if tokenString == "" {
		return nil, nil
	}
	claims, err := parseSessionToken(tokenString)
	if err != nil {
		return nil, nil
	}

	var session models.Session
	if err := db.First(&session, "id = ?", claims.SessionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if session.Expired() {
		db.Delete(&session)
		return nil, nil
	}
	// The realm in the signed token must agree with the stored row.
	if session.Realm != claims.Realm {
		return nil, nil
	}
	return &session, nil
}

// DestroySession removes the session row. Destroying an already-destroyed
// session is not an error.
func DestroySession(db *gorm.DB, sessionID string) error {
	return db.Delete(&models.Session{}, "id = ?", sessionID).Error
}

// TokenFromRequest extracts the session token from the Authorization header
// or, failing that, the session cookie.
func TokenFromRequest(c *fiber.Ctx) string {
	authHeader := c.Get("Authorization")
	if authHeader != "" {
		parts := strings.Split(authHeader, " ")
		if len(parts) == 2 && parts[0] == "Bearer" {
			return parts[1]
		}
		return ""
	}
	return c.Cookies(SessionCookieName)
}

// SetSessionCookie attaches the session token to the response.
func SetSessionCookie(c *fiber.Ctx, tokenString string, expiresAt time.Time) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    tokenString,
		Expires:  expiresAt,
		HTTPOnly: true,
		Secure:   config.AppConfig.Environment == "production",
		SameSite: "Lax",
		Path:     "/",
	})
}

// ClearSessionCookie instructs the browser to drop the session cookie.
func ClearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Path:     "/",
	})
}
