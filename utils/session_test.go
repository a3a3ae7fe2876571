package utils

import (
	"net/http/httptest"
	"testing"
	"time"

	"brokercrm/config"
	"brokercrm/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSessionTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Session{}))

	config.AppConfig.SessionSecret = "test-session-secret"
	config.AppConfig.SessionTTL = time.Hour
	return db
}

// createVia runs CreateSession inside a real handler so the request context is
// the one Fiber hands to controllers.
func createVia(t *testing.T, db *gorm.DB, realm string, principalID uint) (*models.Session, string) {
	t.Helper()
	var session *models.Session
	var token string

	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		var err error
		session, token, err = CreateSession(db, c, realm, principalID)
		require.NoError(t, err)
		return c.SendStatus(fiber.StatusOK)
	})

	resp, err := app.Test(httptest.NewRequest("POST", "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return session, token
}

func TestCreateAndResolveStaffSession(t *testing.T) {
	db := newSessionTestDB(t)

	created, token := createVia(t, db, models.RealmStaff, 42)
	require.NotNil(t, created.UserID)
	assert.Equal(t, uint(42), *created.UserID)
	assert.Nil(t, created.PortalAccountID)

	resolved, err := ResolveSession(db, token)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, created.ID, resolved.ID)
	assert.Equal(t, models.RealmStaff, resolved.Realm)
}

func TestCreateClientSessionBindsPortalAccount(t *testing.T) {
	db := newSessionTestDB(t)

	created, _ := createVia(t, db, models.RealmClient, 7)
	require.NotNil(t, created.PortalAccountID)
	assert.Equal(t, uint(7), *created.PortalAccountID)
	assert.Nil(t, created.UserID)
}

func TestResolveAnonymousOutcomes(t *testing.T) {
	db := newSessionTestDB(t)

	// Missing token
	session, err := ResolveSession(db, "")
	assert.NoError(t, err)
	assert.Nil(t, session)

	// Malformed token
	session, err = ResolveSession(db, "not-a-jwt")
	assert.NoError(t, err)
	assert.Nil(t, session)

	// Well-formed token naming a session that does not exist
	token, err := signSessionToken(uuid.NewString(), models.RealmStaff, time.Now().Add(time.Hour))
	require.NoError(t, err)
	session, err = ResolveSession(db, token)
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestResolveRejectsForgedSignature(t *testing.T) {
	db := newSessionTestDB(t)
	_, token := createVia(t, db, models.RealmStaff, 1)

	config.AppConfig.SessionSecret = "rotated-secret"
	defer func() { config.AppConfig.SessionSecret = "test-session-secret" }()

	session, err := ResolveSession(db, token)
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestResolveExpiredSessionIsDeleted(t *testing.T) {
	db := newSessionTestDB(t)
	created, token := createVia(t, db, models.RealmStaff, 1)

	require.NoError(t, db.Model(&models.Session{}).Where("id = ?", created.ID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error)

	session, err := ResolveSession(db, token)
	assert.NoError(t, err)
	assert.Nil(t, session)

	var count int64
	db.Model(&models.Session{}).Where("id = ?", created.ID).Count(&count)
	assert.Zero(t, count, "expired row should be purged on resolve")
}

func TestResolveRealmMismatchIsAnonymous(t *testing.T) {
	db := newSessionTestDB(t)
	created, _ := createVia(t, db, models.RealmClient, 3)

	// Token claims staff but the stored row is a client session
	forged, err := signSessionToken(created.ID, models.RealmStaff, created.ExpiresAt)
	require.NoError(t, err)

	session, err := ResolveSession(db, forged)
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestDestroySessionIsIdempotent(t *testing.T) {
	db := newSessionTestDB(t)
	created, token := createVia(t, db, models.RealmStaff, 1)

	require.NoError(t, DestroySession(db, created.ID))
	require.NoError(t, DestroySession(db, created.ID))

	session, err := ResolveSession(db, token)
	assert.NoError(t, err)
	assert.Nil(t, session)
}

func TestLoginReplacesPriorSession(t *testing.T) {
	db := newSessionTestDB(t)
	first, firstToken := createVia(t, db, models.RealmStaff, 1)

	app := fiber.New()
	app.Post("/", func(c *fiber.Ctx) error {
		_, _, err := CreateSession(db, c, models.RealmStaff, 2)
		require.NoError(t, err)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("POST", "/", nil)
	req.Header.Set("Authorization", "Bearer "+firstToken)
	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	session, err := ResolveSession(db, firstToken)
	assert.NoError(t, err)
	assert.Nil(t, session, "old session %s must be destroyed on re-login", first.ID)
}
