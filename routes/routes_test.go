package routes

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"brokercrm/config"
	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file:"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, config.MigrateDB(db))

	config.DB = db
	config.AppConfig.Environment = "test"
	config.AppConfig.SessionSecret = "test-session-secret"
	config.AppConfig.SessionTTL = time.Hour
	config.AppConfig.LoginRateLimit = 1000

	app := fiber.New()
	SetupRoutes(app, db)
	return app, db
}

func seedUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	user := &models.User{
		Username:     username,
		Email:        username + "@example.com",
		PasswordHash: string(hash),
		FirstName:    "Test",
		LastName:     "User",
		Role:         role,
		IsActive:     true,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func seedClientWithPortal(t *testing.T, db *gorm.DB, agentID uint, username string) (*models.Client, *models.PortalAccount) {
	t.Helper()
	client := &models.Client{
		FirstName:       "Pat",
		LastName:        "Nguyen",
		Email:           username + "@example.com",
		Status:          "active",
		AssignedAgentID: agentID,
	}
	require.NoError(t, db.Create(client).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.MinCost)
	require.NoError(t, err)
	account := &models.PortalAccount{
		ClientID:     client.ID,
		Username:     username,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	require.NoError(t, db.Create(account).Error)
	return client, account
}

func doJSON(t *testing.T, app *fiber.App, method, path, token string, body interface{}) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	defer resp.Body.Close()
	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func sessionCookie(t *testing.T, resp *http.Response) string {
	t.Helper()
	for _, cookie := range resp.Cookies() {
		if cookie.Name == utils.SessionCookieName {
			return cookie.Value
		}
	}
	t.Fatal("no session cookie on response")
	return ""
}

func loginStaff(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/login", "", fiber.Map{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return sessionCookie(t, resp)
}

func loginPortal(t *testing.T, app *fiber.App, username string) string {
	t.Helper()
	resp := doJSON(t, app, "POST", "/api/client/login", "", fiber.Map{
		"username": username,
		"password": "password123",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return sessionCookie(t, resp)
}

func TestStaffLoginAndWhoami(t *testing.T) {
	app, db := setupTestApp(t)
	seedUser(t, db, "agent1", models.RoleAgent)

	token := loginStaff(t, app, "agent1")

	resp := doJSON(t, app, "GET", "/api/user", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	user := body["data"].(map[string]interface{})
	assert.Equal(t, "agent1", user["username"])
	assert.NotContains(t, user, "password_hash")
}

func TestStaffLoginRejectsBadCredentials(t *testing.T) {
	app, db := setupTestApp(t)
	seedUser(t, db, "agent1", models.RoleAgent)

	// Wrong password and unknown username must be indistinguishable
	resp := doJSON(t, app, "POST", "/api/login", "", fiber.Map{
		"username": "agent1", "password": "wrong",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	wrongPass := decodeBody(t, resp)

	resp = doJSON(t, app, "POST", "/api/login", "", fiber.Map{
		"username": "nobody", "password": "password123",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	unknownUser := decodeBody(t, resp)

	assert.Equal(t, wrongPass["error"], unknownUser["error"])
}

func TestInactiveStaffCannotLogin(t *testing.T) {
	app, db := setupTestApp(t)
	user := seedUser(t, db, "agent1", models.RoleAgent)
	require.NoError(t, db.Model(user).Update("is_active", false).Error)

	resp := doJSON(t, app, "POST", "/api/login", "", fiber.Map{
		"username": "agent1", "password": "password123",
	})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)
}

func TestRealmSeparation(t *testing.T) {
	app, db := setupTestApp(t)
	agent := seedUser(t, db, "agent1", models.RoleAgent)
	seedClientWithPortal(t, db, agent.ID, "portal1")

	staffToken := loginStaff(t, app, "agent1")
	portalToken := loginPortal(t, app, "portal1")

	// A staff session must not open portal routes, and the refusal must read
	// exactly like missing credentials.
	resp := doJSON(t, app, "GET", "/api/client/info", staffToken, nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	staffDenied := decodeBody(t, resp)

	resp = doJSON(t, app, "GET", "/api/client/info", "", nil)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	anonDenied := decodeBody(t, resp)
	assert.Equal(t, anonDenied["error"], staffDenied["error"])

	// And the reverse: a portal session must not open staff routes.
	resp = doJSON(t, app, "GET", "/api/user", portalToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/leads/", portalToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// Each token still works in its own realm.
	resp = doJSON(t, app, "GET", "/api/user", staffToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/client/info", portalToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestAnonymousAndGarbageTokens(t *testing.T) {
	app, _ := setupTestApp(t)

	resp := doJSON(t, app, "GET", "/api/user", "", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)

	// A malformed token is anonymous, never a server error
	resp = doJSON(t, app, "GET", "/api/user", "garbage.token.value", nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestLogoutIsIdempotent(t *testing.T) {
	app, db := setupTestApp(t)
	seedUser(t, db, "agent1", models.RoleAgent)
	token := loginStaff(t, app, "agent1")

	resp := doJSON(t, app, "POST", "/api/logout", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// Second logout with the same dead token still succeeds
	resp = doJSON(t, app, "POST", "/api/logout", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/user", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestPortalLogoutDestroysClientSession(t *testing.T) {
	app, db := setupTestApp(t)
	agent := seedUser(t, db, "agent1", models.RoleAgent)
	seedClientWithPortal(t, db, agent.ID, "portal1")
	token := loginPortal(t, app, "portal1")

	resp := doJSON(t, app, "POST", "/api/logout", token, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/client/info", token, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestInactivePortalAccountGetsGenericRejection(t *testing.T) {
	app, db := setupTestApp(t)
	agent := seedUser(t, db, "agent1", models.RoleAgent)
	_, account := seedClientWithPortal(t, db, agent.ID, "portal1")
	require.NoError(t, db.Model(account).Update("is_active", false).Error)

	resp := doJSON(t, app, "POST", "/api/client/login", "", fiber.Map{
		"username": "portal1", "password": "password123",
	})
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Invalid username or password", body["error"])
}

func TestLeadUpdateSyncsLinkedClient(t *testing.T) {
	app, db := setupTestApp(t)
	admin := seedUser(t, db, "admin1", models.RoleAdmin)
	token := loginStaff(t, app, "admin1")

	client := &models.Client{
		FirstName: "Dana", LastName: "Reyes", Email: "dana@example.com",
		Phone: "555-0100", Status: "active", Notes: "vip",
		AssignedAgentID: admin.ID,
	}
	require.NoError(t, db.Create(client).Error)
	lead := &models.Lead{
		FirstName: "Dana", LastName: "Reyes", Email: "dana@example.com",
		Status: models.LeadStatusConverted, AssignedAgentID: admin.ID,
		ClientID: &client.ID,
	}
	require.NoError(t, db.Create(lead).Error)

	resp := doJSON(t, app, "PATCH", "/api/leads/1", token, fiber.Map{
		"phone":  "555-0999",
		"status": models.LeadStatusContacted,
		"notes":  "left voicemail",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.NotContains(t, body, "sync_warning")

	var gotClient models.Client
	require.NoError(t, db.First(&gotClient, client.ID).Error)
	assert.Equal(t, "555-0999", gotClient.Phone, "mirrored field must propagate")
	assert.Equal(t, "active", gotClient.Status, "client status is never mirrored")
	assert.Equal(t, "vip", gotClient.Notes, "client notes are never mirrored")

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	assert.Equal(t, models.LeadStatusContacted, gotLead.Status)
	assert.Equal(t, "left voicemail", gotLead.Notes)
}

func TestLeadUpdateWarnsWhenClientGone(t *testing.T) {
	app, db := setupTestApp(t)
	admin := seedUser(t, db, "admin1", models.RoleAdmin)
	token := loginStaff(t, app, "admin1")

	missing := uint(9999)
	lead := &models.Lead{
		Email: "ghost@example.com", Status: models.LeadStatusConverted,
		AssignedAgentID: admin.ID, ClientID: &missing,
	}
	require.NoError(t, db.Create(lead).Error)

	resp := doJSON(t, app, "PATCH", "/api/leads/1", token, fiber.Map{
		"phone": "555-0321",
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode, "lead update must survive a failed sync")
	body := decodeBody(t, resp)
	assert.Contains(t, body, "sync_warning")

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	assert.Equal(t, "555-0321", gotLead.Phone)
}

func TestLeadOwnership(t *testing.T) {
	app, db := setupTestApp(t)
	owner := seedUser(t, db, "owner", models.RoleAgent)
	seedUser(t, db, "outsider", models.RoleAgent)
	seedUser(t, db, "admin1", models.RoleAdmin)

	lead := &models.Lead{
		Email: "lead@example.com", Status: models.LeadStatusNew,
		AssignedAgentID: owner.ID,
	}
	require.NoError(t, db.Create(lead).Error)

	// Another agent's session is authenticated but not authorized
	outsiderToken := loginStaff(t, app, "outsider")
	resp := doJSON(t, app, "PATCH", "/api/leads/1", outsiderToken, fiber.Map{"phone": "555-0111"})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Access denied", body["error"])

	// The assigned agent may update but not reassign
	ownerToken := loginStaff(t, app, "owner")
	resp = doJSON(t, app, "PATCH", "/api/leads/1", ownerToken, fiber.Map{"phone": "555-0112"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "PATCH", "/api/leads/1", ownerToken, fiber.Map{"assigned_agent_id": 2})
	assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

	// Admin bypasses ownership
	adminToken := loginStaff(t, app, "admin1")
	resp = doJSON(t, app, "PATCH", "/api/leads/1", adminToken, fiber.Map{"phone": "555-0113"})
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestLeadUpdateNotFound(t *testing.T) {
	app, db := setupTestApp(t)
	seedUser(t, db, "admin1", models.RoleAdmin)
	token := loginStaff(t, app, "admin1")

	resp := doJSON(t, app, "PATCH", "/api/leads/42", token, fiber.Map{"phone": "555-0100"})
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestLeadConvertLinksClient(t *testing.T) {
	app, db := setupTestApp(t)
	agent := seedUser(t, db, "agent1", models.RoleAgent)
	token := loginStaff(t, app, "agent1")

	lead := &models.Lead{
		FirstName: "Ben", LastName: "Ito", Email: "ben@example.com",
		Status: models.LeadStatusQuoted, AssignedAgentID: agent.ID,
	}
	require.NoError(t, db.Create(lead).Error)

	resp := doJSON(t, app, "POST", "/api/leads/1/convert", token, nil)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	var gotLead models.Lead
	require.NoError(t, db.First(&gotLead, lead.ID).Error)
	require.NotNil(t, gotLead.ClientID)
	assert.Equal(t, models.LeadStatusConverted, gotLead.Status)

	var gotClient models.Client
	require.NoError(t, db.First(&gotClient, *gotLead.ClientID).Error)
	assert.Equal(t, "ben@example.com", gotClient.Email)

	// Converting twice is a conflict
	resp = doJSON(t, app, "POST", "/api/leads/1/convert", token, nil)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)
}

func TestCommissionWritesAreAdminOnly(t *testing.T) {
	app, db := setupTestApp(t)
	seedUser(t, db, "agent1", models.RoleAgent)
	token := loginStaff(t, app, "agent1")

	resp := doJSON(t, app, "POST", "/api/commissions/", token, fiber.Map{
		"policy_id": 1, "amount": 12500, "rate": 10.0, "period_month": "2026-08",
	})
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	body := decodeBody(t, resp)
	assert.Equal(t, "Access denied", body["error"])
}

func TestPortalPoliciesAreScopedToOwnClient(t *testing.T) {
	app, db := setupTestApp(t)
	agent := seedUser(t, db, "agent1", models.RoleAgent)
	myClient, _ := seedClientWithPortal(t, db, agent.ID, "portal1")
	otherClient, _ := seedClientWithPortal(t, db, agent.ID, "portal2")

	mine := &models.Policy{
		ClientID: myClient.ID, AgentID: agent.ID, PolicyNumber: "POL-001",
		CarrierName: "Acme Mutual", ProductType: "auto", AnnualPremium: 120000,
		EffectiveDate: time.Now(), ExpirationDate: time.Now().AddDate(1, 0, 0),
		Status: models.PolicyStatusActive,
	}
	require.NoError(t, db.Create(mine).Error)
	theirs := &models.Policy{
		ClientID: otherClient.ID, AgentID: agent.ID, PolicyNumber: "POL-002",
		CarrierName: "Acme Mutual", ProductType: "home", AnnualPremium: 90000,
		EffectiveDate: time.Now(), ExpirationDate: time.Now().AddDate(1, 0, 0),
		Status: models.PolicyStatusActive,
	}
	require.NoError(t, db.Create(theirs).Error)

	token := loginPortal(t, app, "portal1")
	resp := doJSON(t, app, "GET", "/api/client/policies", token, nil)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)

	policies := body["data"].([]interface{})
	require.Len(t, policies, 1)
	policy := policies[0].(map[string]interface{})
	assert.Equal(t, "POL-001", policy["policy_number"])
}

func TestHealthEndpoint(t *testing.T) {
	app, _ := setupTestApp(t)
	resp := doJSON(t, app, "GET", "/health", "", nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}

func TestPortalAccountProvisioning(t *testing.T) {
	app, db := setupTestApp(t)
	agent := seedUser(t, db, "agent1", models.RoleAgent)
	token := loginStaff(t, app, "agent1")

	client := &models.Client{
		FirstName: "Sam", LastName: "Okafor", Email: "sam@example.com",
		Status: "active", AssignedAgentID: agent.ID,
	}
	require.NoError(t, db.Create(client).Error)

	// Provision without a password: a temporary one comes back exactly once
	resp := doJSON(t, app, "POST", "/api/clients/1/portal-account", token, fiber.Map{
		"username": "sam.okafor",
	})
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)
	body := decodeBody(t, resp)
	tempPassword, ok := body["temporary_password"].(string)
	require.True(t, ok, "generated password must be returned at creation")

	// The generated credentials open a client-realm session
	resp = doJSON(t, app, "POST", "/api/client/login", "", fiber.Map{
		"username": "sam.okafor", "password": tempPassword,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	portalToken := sessionCookie(t, resp)

	resp = doJSON(t, app, "GET", "/api/client/info", portalToken, nil)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	// A client gets at most one portal account
	resp = doJSON(t, app, "POST", "/api/clients/1/portal-account", token, fiber.Map{
		"username": "sam.second",
	})
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	// Disabling the account kills portal access on the next request
	resp = doJSON(t, app, "PUT", "/api/clients/1/portal-account", token, fiber.Map{
		"is_active": false,
	})
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp = doJSON(t, app, "GET", "/api/client/info", portalToken, nil)
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}
