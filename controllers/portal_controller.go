package controller

import (
	"log"
	"os"
	"path/filepath"
	"time"

	"brokercrm/config"
	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type PortalAuthResponse struct {
	SessionID string                `json:"session_id"`
	Realm     string                `json:"realm"`
	Account   *models.PortalAccount `json:"account"`
}

// PortalLogin authenticates against the portal-account credential table and
// opens a client-realm session. Inactive accounts get the same generic
// rejection as bad credentials: the portal must not leak account state.
func PortalLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	var account models.PortalAccount
	if err := config.DB.Preload("Client").Where("username = ?", req.Username).First(&account).Error; err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	if !account.IsActive {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Invalid username or password",
		})
	}

	session, tokenString, err := utils.CreateSession(config.DB, c, models.RealmClient, account.ID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create session",
		})
	}

	now := time.Now()
	config.DB.Model(&account).Update("last_login_at", &now)

	utils.SetSessionCookie(c, tokenString, session.ExpiresAt)
	return c.JSON(PortalAuthResponse{
		SessionID: session.ID,
		Realm:     models.RealmClient,
		Account:   &account,
	})
}

// GetPortalInfo returns the portal principal with its linked client record.
func GetPortalInfo(c *fiber.Ctx) error {
	account := c.Locals("portalAccount").(*models.PortalAccount)
	return c.JSON(utils.SuccessResponse(account))
}

// PortalController serves the read-only portal views, always scoped to the
// portal account's linked client record.
type PortalController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewPortalController(db *gorm.DB, logger *log.Logger) *PortalController {
	return &PortalController{DB: db, Logger: logger}
}

// GetMyPolicies lists the policies on the caller's client record.
func (pc *PortalController) GetMyPolicies(c *fiber.Ctx) error {
	account := c.Locals("portalAccount").(*models.PortalAccount)

	var policies []models.Policy
	if err := pc.DB.Where("client_id = ?", account.ClientID).Find(&policies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch policies", err)
	}
	return c.JSON(utils.SuccessResponse(policies))
}

// GetMyDocuments lists document metadata on the caller's client record.
func (pc *PortalController) GetMyDocuments(c *fiber.Ctx) error {
	account := c.Locals("portalAccount").(*models.PortalAccount)

	var documents []models.Document
	if err := pc.DB.Where("client_id = ?", account.ClientID).Find(&documents).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch documents", err)
	}
	return c.JSON(utils.SuccessResponse(documents))
}

// DownloadMyDocument streams one of the caller's documents. The ClientID
// match in the query is the authorization check.
func (pc *PortalController) DownloadMyDocument(c *fiber.Ctx) error {
	account := c.Locals("portalAccount").(*models.PortalAccount)
	documentID := c.Params("id")

	var document models.Document
	if err := pc.DB.Where("id = ? AND client_id = ?", documentID, account.ClientID).First(&document).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Document not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch document", err)
	}

	data, err := os.ReadFile(filepath.Join(config.AppConfig.DocumentDir, document.StorageKey))
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read document", err)
	}
	if document.Encrypted {
		data, err = utils.DecryptBytes(data)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to decrypt document", err)
		}
	}

	c.Set("Content-Disposition", `attachment; filename="`+document.FileName+`"`)
	if document.ContentType != "" {
		c.Set("Content-Type", document.ContentType)
	}
	return c.Send(data)
}
