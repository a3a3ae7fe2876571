package controller

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"

	"brokercrm/config"
	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type DocumentController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewDocumentController(db *gorm.DB, logger *log.Logger) *DocumentController {
	return &DocumentController{DB: db, Logger: logger}
}

// UploadDocument stores an uploaded file under a UUID key, AES-encrypted at
// rest when a document key is configured, and records its metadata.
func (dc *DocumentController) UploadDocument(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "A file is required", err)
	}

	document := models.Document{
		UploadedByID: user.ID,
		FileName:     fileHeader.Filename,
		ContentType:  fileHeader.Header.Get("Content-Type"),
		Category:     c.FormValue("category", "other"),
		StorageKey:   uuid.NewString(),
	}

	if v := c.FormValue("client_id"); v != "" {
		id := utils.ParseUint(v)
		var client models.Client
		if err := dc.DB.First(&client, id).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
		}
		if !user.IsAdmin() && client.AssignedAgentID != user.ID {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
		}
		document.ClientID = &id
	}
	if v := c.FormValue("policy_id"); v != "" {
		id := utils.ParseUint(v)
		document.PolicyID = &id
	}
	if v := c.FormValue("lead_id"); v != "" {
		id := utils.ParseUint(v)
		document.LeadID = &id
	}

	src, err := fileHeader.Open()
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Failed to read upload", err)
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to read upload", err)
	}
	document.SizeBytes = int64(len(data))

	stored, encrypted, err := utils.EncryptBytes(data)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to encrypt document", err)
	}
	document.Encrypted = encrypted

	if err := os.MkdirAll(config.AppConfig.DocumentDir, 0o750); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to prepare document storage", err)
	}
	path := filepath.Join(config.AppConfig.DocumentDir, document.StorageKey)
	if err := os.WriteFile(path, stored, 0o640); err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to store document", err)
	}

	if err := dc.DB.Create(&document).Error; err != nil {
		os.Remove(path)
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to record document", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(document))
}

// GetDocuments lists document metadata, filterable by client, policy or lead
func (dc *DocumentController) GetDocuments(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := dc.DB.Model(&models.Document{})
	if !user.IsAdmin() {
		// Non-admins see documents they uploaded or documents on their clients
		query = query.Where(
			"uploaded_by_id = ? OR client_id IN (?)",
			user.ID,
			dc.DB.Model(&models.Client{}).Select("id").Where("assigned_agent_id = ?", user.ID),
		)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", utils.ParseUint(clientID))
	}
	if policyID := c.Query("policy_id"); policyID != "" {
		query = query.Where("policy_id = ?", utils.ParseUint(policyID))
	}
	if leadID := c.Query("lead_id"); leadID != "" {
		query = query.Where("lead_id = ?", utils.ParseUint(leadID))
	}

	var total int64
	query.Count(&total)

	var documents []models.Document
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&documents).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch documents", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  documents,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

func (dc *DocumentController) loadAccessible(c *fiber.Ctx, user *models.User) (*models.Document, error) {
	var document models.Document
	if err := dc.DB.First(&document, "id = ?", c.Params("id")).Error; err != nil {
		return nil, err
	}
	if user.IsAdmin() || document.UploadedByID == user.ID {
		return &document, nil
	}
	if document.ClientID != nil {
		var client models.Client
		if err := dc.DB.First(&client, *document.ClientID).Error; err == nil && client.AssignedAgentID == user.ID {
			return &document, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

// DownloadDocument streams the (decrypted) file back to a staff user
func (dc *DocumentController) DownloadDocument(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	document, err := dc.loadAccessible(c, user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Document not found", nil)
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

// DeleteDocument removes metadata and the stored file
func (dc *DocumentController) DeleteDocument(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	document, err := dc.loadAccessible(c, user)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Document not found", nil)
	}

	if err := dc.DB.Delete(document).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete document", err)
	}
	if err := os.Remove(filepath.Join(config.AppConfig.DocumentDir, document.StorageKey)); err != nil && !os.IsNotExist(err) {
		dc.Logger.Printf("failed to remove stored file for document %d: %v", document.ID, err)
	}

	return c.JSON(fiber.Map{
		"message": "Document deleted",
	})
}
