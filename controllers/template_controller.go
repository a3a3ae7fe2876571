package controller

import (
	"log"

	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type TemplateController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Mailer *utils.Mailer
}

func NewTemplateController(db *gorm.DB, logger *log.Logger) *TemplateController {
	return &TemplateController{
		DB:     db,
		Logger: logger,
		Mailer: utils.NewMailer(),
	}
}

// CreateTemplate stores a marketing email template
func (tc *TemplateController) CreateTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name     string `json:"name" validate:"required,max=200"`
		Subject  string `json:"subject" validate:"required,max=300"`
		Body     string `json:"body" validate:"required"`
		Category string `json:"category" validate:"omitempty,oneof=newsletter renewal cross_sell holiday"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	template := models.MarketingTemplate{
		Name:        input.Name,
		Subject:     input.Subject,
		Body:        input.Body,
		Category:    input.Category,
		CreatedByID: user.ID,
	}

	if err := tc.DB.Create(&template).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Failed to create template (duplicate name?)", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(template))
}

// GetTemplates lists templates, optionally by category
func (tc *TemplateController) GetTemplates(c *fiber.Ctx) error {
	query := tc.DB.Model(&models.MarketingTemplate{})
	if category := c.Query("category"); category != "" {
		query = query.Where("category = ?", category)
	}

	var templates []models.MarketingTemplate
	if err := query.Order("name ASC").Find(&templates).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch templates", err)
	}

	return c.JSON(utils.SuccessResponse(templates))
}

// UpdateTemplate applies a partial update
func (tc *TemplateController) UpdateTemplate(c *fiber.Ctx) error {
	templateID := c.Params("id")

	var input struct {
		Name     *string `json:"name" validate:"omitempty,max=200"`
		Subject  *string `json:"subject" validate:"omitempty,max=300"`
		Body     *string `json:"body"`
		Category *string `json:"category" validate:"omitempty,oneof=newsletter renewal cross_sell holiday"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var template models.MarketingTemplate
	if err := tc.DB.First(&template, "id = ?", templateID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch template", err)
	}

	updates := make(map[string]interface{})
	if input.Name != nil {
		updates["name"] = *input.Name
	}
	if input.Subject != nil {
		updates["subject"] = *input.Subject
	}
	if input.Body != nil {
		updates["body"] = *input.Body
	}
	if input.Category != nil {
		updates["category"] = *input.Category
	}

	if len(updates) > 0 {
		if err := tc.DB.Model(&template).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update template", err)
		}
	}

	return c.JSON(utils.SuccessResponse(template))
}

// DeleteTemplate removes a template
func (tc *TemplateController) DeleteTemplate(c *fiber.Ctx) error {
	templateID := c.Params("id")

	if err := tc.DB.Delete(&models.MarketingTemplate{}, "id = ?", templateID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete template", err)
	}

	return c.JSON(fiber.Map{
		"message": "Template deleted",
	})
}

// SendTemplate renders the template against each target client and sends it.
// Sends are best-effort per recipient: one bad address does not stop the
// batch, and failures come back in the response.
func (tc *TemplateController) SendTemplate(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	templateID := c.Params("id")

	var input struct {
		ClientIDs []uint `json:"client_ids" validate:"required,min=1"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var template models.MarketingTemplate
	if err := tc.DB.First(&template, "id = ?", templateID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Template not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch template", err)
	}

	query := tc.DB.Where("id IN ?", input.ClientIDs)
	if !user.IsAdmin() {
		query = query.Where("assigned_agent_id = ?", user.ID)
	}
	var clients []models.Client
	if err := query.Find(&clients).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch clients", err)
	}

	sent := 0
	failures := make(map[string]string)
	for _, client := range clients {
		if client.Email == "" {
			failures[client.DisplayName()] = "no email address"
			continue
		}
		data := map[string]interface{}{
			"FirstName":   client.FirstName,
			"LastName":    client.LastName,
			"DisplayName": client.DisplayName(),
			"City":        client.City,
			"State":       client.State,
		}
		if err := tc.Mailer.SendMarketing(client.Email, template.Subject, template.Body, data); err != nil {
			tc.Logger.Printf("marketing send to client %d failed: %v", client.ID, err)
			failures[client.Email] = err.Error()
			continue
		}
		sent++
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"sent":     sent,
		"failed":   len(failures),
		"failures": failures,
	})
}
