package controller

import (
	"log"
	"strconv"
	"time"

	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type QuoteController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewQuoteController(db *gorm.DB, logger *log.Logger) *QuoteController {
	return &QuoteController{DB: db, Logger: logger}
}

// CreateQuote records a carrier quote against a lead or a client
func (qc *QuoteController) CreateQuote(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		LeadID        *uint      `json:"lead_id"`
		ClientID      *uint      `json:"client_id"`
		CarrierName   string     `json:"carrier_name" validate:"required,max=200"`
		ProductType   string     `json:"product_type" validate:"required,oneof=auto home life health commercial"`
		AnnualPremium int        `json:"annual_premium" validate:"gte=0"`
		ValidUntil    *time.Time `json:"valid_until"`
		Notes         string     `json:"notes"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if (input.LeadID == nil) == (input.ClientID == nil) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Exactly one of lead_id or client_id is required", nil)
	}

	if input.LeadID != nil {
		var lead models.Lead
		if err := qc.DB.First(&lead, *input.LeadID).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		if !user.IsAdmin() && lead.AssignedAgentID != user.ID {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
		}
	} else {
		var client models.Client
		if err := qc.DB.First(&client, *input.ClientID).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
		}
		if !user.IsAdmin() && client.AssignedAgentID != user.ID {
			return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
		}
	}

	quote := models.Quote{
		LeadID:        input.LeadID,
		ClientID:      input.ClientID,
		AgentID:       user.ID,
		CarrierName:   input.CarrierName,
		ProductType:   input.ProductType,
		AnnualPremium: input.AnnualPremium,
		Status:        models.QuoteStatusDraft,
		ValidUntil:    input.ValidUntil,
		Notes:         input.Notes,
	}

	if err := qc.DB.Create(&quote).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create quote", err)
	}

	// Quoting a lead moves it along the pipeline
	if input.LeadID != nil {
		qc.DB.Model(&models.Lead{}).
			Where("id = ? AND status = ?", *input.LeadID, models.LeadStatusNew).
			Update("status", models.LeadStatusQuoted)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(quote))
}

// GetQuotes returns paginated quotes with filters
func (qc *QuoteController) GetQuotes(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := qc.DB.Model(&models.Quote{})
	if !user.IsAdmin() {
		query = query.Where("agent_id = ?", user.ID)
	}
	if leadID := c.Query("lead_id"); leadID != "" {
		query = query.Where("lead_id = ?", utils.ParseUint(leadID))
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", utils.ParseUint(clientID))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var quotes []models.Quote
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&quotes).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch quotes", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  quotes,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetQuote returns a single quote
func (qc *QuoteController) GetQuote(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	quoteID := c.Params("id")

	var quote models.Quote
	if err := qc.DB.First(&quote, "id = ?", quoteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Quote not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch quote", err)
	}

	if !user.IsAdmin() && quote.AgentID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	return c.JSON(utils.SuccessResponse(quote))
}

// UpdateQuote applies a partial update (status moves, premium corrections)
func (qc *QuoteController) UpdateQuote(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	quoteID := c.Params("id")

	var input struct {
		CarrierName   *string    `json:"carrier_name" validate:"omitempty,max=200"`
		AnnualPremium *int       `json:"annual_premium" validate:"omitempty,gte=0"`
		Status        *string    `json:"status" validate:"omitempty,oneof=draft presented accepted declined"`
		ValidUntil    *time.Time `json:"valid_until"`
		Notes         *string    `json:"notes"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var quote models.Quote
	if err := qc.DB.First(&quote, "id = ?", quoteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Quote not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch quote", err)
	}

	if !user.IsAdmin() && quote.AgentID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	updates := make(map[string]interface{})
	if input.CarrierName != nil {
		updates["carrier_name"] = *input.CarrierName
	}
	if input.AnnualPremium != nil {
		updates["annual_premium"] = *input.AnnualPremium
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.ValidUntil != nil {
		updates["valid_until"] = *input.ValidUntil
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if len(updates) > 0 {
		if err := qc.DB.Model(&quote).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update quote", err)
		}
	}

	return c.JSON(utils.SuccessResponse(quote))
}

// DeleteQuote removes a quote
func (qc *QuoteController) DeleteQuote(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	quoteID := c.Params("id")

	var quote models.Quote
	if err := qc.DB.First(&quote, "id = ?", quoteID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Quote not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch quote", err)
	}

	if !user.IsAdmin() && quote.AgentID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if err := qc.DB.Delete(&quote).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete quote", err)
	}

	return c.JSON(fiber.Map{
		"message": "Quote deleted",
	})
}
