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

type CommissionController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCommissionController(db *gorm.DB, logger *log.Logger) *CommissionController {
	return &CommissionController{DB: db, Logger: logger}
}

// CreateCommission records a commission entry for a policy. Admin-only.
func (cc *CommissionController) CreateCommission(c *fiber.Ctx) error {
	var input struct {
		PolicyID    uint    `json:"policy_id" validate:"required"`
		Amount      int     `json:"amount" validate:"required,gt=0"`
		Rate        float64 `json:"rate" validate:"gte=0,lte=1"`
		PeriodMonth string  `json:"period_month" validate:"required,len=7"` // YYYY-MM
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if _, err := time.Parse("2006-01", input.PeriodMonth); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "period_month must be YYYY-MM", err)
	}

	var policy models.Policy
	if err := cc.DB.First(&policy, input.PolicyID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Policy not found", nil)
	}

	commission := models.Commission{
		PolicyID:    policy.ID,
		AgentID:     policy.AgentID,
		Amount:      input.Amount,
		Rate:        input.Rate,
		PeriodMonth: input.PeriodMonth,
		Status:      "pending",
	}

	if err := cc.DB.Create(&commission).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create commission", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(commission))
}

// GetCommissions lists commissions. Non-admins only see their own.
func (cc *CommissionController) GetCommissions(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := cc.DB.Model(&models.Commission{})
	if !user.IsAdmin() {
		query = query.Where("agent_id = ?", user.ID)
	} else if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("agent_id = ?", utils.ParseUint(agentID))
	}
	if period := c.Query("period_month"); period != "" {
		query = query.Where("period_month = ?", period)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var commissions []models.Commission
	if err := query.Offset(offset).Limit(limit).Order("period_month DESC").Find(&commissions).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch commissions", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  commissions,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// MarkCommissionPaid flips a pending commission to paid. Admin-only.
func (cc *CommissionController) MarkCommissionPaid(c *fiber.Ctx) error {
	commissionID := c.Params("id")

	var commission models.Commission
	if err := cc.DB.First(&commission, "id = ?", commissionID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Commission not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch commission", err)
	}

	now := time.Now()
	if err := cc.DB.Model(&commission).Updates(map[string]interface{}{
		"status":  "paid",
		"paid_at": &now,
	}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update commission", err)
	}

	return c.JSON(utils.SuccessResponse(commission))
}

type agentCommissionSummary struct {
	AgentID      uint   `json:"agent_id"`
	PendingCents int64  `json:"pending_cents"`
	PaidCents    int64  `json:"paid_cents"`
	Entries      int64  `json:"entries"`
	AgentName    string `json:"agent_name" gorm:"-"`
}

// GetCommissionSummary aggregates commissions per agent. Non-admins only get
// their own row.
func (cc *CommissionController) GetCommissionSummary(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	query := cc.DB.Model(&models.Commission{}).
		Select(`agent_id,
			SUM(CASE WHEN status = 'pending' THEN amount ELSE 0 END) AS pending_cents,
			SUM(CASE WHEN status = 'paid' THEN amount ELSE 0 END) AS paid_cents,
			COUNT(*) AS entries`).
		Group("agent_id")
	if !user.IsAdmin() {
		query = query.Where("agent_id = ?", user.ID)
	}

	var rows []agentCommissionSummary
	if err := query.Scan(&rows).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to build summary", err)
	}

	for i := range rows {
		var agent models.User
		if err := cc.DB.Select("first_name", "last_name").First(&agent, rows[i].AgentID).Error; err == nil {
			rows[i].AgentName = agent.FirstName + " " + agent.LastName
		}
	}

	return c.JSON(utils.SuccessResponse(rows))
}
