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

type PolicyController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewPolicyController(db *gorm.DB, logger *log.Logger) *PolicyController {
	return &PolicyController{DB: db, Logger: logger}
}

func (pc *PolicyController) canAccess(user *models.User, policy *models.Policy) bool {
	return user.IsAdmin() || policy.AgentID == user.ID
}

// CreatePolicy records a new policy for a client
func (pc *PolicyController) CreatePolicy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		ClientID       uint      `json:"client_id" validate:"required"`
		PolicyNumber   string    `json:"policy_number" validate:"required,max=100"`
		CarrierName    string    `json:"carrier_name" validate:"required,max=200"`
		ProductType    string    `json:"product_type" validate:"required,oneof=auto home life health commercial"`
		AnnualPremium  int       `json:"annual_premium" validate:"gte=0"`
		CommissionRate float64   `json:"commission_rate" validate:"gte=0,lte=1"`
		EffectiveDate  time.Time `json:"effective_date" validate:"required"`
		ExpirationDate time.Time `json:"expiration_date" validate:"required"`
		Notes          string    `json:"notes"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if !input.ExpirationDate.After(input.EffectiveDate) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Expiration date must be after effective date", nil)
	}

	var client models.Client
	if err := pc.DB.First(&client, input.ClientID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
	}
	if !user.IsAdmin() && client.AssignedAgentID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	policy := models.Policy{
		ClientID:       input.ClientID,
		AgentID:        client.AssignedAgentID,
		PolicyNumber:   input.PolicyNumber,
		CarrierName:    input.CarrierName,
		ProductType:    input.ProductType,
		AnnualPremium:  input.AnnualPremium,
		CommissionRate: input.CommissionRate,
		EffectiveDate:  input.EffectiveDate,
		ExpirationDate: input.ExpirationDate,
		Status:         models.PolicyStatusActive,
		Notes:          input.Notes,
	}

	if err := pc.DB.Create(&policy).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Failed to create policy (duplicate policy number?)", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(policy))
}

// GetPolicies returns paginated policies with filters
func (pc *PolicyController) GetPolicies(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := pc.DB.Model(&models.Policy{})
	if !user.IsAdmin() {
		query = query.Where("agent_id = ?", user.ID)
	}
	if clientID := c.Query("client_id"); clientID != "" {
		query = query.Where("client_id = ?", utils.ParseUint(clientID))
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if productType := c.Query("product_type"); productType != "" {
		query = query.Where("product_type = ?", productType)
	}

	var total int64
	query.Count(&total)

	var policies []models.Policy
	if err := query.Offset(offset).Limit(limit).Order("expiration_date ASC").Find(&policies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch policies", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  policies,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetPolicy returns a single policy
func (pc *PolicyController) GetPolicy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	policyID := c.Params("id")

	var policy models.Policy
	if err := pc.DB.Preload("Client").First(&policy, "id = ?", policyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Policy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch policy", err)
	}

	if !pc.canAccess(user, &policy) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	return c.JSON(utils.SuccessResponse(policy))
}

// UpdatePolicy applies a partial update
func (pc *PolicyController) UpdatePolicy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	policyID := c.Params("id")

	var input struct {
		CarrierName    *string    `json:"carrier_name" validate:"omitempty,max=200"`
		ProductType    *string    `json:"product_type" validate:"omitempty,oneof=auto home life health commercial"`
		AnnualPremium  *int       `json:"annual_premium" validate:"omitempty,gte=0"`
		CommissionRate *float64   `json:"commission_rate" validate:"omitempty,gte=0,lte=1"`
		EffectiveDate  *time.Time `json:"effective_date"`
		ExpirationDate *time.Time `json:"expiration_date"`
		Status         *string    `json:"status" validate:"omitempty,oneof=active lapsed cancelled expired"`
		Notes          *string    `json:"notes"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var policy models.Policy
	if err := pc.DB.First(&policy, "id = ?", policyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Policy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch policy", err)
	}

	if !pc.canAccess(user, &policy) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	updates := make(map[string]interface{})
	if input.CarrierName != nil {
		updates["carrier_name"] = *input.CarrierName
	}
	if input.ProductType != nil {
		updates["product_type"] = *input.ProductType
	}
	if input.AnnualPremium != nil {
		updates["annual_premium"] = *input.AnnualPremium
	}
	if input.CommissionRate != nil {
		updates["commission_rate"] = *input.CommissionRate
	}
	if input.EffectiveDate != nil {
		updates["effective_date"] = *input.EffectiveDate
	}
	if input.ExpirationDate != nil {
		updates["expiration_date"] = *input.ExpirationDate
	}
	if input.Status != nil {
		updates["status"] = *input.Status
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if len(updates) > 0 {
		if err := pc.DB.Model(&policy).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update policy", err)
		}
	}

	return c.JSON(utils.SuccessResponse(policy))
}

// DeletePolicy removes a policy
func (pc *PolicyController) DeletePolicy(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	policyID := c.Params("id")

	var policy models.Policy
	if err := pc.DB.First(&policy, "id = ?", policyID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Policy not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch policy", err)
	}

	if !pc.canAccess(user, &policy) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if err := pc.DB.Delete(&policy).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete policy", err)
	}

	return c.JSON(fiber.Map{
		"message": "Policy deleted",
	})
}

// GetRenewals lists active policies expiring within the next N days
func (pc *PolicyController) GetRenewals(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	days, _ := strconv.Atoi(c.Query("days", "30"))
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, days)

	query := pc.DB.Model(&models.Policy{}).
		Where("status = ?", models.PolicyStatusActive).
		Where("expiration_date <= ?", cutoff)
	if !user.IsAdmin() {
		query = query.Where("agent_id = ?", user.ID)
	}

	var policies []models.Policy
	if err := query.Preload("Client").Order("expiration_date ASC").Find(&policies).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch renewals", err)
	}

	return c.JSON(utils.SuccessResponse(policies))
}
