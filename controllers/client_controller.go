package controller

import (
	"crypto/rand"
	"encoding/hex"
	"log"
	"strconv"
	"strings"

	"brokercrm/models"
	"brokercrm/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type ClientController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Mailer *utils.Mailer
}

func NewClientController(db *gorm.DB, logger *log.Logger) *ClientController {
	return &ClientController{
		DB:     db,
		Logger: logger,
		Mailer: utils.NewMailer(),
	}
}

func (cc *ClientController) canAccess(user *models.User, client *models.Client) bool {
	return user.IsAdmin() || client.AssignedAgentID == user.ID
}

// CreateClient creates a client record directly (without going through a lead)
func (cc *ClientController) CreateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		FirstName       string `json:"first_name" validate:"omitempty,max=100"`
		LastName        string `json:"last_name" validate:"omitempty,max=100"`
		Email           string `json:"email" validate:"required,email"`
		Phone           string `json:"phone" validate:"omitempty,max=30"`
		SecondaryPhone  string `json:"secondary_phone" validate:"omitempty,max=30"`
		AddressLine1    string `json:"address_line1" validate:"omitempty,max=200"`
		AddressLine2    string `json:"address_line2" validate:"omitempty,max=200"`
		City            string `json:"city" validate:"omitempty,max=100"`
		State           string `json:"state" validate:"omitempty,max=100"`
		PostalCode      string `json:"postal_code" validate:"omitempty,max=20"`
		CompanyName     string `json:"company_name" validate:"omitempty,max=200"`
		Notes           string `json:"notes"`
		AssignedAgentID uint   `json:"assigned_agent_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := checkmail.ValidateFormat(input.Email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	assignedTo := input.AssignedAgentID
	if assignedTo == 0 || !user.IsAdmin() {
		assignedTo = user.ID
	}

	client := models.Client{
		FirstName:       input.FirstName,
		LastName:        input.LastName,
		Email:           strings.ToLower(input.Email),
		Phone:           input.Phone,
		SecondaryPhone:  input.SecondaryPhone,
		AddressLine1:    input.AddressLine1,
		AddressLine2:    input.AddressLine2,
		City:            input.City,
		State:           input.State,
		PostalCode:      input.PostalCode,
		CompanyName:     input.CompanyName,
		Notes:           input.Notes,
		Status:          "active",
		AssignedAgentID: assignedTo,
	}

	if err := cc.DB.Create(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create client", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(client))
}

// GetClients returns paginated clients with filters
func (cc *ClientController) GetClients(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := cc.DB.Model(&models.Client{})
	if !user.IsAdmin() {
		query = query.Where("assigned_agent_id = ?", user.ID)
	} else if agentID := c.Query("agent_id"); agentID != "" {
		query = query.Where("assigned_agent_id = ?", utils.ParseUint(agentID))
	}

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if search := c.Query("search"); search != "" {
		like := "%" + strings.ToLower(search) + "%"
		query = query.Where("lower(email) LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ? OR lower(company_name) LIKE ?", like, like, like, like)
	}

	var total int64
	query.Count(&total)

	var clients []models.Client
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&clients).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch clients", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  clients,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetClient returns a single client with portal account and policies
func (cc *ClientController) GetClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID := c.Params("id")

	var client models.Client
	if err := cc.DB.Preload("PortalAccount").Preload("Policies").First(&client, "id = ?", clientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch client", err)
	}

	if !cc.canAccess(user, &client) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	return c.JSON(utils.SuccessResponse(client))
}

// UpdateClient applies a partial update to client-owned fields
func (cc *ClientController) UpdateClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID := c.Params("id")

	var input struct {
		FirstName       *string `json:"first_name" validate:"omitempty,max=100"`
		LastName        *string `json:"last_name" validate:"omitempty,max=100"`
		Email           *string `json:"email" validate:"omitempty,email"`
		Phone           *string `json:"phone" validate:"omitempty,max=30"`
		SecondaryPhone  *string `json:"secondary_phone" validate:"omitempty,max=30"`
		AddressLine1    *string `json:"address_line1" validate:"omitempty,max=200"`
		AddressLine2    *string `json:"address_line2" validate:"omitempty,max=200"`
		City            *string `json:"city" validate:"omitempty,max=100"`
		State           *string `json:"state" validate:"omitempty,max=100"`
		PostalCode      *string `json:"postal_code" validate:"omitempty,max=20"`
		CompanyName     *string `json:"company_name" validate:"omitempty,max=200"`
		Status          *string `json:"status" validate:"omitempty,oneof=active inactive"`
		Notes           *string `json:"notes"`
		AssignedAgentID *uint   `json:"assigned_agent_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var client models.Client
	if err := cc.DB.First(&client, "id = ?", clientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch client", err)
	}

	if !cc.canAccess(user, &client) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}
	if input.AssignedAgentID != nil && !user.IsAdmin() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	updates := make(map[string]interface{})
	setStr := func(name string, v *string) {
		if v != nil {
			updates[name] = *v
		}
	}
	setStr("first_name", input.FirstName)
	setStr("last_name", input.LastName)
	setStr("phone", input.Phone)
	setStr("secondary_phone", input.SecondaryPhone)
	setStr("address_line1", input.AddressLine1)
	setStr("address_line2", input.AddressLine2)
	setStr("city", input.City)
	setStr("state", input.State)
	setStr("postal_code", input.PostalCode)
	setStr("company_name", input.CompanyName)
	setStr("status", input.Status)
	setStr("notes", input.Notes)
	if input.Email != nil {
		updates["email"] = strings.ToLower(*input.Email)
	}
	if input.AssignedAgentID != nil {
		updates["assigned_agent_id"] = *input.AssignedAgentID
	}

	if len(updates) > 0 {
		if err := cc.DB.Model(&client).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update client", err)
		}
	}

	return c.JSON(utils.SuccessResponse(client))
}

// DeleteClient removes a client record
func (cc *ClientController) DeleteClient(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID := c.Params("id")

	var client models.Client
	if err := cc.DB.First(&client, "id = ?", clientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch client", err)
	}

	if !cc.canAccess(user, &client) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if err := cc.DB.Delete(&client).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete client", err)
	}

	return c.JSON(fiber.Map{
		"message": "Client deleted",
	})
}

// CreatePortalAccount provisions portal-realm credentials for a client and
// emails an invite (best-effort).
func (cc *ClientController) CreatePortalAccount(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID := c.Params("id")

	var input struct {
		Username string `json:"username" validate:"required,min=4,max=100"`
		Password string `json:"password" validate:"omitempty,min=8"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var client models.Client
	if err := cc.DB.First(&client, "id = ?", clientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch client", err)
	}

	if !cc.canAccess(user, &client) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	var existing models.PortalAccount
	if err := cc.DB.Where("client_id = ?", client.ID).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Client already has a portal account", nil)
	}

	password := input.Password
	generated := false
	if password == "" {
		raw := make([]byte, 9)
		if _, err := rand.Read(raw); err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to generate password", err)
		}
		password = hex.EncodeToString(raw)
		generated = true
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	account := models.PortalAccount{
		ClientID:     client.ID,
		Username:     strings.ToLower(input.Username),
		PasswordHash: string(hash),
		IsActive:     true,
	}
	if err := cc.DB.Create(&account).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Username is already taken", err)
	}

	// Invite email is best-effort; provisioning has already succeeded.
	if client.Email != "" {
		if err := cc.Mailer.SendPortalInvite(client.Email, client.DisplayName(), account.Username); err != nil {
			cc.Logger.Printf("failed to send portal invite for client %d: %v", client.ID, err)
		}
	}

	response := utils.SuccessResponse(account)
	if generated {
		// Returned once at creation, never stored in clear
		response["temporary_password"] = password
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// UpdatePortalAccount enables or disables a client's portal access
func (cc *ClientController) UpdatePortalAccount(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	clientID := c.Params("id")

	var input struct {
		IsActive *bool `json:"is_active" validate:"required"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if input.IsActive == nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "is_active is required", nil)
	}

	var client models.Client
	if err := cc.DB.First(&client, "id = ?", clientID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Client not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch client", err)
	}

	if !cc.canAccess(user, &client) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	var account models.PortalAccount
	if err := cc.DB.Where("client_id = ?", client.ID).First(&account).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Portal account not found", nil)
	}

	if err := cc.DB.Model(&account).Update("is_active", *input.IsActive).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update portal account", err)
	}

	return c.JSON(utils.SuccessResponse(account))
}
