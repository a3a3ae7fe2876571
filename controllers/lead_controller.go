package controller

import (
	"log"
	"strconv"
	"strings"

	"brokercrm/models"
	"brokercrm/utils"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type LeadController struct {
	DB     *gorm.DB
	Logger *log.Logger
	Syncer *utils.LeadSyncer
}

func NewLeadController(db *gorm.DB, logger *log.Logger) *LeadController {
	return &LeadController{
		DB:     db,
		Logger: logger,
		Syncer: utils.NewLeadSyncer(db, logger),
	}
}

// canAccess applies the ownership rule: admins see everything, everyone else
// only leads assigned to them.
func (lc *LeadController) canAccess(user *models.User, lead *models.Lead) bool {
	return user.IsAdmin() || lead.AssignedAgentID == user.ID
}

// CreateLead creates a new lead
func (lc *LeadController) CreateLead(c *fiber.Ctx) error {
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
		Source          string `json:"source" validate:"omitempty,max=50"`
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

	// Non-admins can only assign leads to themselves
	assignedTo := input.AssignedAgentID
	if assignedTo == 0 || !user.IsAdmin() {
		assignedTo = user.ID
	}

	var existing models.Lead
	if err := lc.DB.Where("email = ?", strings.ToLower(input.Email)).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead with this email already exists", nil)
	}

	lead := models.Lead{
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
		Source:          input.Source,
		Notes:           input.Notes,
		Status:          models.LeadStatusNew,
		AssignedAgentID: assignedTo,
	}

	if err := lc.DB.Create(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create lead", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(lead))
}

// GetLeads returns paginated leads with filters
func (lc *LeadController) GetLeads(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := lc.DB.Model(&models.Lead{})
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
		query = query.Where("lower(email) LIKE ? OR lower(first_name) LIKE ? OR lower(last_name) LIKE ?", like, like, like)
	}

	var total int64
	query.Count(&total)

	var leads []models.Lead
	if err := query.Offset(offset).Limit(limit).Order("created_at DESC").Find(&leads).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch leads", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  leads,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// GetLead returns a single lead by ID
func (lc *LeadController) GetLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.Preload("Client").First(&lead, "id = ?", leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	if !lc.canAccess(user, &lead) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	return c.JSON(utils.SuccessResponse(lead))
}

// LeadUpdateInput uses pointer fields so an absent field can be told apart
// from an explicit empty value: only fields present in the payload count as
// changed.
type LeadUpdateInput struct {
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
	Source          *string `json:"source" validate:"omitempty,max=50"`
	Status          *string `json:"status" validate:"omitempty,oneof=new contacted quoted converted lost"`
	Notes           *string `json:"notes"`
	AssignedAgentID *uint   `json:"assigned_agent_id"`
}

// changedFields flattens the non-nil pointers into a column→value map.
func (in *LeadUpdateInput) changedFields() map[string]interface{} {
	changed := make(map[string]interface{})
	set := func(name string, v *string) {
		if v != nil {
			changed[name] = *v
		}
	}
	set("first_name", in.FirstName)
	set("last_name", in.LastName)
	set("phone", in.Phone)
	set("secondary_phone", in.SecondaryPhone)
	set("address_line1", in.AddressLine1)
	set("address_line2", in.AddressLine2)
	set("city", in.City)
	set("state", in.State)
	set("postal_code", in.PostalCode)
	set("source", in.Source)
	set("status", in.Status)
	set("notes", in.Notes)
	if in.Email != nil {
		changed["email"] = strings.ToLower(*in.Email)
	}
	if in.AssignedAgentID != nil {
		changed["assigned_agent_id"] = *in.AssignedAgentID
	}
	return changed
}

// UpdateLead applies a partial update and then propagates the mirrored field
// subset to the linked client record, if any. Registered for both PATCH and
// PUT. A sync failure never fails the lead update; it is attached to the
// response as a warning.
func (lc *LeadController) UpdateLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var input LeadUpdateInput
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var lead models.Lead
	if err := lc.DB.First(&lead, "id = ?", leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	if !lc.canAccess(user, &lead) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	// Only admins may reassign
	if input.AssignedAgentID != nil && !user.IsAdmin() {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if input.Email != nil && strings.ToLower(*input.Email) != lead.Email {
		var existing models.Lead
		if err := lc.DB.Where("email = ? AND id <> ?", strings.ToLower(*input.Email), lead.ID).First(&existing).Error; err == nil {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Lead with this email already exists", nil)
		}
	}

	changed := input.changedFields()
	if len(changed) == 0 {
		return c.JSON(utils.SuccessResponse(lead))
	}

	if err := lc.DB.Model(&lead).Updates(changed).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update lead", err)
	}

	// The lead write above has committed; client propagation is best-effort.
	response := utils.SuccessResponse(lead)
	if err := lc.Syncer.SyncLeadToClient(&lead, changed); err != nil {
		response["sync_warning"] = "lead updated, but linked client record was not: " + err.Error()
	}

	return c.JSON(response)
}

// DeleteLead removes a lead
func (lc *LeadController) DeleteLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.First(&lead, "id = ?", leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	if !lc.canAccess(user, &lead) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if err := lc.DB.Delete(&lead).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete lead", err)
	}

	return c.JSON(fiber.Map{
		"message": "Lead deleted",
	})
}

// ConvertLead creates a client record from the lead and links the two. The
// synchronizer itself never creates clients; conversion is the only path
// that establishes the link.
func (lc *LeadController) ConvertLead(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	leadID := c.Params("id")

	var lead models.Lead
	if err := lc.DB.First(&lead, "id = ?", leadID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Lead not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lead", err)
	}

	if !lc.canAccess(user, &lead) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if lead.ClientID != nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Lead is already converted", nil)
	}

	client := models.Client{
		FirstName:       lead.FirstName,
		LastName:        lead.LastName,
		Email:           lead.Email,
		Phone:           lead.Phone,
		SecondaryPhone:  lead.SecondaryPhone,
		AddressLine1:    lead.AddressLine1,
		AddressLine2:    lead.AddressLine2,
		City:            lead.City,
		State:           lead.State,
		PostalCode:      lead.PostalCode,
		Status:          "active",
		AssignedAgentID: lead.AssignedAgentID,
	}

	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&client).Error; err != nil {
			return err
		}
		return tx.Model(&lead).Updates(map[string]interface{}{
			"client_id": client.ID,
			"status":    models.LeadStatusConverted,
		}).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to convert lead", err)
	}

	lc.Logger.Printf("converted lead %d to client %d", lead.ID, client.ID)
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(client))
}
