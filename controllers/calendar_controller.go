package controller

import (
	"log"
	"time"

	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type CalendarController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewCalendarController(db *gorm.DB, logger *log.Logger) *CalendarController {
	return &CalendarController{DB: db, Logger: logger}
}

// CreateEvent puts an appointment on the caller's calendar
func (cc *CalendarController) CreateEvent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Title    string    `json:"title" validate:"required,max=200"`
		StartsAt time.Time `json:"starts_at" validate:"required"`
		EndsAt   time.Time `json:"ends_at" validate:"required"`
		Location string    `json:"location" validate:"omitempty,max=200"`
		Notes    string    `json:"notes"`
		ClientID *uint     `json:"client_id"`
		LeadID   *uint     `json:"lead_id"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if !input.EndsAt.After(input.StartsAt) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Event must end after it starts", nil)
	}

	event := models.CalendarEvent{
		OwnerID:  user.ID,
		Title:    input.Title,
		StartsAt: input.StartsAt,
		EndsAt:   input.EndsAt,
		Location: input.Location,
		Notes:    input.Notes,
		ClientID: input.ClientID,
		LeadID:   input.LeadID,
	}

	if err := cc.DB.Create(&event).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create event", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(event))
}

// GetEvents lists the caller's events in a time range (defaults to the
// coming week)
func (cc *CalendarController) GetEvents(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	from := time.Now().Truncate(24 * time.Hour)
	to := from.AddDate(0, 0, 7)
	if v := c.Query("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "from must be RFC3339", err)
		}
		from = parsed
	}
	if v := c.Query("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusBadRequest, "to must be RFC3339", err)
		}
		to = parsed
	}

	query := cc.DB.Where("starts_at < ? AND ends_at > ?", to, from)
	if !user.IsAdmin() {
		query = query.Where("owner_id = ?", user.ID)
	} else if owner := c.Query("owner_id"); owner != "" {
		query = query.Where("owner_id = ?", utils.ParseUint(owner))
	}

	var events []models.CalendarEvent
	if err := query.Order("starts_at ASC").Find(&events).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch events", err)
	}

	return c.JSON(utils.SuccessResponse(events))
}

// UpdateEvent applies a partial update to an event the caller owns
func (cc *CalendarController) UpdateEvent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	eventID := c.Params("id")

	var input struct {
		Title    *string    `json:"title" validate:"omitempty,max=200"`
		StartsAt *time.Time `json:"starts_at"`
		EndsAt   *time.Time `json:"ends_at"`
		Location *string    `json:"location" validate:"omitempty,max=200"`
		Notes    *string    `json:"notes"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var event models.CalendarEvent
	if err := cc.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Event not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch event", err)
	}

	if !user.IsAdmin() && event.OwnerID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	startsAt := event.StartsAt
	endsAt := event.EndsAt
	if input.StartsAt != nil {
		startsAt = *input.StartsAt
	}
	if input.EndsAt != nil {
		endsAt = *input.EndsAt
	}
	if !endsAt.After(startsAt) {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Event must end after it starts", nil)
	}

	updates := make(map[string]interface{})
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.StartsAt != nil {
		updates["starts_at"] = *input.StartsAt
	}
	if input.EndsAt != nil {
		updates["ends_at"] = *input.EndsAt
	}
	if input.Location != nil {
		updates["location"] = *input.Location
	}
	if input.Notes != nil {
		updates["notes"] = *input.Notes
	}

	if len(updates) > 0 {
		if err := cc.DB.Model(&event).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update event", err)
		}
	}

	return c.JSON(utils.SuccessResponse(event))
}

// DeleteEvent removes an event the caller owns
func (cc *CalendarController) DeleteEvent(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	eventID := c.Params("id")

	var event models.CalendarEvent
	if err := cc.DB.First(&event, "id = ?", eventID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Event not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch event", err)
	}

	if !user.IsAdmin() && event.OwnerID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if err := cc.DB.Delete(&event).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete event", err)
	}

	return c.JSON(fiber.Map{
		"message": "Event deleted",
	})
}
