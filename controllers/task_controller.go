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

type TaskController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewTaskController(db *gorm.DB, logger *log.Logger) *TaskController {
	return &TaskController{DB: db, Logger: logger}
}

// CreateTask creates a follow-up task, defaulting the assignee to the caller
func (tc *TaskController) CreateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Title        string     `json:"title" validate:"required,max=200"`
		Description  string     `json:"description"`
		AssignedToID uint       `json:"assigned_to_id"`
		LeadID       *uint      `json:"lead_id"`
		ClientID     *uint      `json:"client_id"`
		DueAt        *time.Time `json:"due_at"`
		Priority     string     `json:"priority" validate:"omitempty,oneof=low normal high"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	assignedTo := input.AssignedToID
	if assignedTo == 0 {
		assignedTo = user.ID
	}
	if assignedTo != user.ID && !user.IsAdmin() && user.Role != models.RoleTeamLeader {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	priority := input.Priority
	if priority == "" {
		priority = "normal"
	}

	task := models.Task{
		Title:        input.Title,
		Description:  input.Description,
		AssignedToID: assignedTo,
		LeadID:       input.LeadID,
		ClientID:     input.ClientID,
		DueAt:        input.DueAt,
		Priority:     priority,
	}

	if err := tc.DB.Create(&task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create task", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(task))
}

// GetTasks lists tasks for the caller (admins may list anyone's)
func (tc *TaskController) GetTasks(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	page, _ := strconv.Atoi(c.Query("page", "1"))
	limit, _ := strconv.Atoi(c.Query("limit", "20"))
	if limit > 100 {
		limit = 100
	}
	offset := (page - 1) * limit

	query := tc.DB.Model(&models.Task{})
	if !user.IsAdmin() {
		query = query.Where("assigned_to_id = ?", user.ID)
	} else if assignee := c.Query("assigned_to_id"); assignee != "" {
		query = query.Where("assigned_to_id = ?", utils.ParseUint(assignee))
	}

	switch c.Query("filter") {
	case "open":
		query = query.Where("completed = ?", false)
	case "completed":
		query = query.Where("completed = ?", true)
	case "overdue":
		query = query.Where("completed = ? AND due_at < ?", false, time.Now())
	case "today":
		start := time.Now().Truncate(24 * time.Hour)
		query = query.Where("completed = ? AND due_at >= ? AND due_at < ?", false, start, start.Add(24*time.Hour))
	}

	var total int64
	query.Count(&total)

	var tasks []models.Task
	if err := query.Offset(offset).Limit(limit).Order("due_at ASC").Find(&tasks).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch tasks", err)
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  tasks,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

// UpdateTask applies a partial update to a task
func (tc *TaskController) UpdateTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := c.Params("id")

	var input struct {
		Title       *string    `json:"title" validate:"omitempty,max=200"`
		Description *string    `json:"description"`
		DueAt       *time.Time `json:"due_at"`
		Priority    *string    `json:"priority" validate:"omitempty,oneof=low normal high"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var task models.Task
	if err := tc.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", err)
	}

	if !user.IsAdmin() && task.AssignedToID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	updates := make(map[string]interface{})
	if input.Title != nil {
		updates["title"] = *input.Title
	}
	if input.Description != nil {
		updates["description"] = *input.Description
	}
	if input.DueAt != nil {
		updates["due_at"] = *input.DueAt
		// A moved deadline earns a fresh reminder
		updates["reminder_sent"] = false
	}
	if input.Priority != nil {
		updates["priority"] = *input.Priority
	}

	if len(updates) > 0 {
		if err := tc.DB.Model(&task).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update task", err)
		}
	}

	return c.JSON(utils.SuccessResponse(task))
}

// CompleteTask marks a task done
func (tc *TaskController) CompleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := c.Params("id")

	var task models.Task
	if err := tc.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", err)
	}

	if !user.IsAdmin() && task.AssignedToID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	now := time.Now()
	if err := tc.DB.Model(&task).Updates(map[string]interface{}{
		"completed":    true,
		"completed_at": &now,
	}).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to complete task", err)
	}

	return c.JSON(utils.SuccessResponse(task))
}

// DeleteTask removes a task
func (tc *TaskController) DeleteTask(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	taskID := c.Params("id")

	var task models.Task
	if err := tc.DB.First(&task, "id = ?", taskID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Task not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch task", err)
	}

	if !user.IsAdmin() && task.AssignedToID != user.ID {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Access denied", nil)
	}

	if err := tc.DB.Delete(&task).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete task", err)
	}

	return c.JSON(fiber.Map{
		"message": "Task deleted",
	})
}
