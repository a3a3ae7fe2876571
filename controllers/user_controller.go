package controller

import (
	"log"
	"strings"

	"brokercrm/models"
	"brokercrm/utils"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// UserController is the admin-only staff account management surface.
type UserController struct {
	DB     *gorm.DB
	Logger *log.Logger
}

func NewUserController(db *gorm.DB, logger *log.Logger) *UserController {
	return &UserController{DB: db, Logger: logger}
}

// CreateUser creates a staff account
func (uc *UserController) CreateUser(c *fiber.Ctx) error {
	var input struct {
		Username  string `json:"username" validate:"required,min=3,max=100"`
		Email     string `json:"email" validate:"omitempty,email"`
		Password  string `json:"password" validate:"required,min=8"`
		FirstName string `json:"first_name" validate:"omitempty,max=100"`
		LastName  string `json:"last_name" validate:"omitempty,max=100"`
		Phone     string `json:"phone" validate:"omitempty,max=30"`
		Role      string `json:"role" validate:"required,oneof=admin agent team_leader support"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var existing models.User
	if err := uc.DB.Where("username = ?", strings.ToLower(input.Username)).First(&existing).Error; err == nil {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Username is already taken", nil)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
	}

	user := models.User{
		Username:     strings.ToLower(input.Username),
		Email:        input.Email,
		PasswordHash: string(hash),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Phone:        input.Phone,
		Role:         input.Role,
		IsActive:     true,
	}

	if err := uc.DB.Create(&user).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create user", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(user))
}

// GetUsers lists staff accounts
func (uc *UserController) GetUsers(c *fiber.Ctx) error {
	query := uc.DB.Model(&models.User{})
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if active := c.Query("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}

	var users []models.User
	if err := query.Order("username ASC").Find(&users).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch users", err)
	}

	return c.JSON(utils.SuccessResponse(users))
}

// UpdateUser changes role, active flag, profile fields or resets the password
func (uc *UserController) UpdateUser(c *fiber.Ctx) error {
	userID := c.Params("id")

	var input struct {
		Email     *string `json:"email" validate:"omitempty,email"`
		FirstName *string `json:"first_name" validate:"omitempty,max=100"`
		LastName  *string `json:"last_name" validate:"omitempty,max=100"`
		Phone     *string `json:"phone" validate:"omitempty,max=30"`
		Role      *string `json:"role" validate:"omitempty,oneof=admin agent team_leader support"`
		IsActive  *bool   `json:"is_active"`
		Password  *string `json:"password" validate:"omitempty,min=8"`
	}

	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}

	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var user models.User
	if err := uc.DB.First(&user, "id = ?", userID).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch user", err)
	}

	updates := make(map[string]interface{})
	if input.Email != nil {
		updates["email"] = *input.Email
	}
	if input.FirstName != nil {
		updates["first_name"] = *input.FirstName
	}
	if input.LastName != nil {
		updates["last_name"] = *input.LastName
	}
	if input.Phone != nil {
		updates["phone"] = *input.Phone
	}
	if input.Role != nil {
		updates["role"] = *input.Role
	}
	if input.IsActive != nil {
		updates["is_active"] = *input.IsActive
	}
	if input.Password != nil {
		hash, err := bcrypt.GenerateFromPassword([]byte(*input.Password), bcrypt.DefaultCost)
		if err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to hash password", err)
		}
		updates["password_hash"] = string(hash)
	}

	if len(updates) > 0 {
		if err := uc.DB.Model(&user).Updates(updates).Error; err != nil {
			return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update user", err)
		}
	}

	// Deactivation kills any live sessions for the account
	if input.IsActive != nil && !*input.IsActive {
		uc.DB.Delete(&models.Session{}, "user_id = ?", user.ID)
	}

	return c.JSON(utils.SuccessResponse(user))
}
