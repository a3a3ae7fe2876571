package models

import (
	"log"
	"os"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// SeedAdminUser creates the initial admin account on a fresh database so the
// first deployment can log in and create the rest of the staff.
func SeedAdminUser(db *gorm.DB) error {
	var count int64
	if err := db.Model(&User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	password := os.Getenv("ADMIN_INITIAL_PASSWORD")
	if password == "" {
		password = "changeme"
		log.Println("ADMIN_INITIAL_PASSWORD not set, seeding admin with default password")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := User{
		Username:     "admin",
		Email:        os.Getenv("ADMIN_EMAIL"),
		PasswordHash: string(hash),
		FirstName:    "System",
		LastName:     "Administrator",
		Role:         RoleAdmin,
		IsActive:     true,
	}
	return db.Create(&admin).Error
}
