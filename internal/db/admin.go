package db

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/brainwash-news/newsdesk/internal/rbac"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// CreateDefaultAdmin creates a default admin user if ADMIN_USERNAME and ADMIN_PASSWORD are set
// and no users exist in the database
func CreateDefaultAdmin(db *gorm.DB) error {
	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	email := os.Getenv("ADMIN_EMAIL")

	// If no admin credentials provided, skip
	if username == "" || password == "" {
		slog.Info("No ADMIN_USERNAME or ADMIN_PASSWORD set, skipping default admin creation")
		return nil
	}

	// Check if any users exist
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to count users: %w", err)
	}

	// If users already exist, skip
	if count > 0 {
		slog.Info("Users already exist, skipping default admin creation")
		return nil
	}

	user, err := CreateAdmin(db, username, email, password)
	if err != nil {
		return err
	}

	slog.Info("Default admin user created", "username", user.Username, "email", user.Email)
	return nil
}

// CreateAdmin creates a user and grants it the admin role
func CreateAdmin(db *gorm.DB, username, email, password string) (*models.User, error) {
	if email == "" {
		email = fmt.Sprintf("%s@newsdesk.local", username)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := models.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hashedPassword),
	}

	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("failed to create admin user: %w", err)
	}

	// Initialize RBAC enforcer if not already done
	if rbac.GetEnforcer() == nil {
		if err := rbac.InitEnforcer(db, slog.Default()); err != nil {
			return nil, fmt.Errorf("failed to initialize RBAC: %w", err)
		}
	}

	if err := rbac.MakeAdmin(user.ID); err != nil {
		return nil, fmt.Errorf("failed to grant admin role: %w", err)
	}

	return &user, nil
}
