package service

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/db"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// testDB opens a migrated, seeded SQLite database in a temp dir.
func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	database, err := db.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "test.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.Migrate(database); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return database
}

// createTestUser inserts a user and returns its ID.
func createTestUser(t *testing.T, database *gorm.DB, username string) uuid.UUID {
	t.Helper()
	user := models.User{Username: username, Email: username + "@test.com"}
	if err := database.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return user.ID
}

// joinSeniorEditors adds the user to the seeded "Senior editors" group.
func joinSeniorEditors(t *testing.T, groups *GroupService, userID uuid.UUID) {
	t.Helper()
	if err := groups.AddMember(context.Background(), models.GroupSeniorEditors, userID); err != nil {
		t.Fatalf("add member: %v", err)
	}
}
