package db

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New creates a new database connection based on configuration
func New(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		// Configure SQLite with WAL mode and busy timeout for better concurrency
		dialector = sqlite.Open(cfg.DSN + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)")
	case "postgres", "postgresql":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel(cfg.LogLevel)),
		NowFunc: func() time.Time {
			return time.Now().UTC()
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Configure connection pool
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite: Use single connection to avoid locking issues
		// WAL mode allows concurrent reads but only one writer
		sqlDB.SetMaxOpenConns(1)
		sqlDB.SetMaxIdleConns(1)
		slog.Info("Configured SQLite with WAL mode and single connection")
	} else {
		maxIdleConns := cfg.MaxIdleConns
		if maxIdleConns <= 0 {
			maxIdleConns = 10
		}
		maxOpenConns := cfg.MaxOpenConns
		if maxOpenConns <= 0 {
			maxOpenConns = 100
		}
		connMaxLifetime := cfg.ConnMaxLifetime
		if connMaxLifetime <= 0 {
			connMaxLifetime = 60 // Default 60 minutes
		}

		sqlDB.SetMaxIdleConns(maxIdleConns)
		sqlDB.SetMaxOpenConns(maxOpenConns)
		sqlDB.SetConnMaxLifetime(time.Duration(connMaxLifetime) * time.Minute)

		slog.Info("Configured PostgreSQL connection pool",
			"max_idle_conns", maxIdleConns,
			"max_open_conns", maxOpenConns,
			"conn_max_lifetime_min", connMaxLifetime)
	}

	return db, nil
}

// gormLogLevel maps the application log level to GORM's; SQL is only echoed at debug
func gormLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.Info
	case "silent":
		return logger.Silent
	case "error":
		return logger.Error
	default:
		return logger.Warn
	}
}

// AllModels lists every model managed by Migrate
func AllModels() []interface{} {
	return []interface{}{
		&models.User{},
		&models.Permission{},
		&models.UserPermission{},
		&models.Group{},
		&models.GroupMembership{},
		&models.PermissionRequest{},
		&models.Source{},
		&models.Article{},
		&models.ContactMessage{},
		&models.AuditLog{},
		&models.Job{},
	}
}

// Migrate runs database migrations for all models and seeds the capability catalog
func Migrate(db *gorm.DB) error {
	slog.Info("Running database migrations...")

	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := seedPermissions(db); err != nil {
		return fmt.Errorf("failed to seed permissions: %w", err)
	}

	if err := seedGroups(db); err != nil {
		return fmt.Errorf("failed to seed groups: %w", err)
	}

	return nil
}

// DefaultPermissions is the capability catalog, in catalog order
var DefaultPermissions = []models.Permission{
	{Codename: "add_article", Name: "Can add article", ResourceType: models.ResourceArticle},
	{Codename: "change_article", Name: "Can change article", ResourceType: models.ResourceArticle},
	{Codename: "delete_article", Name: "Can delete article", ResourceType: models.ResourceArticle},
	{Codename: "view_article", Name: "Can view article", ResourceType: models.ResourceArticle},
	{Codename: "edit_title", Name: "Can edit article titles", ResourceType: models.ResourceArticle},
	{Codename: "add_source", Name: "Can add source", ResourceType: models.ResourceSource},
	{Codename: "change_source", Name: "Can change source", ResourceType: models.ResourceSource},
	{Codename: "delete_source", Name: "Can delete source", ResourceType: models.ResourceSource},
	{Codename: "view_source", Name: "Can view source", ResourceType: models.ResourceSource},
	{Codename: "add_contactmessage", Name: "Can add contact message", ResourceType: models.ResourceContactMessage},
	{Codename: "change_contactmessage", Name: "Can change contact message", ResourceType: models.ResourceContactMessage},
	{Codename: "delete_contactmessage", Name: "Can delete contact message", ResourceType: models.ResourceContactMessage},
	{Codename: "view_contactmessage", Name: "Can view contact message", ResourceType: models.ResourceContactMessage},
}

// seedPermissions creates catalog entries that don't exist yet
func seedPermissions(db *gorm.DB) error {
	for _, perm := range DefaultPermissions {
		var existing models.Permission
		result := db.Where("resource_type = ? AND codename = ?", perm.ResourceType, perm.Codename).First(&existing)
		if result.Error == gorm.ErrRecordNotFound {
			p := perm
			if err := db.Create(&p).Error; err != nil {
				return err
			}
			slog.Debug("Created permission", "codename", perm.Codename, "resource_type", perm.ResourceType)
		} else if result.Error != nil {
			return result.Error
		}
	}
	return nil
}

// seedGroups creates the default groups with their capabilities
func seedGroups(db *gorm.DB) error {
	defaultGroups := map[string][]string{
		models.GroupSeniorEditors: {models.PermChangeArticle, models.PermEditTitle},
	}

	for name, codenames := range defaultGroups {
		var existing models.Group
		result := db.Where("name = ?", name).First(&existing)
		if result.Error == nil {
			continue
		}
		if result.Error != gorm.ErrRecordNotFound {
			return result.Error
		}

		var perms []models.Permission
		if err := db.Where("resource_type = ? AND codename IN ?", models.ResourceArticle, codenames).
			Find(&perms).Error; err != nil {
			return err
		}

		group := models.Group{Name: name, Permissions: perms}
		if err := db.Omit("Permissions.*").Create(&group).Error; err != nil {
			return err
		}
		slog.Info("Created default group", "group", name)
	}

	return nil
}
