package rbac_test

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/brainwash-news/newsdesk/internal/config"
	"github.com/brainwash-news/newsdesk/internal/db"
	"github.com/brainwash-news/newsdesk/internal/rbac"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// setupEnforcer uses db.New so policies go through the single-connection sqlite pool.
func setupEnforcer(t *testing.T) *gorm.DB {
	t.Helper()
	database, err := db.New(config.DatabaseConfig{
		Driver:   "sqlite",
		DSN:      filepath.Join(t.TempDir(), "rbac.db"),
		LogLevel: "silent",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := database.DB(); err == nil {
			sqlDB.Close()
		}
	})
	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		t.Fatalf("init enforcer: %v", err)
	}
	return database
}

// within fails the test if fn does not return in time
func within(t *testing.T, d time.Duration, fn func() error) error {
	t.Helper()
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-time.After(d):
		t.Fatalf("call did not return within %s", d)
		return nil
	}
}

func TestMakeAndRevokeAdmin(t *testing.T) {
	setupEnforcer(t)
	alice := uuid.New()
	bob := uuid.New()

	if err := within(t, 5*time.Second, func() error { return rbac.MakeAdmin(alice) }); err != nil {
		t.Fatalf("make admin: %v", err)
	}

	if ok, _ := rbac.IsAdmin(alice); !ok {
		t.Error("expected alice to be admin")
	}
	if ok, _ := rbac.IsAdmin(bob); ok {
		t.Error("expected bob not to be admin")
	}

	admins, err := rbac.GetAllAdminUserIDs()
	if err != nil {
		t.Fatalf("list admins: %v", err)
	}
	if !admins[alice] || len(admins) != 1 {
		t.Errorf("unexpected admin set: %v", admins)
	}

	if err := within(t, 5*time.Second, func() error { return rbac.RevokeAdmin(alice) }); err != nil {
		t.Fatalf("revoke admin: %v", err)
	}
	if ok, _ := rbac.IsAdmin(alice); ok {
		t.Error("expected alice to no longer be admin")
	}
}

func TestPoliciesSurviveReload(t *testing.T) {
	database := setupEnforcer(t)
	alice := uuid.New()
	if err := within(t, 5*time.Second, func() error { return rbac.MakeAdmin(alice) }); err != nil {
		t.Fatalf("make admin: %v", err)
	}

	// A fresh enforcer over the same database sees the saved policy
	if err := rbac.InitEnforcer(database, slog.Default()); err != nil {
		t.Fatalf("re-init enforcer: %v", err)
	}
	if ok, _ := rbac.IsAdmin(alice); !ok {
		t.Error("expected admin policy to be loaded from the database")
	}
}
