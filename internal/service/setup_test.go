package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/clientdash/internal/db"
	"github.com/clientdash/internal/secret"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.Migrate(gdb); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return gdb
}

func newTestBox(t *testing.T) *secret.Box {
	t.Helper()
	box, err := secret.NewBox("service-test-key")
	if err != nil {
		t.Fatalf("new box: %v", err)
	}
	return box
}

func fixedClock(value string) func() time.Time {
	ts, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return func() time.Time { return ts }
}

func seedWebsite(t *testing.T, gdb *gorm.DB, url string) *db.Website {
	t.Helper()
	svc := NewWebsiteService(gdb)
	client, err := svc.CreateClient(context.Background(), ClientInput{CompanyName: "Acme"})
	if err != nil {
		t.Fatalf("create client: %v", err)
	}
	website, err := svc.CreateWebsite(context.Background(), WebsiteInput{ClientID: client.ID, URL: url})
	if err != nil {
		t.Fatalf("create website: %v", err)
	}
	return website
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }
