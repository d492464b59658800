package db

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const (
	// DriverSQLite 使用本地 sqlite 文件。
	DriverSQLite = "sqlite"
	// DriverPostgres 使用 PostgreSQL（生产环境）。
	DriverPostgres = "postgres"

	defaultSQLitePath = "clientdash.db"
)

// Models 返回需要自动迁移的全部模型。
func Models() []any {
	return []any{
		&Client{},
		&Website{},
		&DataSource{},
		&SyncRun{},
		&SearchMetric{},
		&SearchQuery{},
		&SearchPage{},
		&LLMMetric{},
		&LLMQuery{},
		&CitationEvent{},
		&Keyword{},
		&Recommendation{},
	}
}

// Open 根据驱动名称打开数据库连接，不执行迁移。
// sqlite 的 dsn 为空时回退到 clientdash.db。
func Open(driver, dsn string, level logger.LogLevel) (*gorm.DB, error) {
	cfg := &gorm.Config{Logger: logger.Default.LogMode(level)}

	switch strings.ToLower(strings.TrimSpace(driver)) {
	case "", DriverSQLite:
		path := strings.TrimSpace(dsn)
		if path == "" {
			path = defaultSQLitePath
		}
		if !strings.HasPrefix(path, "file:") {
			if err := ensureParentDir(path); err != nil {
				return nil, err
			}
		}
		return gorm.Open(sqlite.Open(path), cfg)
	case DriverPostgres:
		if strings.TrimSpace(dsn) == "" {
			return nil, errors.New("postgres dsn is required")
		}
		return gorm.Open(postgres.Open(dsn), cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}
}

// Migrate 为全部模型执行自动迁移。
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}

func ensureParentDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}

	info, err := os.Stat(dir)
	if err == nil {
		if !info.IsDir() {
			return errors.New("database path parent is not a directory")
		}
		return nil
	}

	if os.IsNotExist(err) {
		return os.MkdirAll(dir, 0o755)
	}

	return err
}
