package settings

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

type settingRow struct {
	Scope string `gorm:"primaryKey;size:16"`
	Name  string `gorm:"primaryKey;size:64"`
	Value string
}

func (settingRow) TableName() string { return "settings" }

// SQLStore keeps settings in a SQLite table, one row per scope and key.
type SQLStore struct {
	db *gorm.DB
}

func OpenSQL(path string) (*SQLStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open settings db: %w", err)
	}

	if err := db.AutoMigrate(&settingRow{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			sqlDB.Close()
		}
		return nil, fmt.Errorf("migrate settings table: %w", err)
	}

	return &SQLStore{db: db}, nil
}

func (s *SQLStore) Get(ctx context.Context, scope Scope, keys ...string) (map[string]string, error) {
	if err := checkScope(scope); err != nil {
		return nil, err
	}

	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var rows []settingRow
	err := s.db.WithContext(ctx).
		Where("scope = ? AND name IN ?", string(scope), keys).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("read %s settings: %w", scope, err)
	}

	for _, r := range rows {
		out[r.Name] = r.Value
	}
	return out, nil
}

func (s *SQLStore) Set(ctx context.Context, scope Scope, values map[string]string) error {
	if err := checkScope(scope); err != nil {
		return err
	}
	if len(values) == 0 {
		return nil
	}

	rows := make([]settingRow, 0, len(values))
	for k, v := range values {
		rows = append(rows, settingRow{Scope: string(scope), Name: k, Value: v})
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "scope"}, {Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("write %s settings: %w", scope, err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
