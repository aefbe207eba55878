package db

import (
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var errDBUnavailable = errors.New("db unavailable")

type Store struct {
	DB *gorm.DB
}

func NewStore(dsn string) (*Store, error) {
	if dsn == "" {
		return &Store{DB: nil}, nil
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{DB: gdb}, nil
}

func (s *Store) Migrate() error {
	if s.DB == nil {
		return errDBUnavailable
	}
	if err := s.DB.AutoMigrate(&ProposalModel{}, &SessionModel{}, &AuditEntryModel{}, &ExecutionAttemptModel{}); err != nil {
		return err
	}
	// Single-row counter backing serialized audit index assignment.
	return s.DB.Exec(
		"CREATE TABLE IF NOT EXISTS audit_log_seq (id INT PRIMARY KEY, seq BIGINT NOT NULL)",
	).Error
}

func stringPtrIfNotEmpty(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

func stringValue(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
