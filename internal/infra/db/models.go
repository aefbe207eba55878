package db

import "time"

type ProposalModel struct {
	ID            string    `gorm:"type:uuid;primaryKey"`
	Action        string    `gorm:"not null"`
	PayloadJSON   []byte    `gorm:"type:jsonb;not null"`
	Requestor     string    `gorm:"not null"`
	ApprovalsJSON []byte    `gorm:"type:jsonb;not null"`
	Status        string    `gorm:"index;not null"`
	Version       int64     `gorm:"not null"`
	CreatedAt     time.Time `gorm:"not null"`
	ExpiresAt     time.Time `gorm:"index;not null"`
}

func (ProposalModel) TableName() string {
	return "proposals"
}

type SessionModel struct {
	ExchangeID string    `gorm:"type:uuid;primaryKey"`
	Status     string    `gorm:"not null"`
	Requestor  string    `gorm:"not null"`
	CreatedAt  time.Time `gorm:"not null"`
	ExpiresAt  time.Time `gorm:"index;not null"`
}

func (SessionModel) TableName() string {
	return "verification_sessions"
}

type AuditEntryModel struct {
	UUID      string    `gorm:"type:uuid;primaryKey"`
	Index     int64     `gorm:"column:entry_index;uniqueIndex;not null"`
	BodyJSON  []byte    `gorm:"type:jsonb;not null"`
	BodyHash  string    `gorm:"not null"`
	PrevHash  string    `gorm:"not null"`
	EntryHash string    `gorm:"not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (AuditEntryModel) TableName() string {
	return "audit_entries"
}

type ExecutionAttemptModel struct {
	ID         int64     `gorm:"primaryKey"`
	ProposalID string    `gorm:"type:uuid;index;not null"`
	Action     string    `gorm:"not null"`
	Status     string    `gorm:"not null"`
	ErrorCode  *string   `gorm:""`
	CreatedAt  time.Time `gorm:"not null"`
}

func (ExecutionAttemptModel) TableName() string {
	return "execution_attempts"
}
