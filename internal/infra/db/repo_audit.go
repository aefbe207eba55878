package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"quorumd/internal/domain"
	"quorumd/internal/infra/crypto"
)

// AuditRepo is the durable audit backend. Index assignment is serialized
// through a row lock on a single-row counter table so concurrent appends
// never produce gaps or duplicate indices.
type AuditRepo struct {
	db    *gorm.DB
	clock func() time.Time
}

func NewAuditRepo(gdb *gorm.DB, clock func() time.Time) *AuditRepo {
	if clock == nil {
		clock = time.Now
	}
	return &AuditRepo{db: gdb, clock: clock}
}

func (r *AuditRepo) Append(ctx context.Context, body domain.AuditBody) (domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuditEntry{}, err
	}
	var entry domain.AuditEntry
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec(
			"INSERT INTO audit_log_seq (id, seq) VALUES (1, 0) ON CONFLICT (id) DO NOTHING",
		).Error; err != nil {
			return err
		}
		var seq int64
		if err := tx.Raw(
			"SELECT seq FROM audit_log_seq WHERE id = 1 FOR UPDATE",
		).Scan(&seq).Error; err != nil {
			return err
		}
		index := seq + 1

		prevHash := crypto.ZeroHash()
		if index > 1 {
			var prev AuditEntryModel
			if err := tx.First(&prev, "entry_index = ?", index-1).Error; err != nil {
				return err
			}
			prevHash = prev.EntryHash
		}

		next, bodyJSON, err := newChainEntry(index, prevHash, r.clock(), body)
		if err != nil {
			return err
		}
		entry = next

		if err := tx.Create(&AuditEntryModel{
			UUID:      entry.UUID,
			Index:     entry.Index,
			BodyJSON:  bodyJSON,
			BodyHash:  entry.BodyHash,
			PrevHash:  entry.PrevHash,
			EntryHash: entry.EntryHash,
			CreatedAt: entry.Timestamp,
		}).Error; err != nil {
			return err
		}
		return tx.Exec("UPDATE audit_log_seq SET seq = ? WHERE id = 1", index).Error
	})
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("%w: append audit entry: %v", domain.ErrDependency, err)
	}
	return entry, nil
}

func (r *AuditRepo) Get(ctx context.Context, index int64) (domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return domain.AuditEntry{}, err
	}
	var m AuditEntryModel
	err := r.db.WithContext(ctx).First(&m, "entry_index = ?", index).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.AuditEntry{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.AuditEntry{}, fmt.Errorf("%w: load audit entry: %v", domain.ErrDependency, err)
	}
	return auditFromModel(m)
}

func (r *AuditRepo) Range(ctx context.Context, from, to int64) ([]domain.AuditEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if from < 1 || to < from {
		return nil, fmt.Errorf("%w: invalid audit range [%d, %d]", domain.ErrInvalidRequest, from, to)
	}
	var models []AuditEntryModel
	err := r.db.WithContext(ctx).
		Where("entry_index BETWEEN ? AND ?", from, to).
		Order("entry_index ASC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: load audit range: %v", domain.ErrDependency, err)
	}
	entries := make([]domain.AuditEntry, 0, len(models))
	for _, m := range models {
		entry, err := auditFromModel(m)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// newChainEntry stamps and hashes the next entry. The timestamp is
// truncated to microseconds before hashing: a postgres timestamp column
// retains no finer precision, and the reloaded entry must rehash to the
// stored value.
func newChainEntry(index int64, prevHash string, ts time.Time, body domain.AuditBody) (domain.AuditEntry, []byte, error) {
	bodyJSON, bodyHash, err := crypto.BodyHash(body)
	if err != nil {
		return domain.AuditEntry{}, nil, err
	}
	entry := domain.AuditEntry{
		UUID:      uuid.NewString(),
		Index:     index,
		Timestamp: ts.UTC().Truncate(time.Microsecond),
		Body:      body,
		BodyHash:  bodyHash,
		PrevHash:  prevHash,
	}
	entryHash, err := crypto.EntryHash(entry)
	if err != nil {
		return domain.AuditEntry{}, nil, err
	}
	entry.EntryHash = entryHash
	return entry, bodyJSON, nil
}

func auditFromModel(m AuditEntryModel) (domain.AuditEntry, error) {
	var body domain.AuditBody
	if err := json.Unmarshal(m.BodyJSON, &body); err != nil {
		return domain.AuditEntry{}, fmt.Errorf("decode audit body: %w", err)
	}
	return domain.AuditEntry{
		UUID:      m.UUID,
		Index:     m.Index,
		Timestamp: m.CreatedAt.UTC(),
		Body:      body,
		BodyHash:  m.BodyHash,
		PrevHash:  m.PrevHash,
		EntryHash: m.EntryHash,
	}, nil
}
