package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"quorumd/internal/domain"
	"quorumd/internal/usecase"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := strings.TrimSpace(os.Getenv("POSTGRES_DSN_TEST"))
	if dsn == "" {
		t.Skip("POSTGRES_DSN_TEST not set")
	}
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	lockTestDB(t, gdb)
	store := &Store{DB: gdb}
	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	for _, table := range []string{"verification_sessions", "audit_entries", "audit_log_seq", "execution_attempts", "proposals"} {
		if err := gdb.Exec("DELETE FROM " + table).Error; err != nil {
			t.Fatalf("reset %s: %v", table, err)
		}
	}
	return gdb
}

func lockTestDB(t *testing.T, gdb *gorm.DB) {
	t.Helper()
	sqlDB, err := gdb.DB()
	if err != nil {
		t.Fatalf("get sql db: %v", err)
	}
	conn, err := sqlDB.Conn(context.Background())
	if err != nil {
		t.Fatalf("open db conn: %v", err)
	}
	if _, err := conn.ExecContext(context.Background(), "SELECT pg_advisory_lock(424242421)"); err != nil {
		_ = conn.Close()
		t.Fatalf("acquire db lock: %v", err)
	}
	t.Cleanup(func() {
		_, _ = conn.ExecContext(context.Background(), "SELECT pg_advisory_unlock(424242421)")
		_ = conn.Close()
	})
}

func TestSessionRepoMarkVerifiedOnce(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewSessionRepo(gdb, nil)
	ctx := context.Background()
	now := time.Now().UTC()

	session := domain.VerificationSession{
		ExchangeID: "11111111-1111-1111-1111-111111111111",
		Status:     domain.SessionRequestSent,
		Requestor:  "alice",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := repo.Create(ctx, session, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	const deliveries = 8
	var wg sync.WaitGroup
	results := make([]usecase.SessionTransition, deliveries)
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(slot int) {
			defer wg.Done()
			res, err := repo.MarkVerified(ctx, session.ExchangeID)
			if err != nil {
				t.Errorf("mark verified: %v", err)
				return
			}
			results[slot] = res
		}(i)
	}
	wg.Wait()

	transitioned := 0
	for _, res := range results {
		if res.Transitioned {
			transitioned++
		}
		if res.Session.Status != domain.SessionVerifiedAndLogged {
			t.Fatalf("session status = %s", res.Session.Status)
		}
	}
	if transitioned != 1 {
		t.Fatalf("transitions observed = %d, want 1", transitioned)
	}
}

func TestSessionRepoExpiredSessionIsGone(t *testing.T) {
	gdb := setupTestDB(t)
	now := time.Now().UTC()
	clock := func() time.Time { return now.Add(2 * time.Hour) }
	repo := NewSessionRepo(gdb, clock)
	ctx := context.Background()

	session := domain.VerificationSession{
		ExchangeID: "22222222-2222-2222-2222-222222222222",
		Status:     domain.SessionRequestSent,
		Requestor:  "alice",
		CreatedAt:  now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := repo.Create(ctx, session, time.Hour); err != nil {
		t.Fatalf("create: %v", err)
	}

	if _, err := repo.Get(ctx, session.ExchangeID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("get expired: err = %v, want ErrNotFound", err)
	}
	if _, err := repo.MarkVerified(ctx, session.ExchangeID); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("mark expired: err = %v, want ErrNotFound", err)
	}
}

func TestAuditRepoChainVerifiesAfterReload(t *testing.T) {
	gdb := setupTestDB(t)
	repo := NewAuditRepo(gdb, nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		body := domain.AuditBody{
			Kind:        domain.AuditEventProofVerified,
			ExchangeID:  "exch",
			ContentHash: "hash",
			Metadata:    map[string]string{"n": string(rune('a' + i))},
		}
		if _, err := repo.Append(ctx, body); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := usecase.VerifyAuditChain(ctx, repo, 1, 5); err != nil {
		t.Fatalf("chain verify after reload: %v", err)
	}
}
