package db_test

import (
	"testing"
	"time"

	"github.com/quotaglass/quotaglass/internal/db"
	"github.com/quotaglass/quotaglass/internal/usage"
)

func openTestDB(t *testing.T) *db.DB {
	t.Helper()
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func i64(v int64) *int64     { return &v }
func f64(v float64) *float64 { return &v }
func iptr(v int) *int        { return &v }

func TestMigrate(t *testing.T) {
	store, err := db.Open(":memory:")
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	if err := store.Migrate(); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	// Migrate is idempotent.
	if err := store.Migrate(); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}
}

func TestUsageSnapshotRoundTrip(t *testing.T) {
	store := openTestDB(t)

	now := time.Now().Truncate(time.Millisecond).UTC()
	reset := now.Add(90 * time.Minute)
	s := usage.Status{
		UpdatedAt:            now,
		ContextUsedTokens:    i64(50_000),
		ContextLimitTokens:   i64(200_000),
		PrimaryUsedPercent:   f64(42),
		PrimaryWindowMinutes: iptr(300),
		PrimaryResetAt:       &reset,
	}

	if err := store.InsertUsageSnapshot(db.FromStatus(s)); err != nil {
		t.Fatalf("insert: %v", err)
	}

	latest, err := store.GetLatestUsageSnapshot()
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest == nil {
		t.Fatal("expected a snapshot")
	}
	got := latest.Status()
	if !got.Equal(s) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, s)
	}
	// Absent fields stay absent through storage.
	if got.SecondaryUsedPercent != nil || got.SecondaryResetAt != nil {
		t.Error("expected seven-day fields to stay nil")
	}
}

func TestGetLatestEmpty(t *testing.T) {
	store := openTestDB(t)

	latest, err := store.GetLatestUsageSnapshot()
	if err != nil {
		t.Fatalf("get latest: %v", err)
	}
	if latest != nil {
		t.Errorf("expected nil on empty table, got %+v", latest)
	}
}

func TestListAndPruneUsageSnapshots(t *testing.T) {
	store := openTestDB(t)

	base := time.Now().Add(-3 * time.Hour).Truncate(time.Millisecond)
	for i := 0; i < 5; i++ {
		s := usage.Status{UpdatedAt: base.Add(time.Duration(i) * time.Hour / 2), PrimaryUsedPercent: f64(float64(i * 10))}
		if err := store.InsertUsageSnapshot(db.FromStatus(s)); err != nil {
			t.Fatal(err)
		}
	}

	snaps, err := store.ListUsageSnapshots(3)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(snaps) != 3 {
		t.Fatalf("expected 3 snapshots, got %d", len(snaps))
	}
	if snaps[0].TsMs < snaps[1].TsMs {
		t.Error("expected newest first")
	}

	if err := store.PruneUsageSnapshots(base.Add(time.Hour)); err != nil {
		t.Fatalf("prune: %v", err)
	}
	snaps, _ = store.ListUsageSnapshots(10)
	if len(snaps) != 3 {
		t.Errorf("expected 3 snapshots after prune, got %d", len(snaps))
	}
}

func TestAccountCRUD(t *testing.T) {
	store := openTestDB(t)

	acc, err := store.CreateAccount("alice", "hashed-pw")
	if err != nil {
		t.Fatalf("CreateAccount: %v", err)
	}
	if acc.Username != "alice" {
		t.Errorf("expected username alice, got %s", acc.Username)
	}
	if acc.ID == "" {
		t.Error("expected non-empty ID")
	}

	got, err := store.GetAccountByUsername("alice")
	if err != nil {
		t.Fatalf("GetAccountByUsername: %v", err)
	}
	if got == nil || got.ID != acc.ID {
		t.Errorf("lookup mismatch: %+v", got)
	}

	missing, err := store.GetAccountByUsername("nobody")
	if err != nil {
		t.Fatalf("GetAccountByUsername(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown account, got %+v", missing)
	}

	if err := store.UpdateAccountPassword("alice", "new-hash"); err != nil {
		t.Fatalf("UpdateAccountPassword: %v", err)
	}
	got, _ = store.GetAccountByUsername("alice")
	if got.PasswordHash != "new-hash" {
		t.Error("password not updated")
	}
	if err := store.UpdateAccountPassword("nobody", "x"); err == nil {
		t.Error("expected error for unknown account")
	}

	has, err := store.HasAnyAccount()
	if err != nil {
		t.Fatalf("HasAnyAccount: %v", err)
	}
	if !has {
		t.Error("expected HasAnyAccount to return true")
	}

	if _, err := store.CreateAccount("alice", "other"); err == nil {
		t.Error("expected unique constraint on username")
	}
}

func TestRefreshTokenCRUD(t *testing.T) {
	store := openTestDB(t)

	acc, _ := store.CreateAccount("bob", "pw")
	now := time.Now().Truncate(time.Millisecond)
	exp := now.Add(7 * 24 * time.Hour)

	err := store.SaveRefreshToken(db.RefreshToken{
		Token: "tok123", AccountID: acc.ID, ExpiresAt: exp, CreatedAt: now,
	})
	if err != nil {
		t.Fatalf("SaveRefreshToken: %v", err)
	}

	rt, err := store.GetRefreshToken("tok123")
	if err != nil {
		t.Fatalf("GetRefreshToken: %v", err)
	}
	if rt == nil || rt.AccountID != acc.ID {
		t.Errorf("token mismatch: %+v", rt)
	}

	missing, err := store.GetRefreshToken("notexist")
	if err != nil {
		t.Fatalf("GetRefreshToken(missing): %v", err)
	}
	if missing != nil {
		t.Errorf("expected nil for unknown token, got %+v", missing)
	}

	if err := store.DeleteRefreshToken("tok123"); err != nil {
		t.Fatalf("DeleteRefreshToken: %v", err)
	}
	if rt, _ := store.GetRefreshToken("tok123"); rt != nil {
		t.Error("expected token deleted")
	}

	store.SaveRefreshToken(db.RefreshToken{Token: "old", AccountID: acc.ID, ExpiresAt: now.Add(-time.Hour), CreatedAt: now})
	store.SaveRefreshToken(db.RefreshToken{Token: "fresh", AccountID: acc.ID, ExpiresAt: exp, CreatedAt: now})
	if err := store.DeleteExpiredRefreshTokens(now); err != nil {
		t.Fatalf("DeleteExpiredRefreshTokens: %v", err)
	}
	if rt, _ := store.GetRefreshToken("old"); rt != nil {
		t.Error("expected expired token deleted")
	}
	if rt, _ := store.GetRefreshToken("fresh"); rt == nil {
		t.Error("expected fresh token kept")
	}
}

func TestMetadata(t *testing.T) {
	store := openTestDB(t)

	if err := store.SetMeta("schema_note", "v1"); err != nil {
		t.Fatalf("SetMeta: %v", err)
	}
	v, err := store.GetMeta("schema_note")
	if err != nil {
		t.Fatalf("GetMeta: %v", err)
	}
	if v != "v1" {
		t.Errorf("value: got %q", v)
	}
	if v, _ := store.GetMeta("missing"); v != "" {
		t.Errorf("expected empty for missing key, got %q", v)
	}
}
