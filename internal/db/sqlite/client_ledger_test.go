package sqlite

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shirkavand/imperator/internal/db"
)

func newTestClient(t *testing.T) *sqliteClient {
	t.Helper()

	ctx := context.Background()
	client, err := NewSQLiteClient(ctx, t.TempDir(), "test.db")
	if err != nil {
		t.Fatalf("new sqlite client: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestIncrementWarnsIsAtomicUnderConcurrency(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	const workers = 8
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := client.IncrementWarns(ctx, 100, 200, "test"); err != nil {
				t.Errorf("increment warns: %v", err)
			}
		}()
	}
	wg.Wait()

	warn, err := client.GetWarn(ctx, 100, 200)
	if err != nil {
		t.Fatalf("get warn: %v", err)
	}
	if warn.Count != workers {
		t.Fatalf("expected count %d, got %d", workers, warn.Count)
	}
}

func TestResetWarnsClearsRecord(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if _, err := client.IncrementWarns(ctx, 1, 2, "link"); err != nil {
		t.Fatalf("increment warns: %v", err)
	}
	if err := client.ResetWarns(ctx, 1, 2); err != nil {
		t.Fatalf("reset warns: %v", err)
	}
	if _, err := client.GetWarn(ctx, 1, 2); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after reset, got %v", err)
	}
}

func TestDeleteMuteIsIdempotent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.DeleteMute(ctx, 5, 6); err != nil {
		t.Fatalf("delete missing mute: %v", err)
	}

	expiry := time.Now().Add(10 * time.Minute).UTC().Truncate(time.Second)
	if err := client.SetMute(ctx, 5, 6, expiry); err != nil {
		t.Fatalf("set mute: %v", err)
	}
	mute, err := client.GetMute(ctx, 5, 6)
	if err != nil {
		t.Fatalf("get mute: %v", err)
	}
	if !mute.ExpiresAt.Equal(expiry) {
		t.Fatalf("unexpected expiry: got %v want %v", mute.ExpiresAt, expiry)
	}

	if err := client.DeleteMute(ctx, 5, 6); err != nil {
		t.Fatalf("delete mute: %v", err)
	}
	if _, err := client.GetMute(ctx, 5, 6); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestSetEmperorIsImmutableOnceSet(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	if err := client.UpsertGroup(ctx, db.DefaultGroup(-100, "test group", "en")); err != nil {
		t.Fatalf("upsert group: %v", err)
	}

	if err := client.SetEmperor(ctx, -100, 42); err != nil {
		t.Fatalf("set emperor: %v", err)
	}
	if err := client.SetEmperor(ctx, -100, 1337); err != nil {
		t.Fatalf("second set emperor: %v", err)
	}

	group, err := client.GetGroup(ctx, -100)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if group.EmperorID != 42 {
		t.Fatalf("emperor overwritten: got %d want 42", group.EmperorID)
	}
}

func TestUpsertGroupKeepsConfigOnRejoin(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := newTestClient(t)

	group := db.DefaultGroup(-200, "old title", "en")
	if err := client.UpsertGroup(ctx, group); err != nil {
		t.Fatalf("upsert group: %v", err)
	}

	group.Rules = "be civil"
	group.CaptchaEnabled = false
	if err := client.UpdateGroupConfig(ctx, group); err != nil {
		t.Fatalf("update group config: %v", err)
	}

	rejoined := db.DefaultGroup(-200, "new title", "en")
	if err := client.UpsertGroup(ctx, rejoined); err != nil {
		t.Fatalf("upsert group again: %v", err)
	}

	got, err := client.GetGroup(ctx, -200)
	if err != nil {
		t.Fatalf("get group: %v", err)
	}
	if got.Title != "new title" {
		t.Fatalf("title not refreshed: %q", got.Title)
	}
	if got.Rules != "be civil" || got.CaptchaEnabled {
		t.Fatalf("config lost on rejoin: %#v", got)
	}
}
