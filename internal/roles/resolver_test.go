package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/shirkavand/imperator/internal/db"
)

type fakeStore struct {
	group *db.Group
	roles map[int64]string
}

func (s *fakeStore) GetGroup(_ context.Context, _ int64) (*db.Group, error) {
	if s.group == nil {
		return nil, db.ErrNotFound
	}
	return s.group, nil
}

func (s *fakeStore) GetRole(_ context.Context, _, userID int64) (string, error) {
	if tag, ok := s.roles[userID]; ok {
		return tag, nil
	}
	return "", db.ErrNotFound
}

type fakeStatus struct {
	statuses map[int64]string
	err      error
}

func (s *fakeStatus) MemberStatus(_ context.Context, _, userID int64) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	if status, ok := s.statuses[userID]; ok {
		return status, nil
	}
	return "member", nil
}

func TestResolvePrecedence(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		group: &db.Group{ID: -1, EmperorID: 10},
		roles: map[int64]string{
			11: "queen",
			12: "knight",
			13: "baron",
		},
	}
	status := &fakeStatus{statuses: map[int64]string{
		12: "administrator",
		14: "creator",
	}}
	resolver := NewResolver(store, status)
	ctx := context.Background()

	tests := []struct {
		userID int64
		want   Role
	}{
		{10, Emperor},
		{11, Queen},
		{12, Consul}, // platform admin outranks stored knight
		{13, Baron},
		{14, Consul},
		{15, Citizen},
	}
	for _, tt := range tests {
		if got := resolver.Resolve(ctx, -1, tt.userID); got != tt.want {
			t.Fatalf("Resolve(%d) = %s, want %s", tt.userID, got, tt.want)
		}
	}
}

func TestResolvePlatformFailureFallsToStoredTier(t *testing.T) {
	t.Parallel()

	store := &fakeStore{
		group: &db.Group{ID: -1, EmperorID: 10},
		roles: map[int64]string{12: "duke"},
	}
	status := &fakeStatus{err: errors.New("telegram unavailable")}
	resolver := NewResolver(store, status)
	ctx := context.Background()

	if got := resolver.Resolve(ctx, -1, 12); got != Duke {
		t.Fatalf("expected stored duke on platform failure, got %s", got)
	}
	if got := resolver.Resolve(ctx, -1, 99); got != Citizen {
		t.Fatalf("expected citizen on platform failure without stored role, got %s", got)
	}
	// emperor designation never depends on the platform
	if got := resolver.Resolve(ctx, -1, 10); got != Emperor {
		t.Fatalf("expected emperor on platform failure, got %s", got)
	}
}
