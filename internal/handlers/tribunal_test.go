package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/internal/moderation"
	"github.com/shirkavand/imperator/internal/roles"
)

// memLedger backs a real engine in handler tests.
type memLedger struct {
	mu    sync.Mutex
	group *db.Group
	roles map[string]string
	warns map[string]int
	mutes map[string]time.Time
	audit []db.AuditEntry
}

func newMemLedger(group *db.Group) *memLedger {
	return &memLedger{
		group: group,
		roles: map[string]string{},
		warns: map[string]int{},
		mutes: map[string]time.Time{},
	}
}

func ledgerKey(chatID, userID int64) string { return fmt.Sprintf("%d:%d", chatID, userID) }

func (l *memLedger) GetGroup(ctx context.Context, chatID int64) (*db.Group, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.group == nil {
		return nil, db.ErrNotFound
	}
	cp := *l.group
	return &cp, nil
}

func (l *memLedger) UpdateGroupConfig(ctx context.Context, group *db.Group) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	cp := *group
	l.group = &cp
	return nil
}

func (l *memLedger) SetRole(ctx context.Context, chatID, userID int64, role string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.roles[ledgerKey(chatID, userID)] = role
	return nil
}

func (l *memLedger) DeleteRole(ctx context.Context, chatID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.roles, ledgerKey(chatID, userID))
	return nil
}

func (l *memLedger) IncrementWarns(ctx context.Context, chatID, userID int64, reason string) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.warns[ledgerKey(chatID, userID)]++
	return l.warns[ledgerKey(chatID, userID)], nil
}

func (l *memLedger) ResetWarns(ctx context.Context, chatID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.warns, ledgerKey(chatID, userID))
	return nil
}

func (l *memLedger) SetMute(ctx context.Context, chatID, userID int64, expiresAt time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mutes[ledgerKey(chatID, userID)] = expiresAt
	return nil
}

func (l *memLedger) DeleteMute(ctx context.Context, chatID, userID int64) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.mutes, ledgerKey(chatID, userID))
	return nil
}

func (l *memLedger) AppendAudit(ctx context.Context, entry *db.AuditEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.audit = append(l.audit, *entry)
	return nil
}

type staticResolver map[int64]roles.Role

func (r staticResolver) Resolve(ctx context.Context, chatID, userID int64) roles.Role {
	if role, ok := r[userID]; ok {
		return role
	}
	return roles.Citizen
}

func groupMessage(text string, from int64, reply *api.Message) *api.Update {
	m := &api.Message{
		MessageID: 100,
		Text:      text,
		Chat:      api.Chat{ID: 1, Type: "supergroup", Title: "test"},
		From:      &api.User{ID: from, FirstName: "Actor"},
		Date:      int(time.Now().Unix()),
	}
	m.ReplyToMessage = reply
	return &api.Update{Message: m}
}

func replyTo(userID int64) *api.Message {
	return &api.Message{
		MessageID: 42,
		Chat:      api.Chat{ID: 1, Type: "supergroup"},
		From:      &api.User{ID: userID, FirstName: "Target"},
	}
}

func newTestTribunal(resolver staticResolver) (*Tribunal, *memLedger, *gatePlatform) {
	ledger := newMemLedger(db.DefaultGroup(1, "test", "en"))
	platform := newGatePlatform("member")
	engine := moderation.NewEngine(ledger, platform, resolver, config.TribunalConfig{
		WarnLimit:   3,
		DefaultMute: 10 * time.Minute,
	})
	tr := NewTribunal(&fakeService{db: &fakeDB{group: ledger.group}}, engine, platform)
	return tr, ledger, platform
}

func lastReply(p *gatePlatform) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.sentMessages) == 0 {
		return ""
	}
	return p.sentMessages[len(p.sentMessages)-1]
}

func TestTribunalWarnCommand(t *testing.T) {
	t.Parallel()
	tr, ledger, platform := newTestTribunal(staticResolver{10: roles.Knight})

	u := groupMessage("warn", 10, replyTo(20))
	proceed, err := tr.Handle(context.Background(), u, &u.Message.Chat, u.Message.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatal("recognized command proceeded down the chain")
	}
	if ledger.warns[ledgerKey(1, 20)] != 1 {
		t.Errorf("warn count = %d, want 1", ledger.warns[ledgerKey(1, 20)])
	}
	if !strings.Contains(lastReply(platform), "Warning 1/3") {
		t.Errorf("reply = %q", lastReply(platform))
	}
}

func TestTribunalDenialReply(t *testing.T) {
	t.Parallel()
	tr, ledger, platform := newTestTribunal(staticResolver{})

	u := groupMessage("ban", 10, replyTo(20))
	proceed, err := tr.Handle(context.Background(), u, &u.Message.Chat, u.Message.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if proceed {
		t.Fatal("denied command proceeded down the chain")
	}
	if len(ledger.audit) != 0 {
		t.Errorf("denied command left audit entries: %#v", ledger.audit)
	}
	if !strings.Contains(lastReply(platform), "not allowed") {
		t.Errorf("reply = %q", lastReply(platform))
	}
}

func TestTribunalTargetedCommandWithoutReply(t *testing.T) {
	t.Parallel()
	tr, ledger, _ := newTestTribunal(staticResolver{10: roles.Queen})

	u := groupMessage("i will ban you all", 10, nil)
	proceed, err := tr.Handle(context.Background(), u, &u.Message.Chat, u.Message.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !proceed {
		t.Fatal("targeted keyword without reply should fall through")
	}
	if len(ledger.audit) != 0 {
		t.Errorf("fall-through left audit entries: %#v", ledger.audit)
	}
}

func TestTribunalPromoteAmbiguous(t *testing.T) {
	t.Parallel()
	tr, _, platform := newTestTribunal(staticResolver{10: roles.Queen})

	u := groupMessage("promote somewhere", 10, replyTo(20))
	if _, err := tr.Handle(context.Background(), u, &u.Message.Chat, u.Message.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !strings.Contains(lastReply(platform), "Role not recognized") {
		t.Errorf("reply = %q", lastReply(platform))
	}
}

func TestTribunalPurgeRange(t *testing.T) {
	t.Parallel()
	tr, ledger, platform := newTestTribunal(staticResolver{10: roles.Consul})

	u := groupMessage("purge", 10, replyTo(20))
	if _, err := tr.Handle(context.Background(), u, &u.Message.Chat, u.Message.From); err != nil {
		t.Fatalf("handle: %v", err)
	}
	// reply msg 42 through command msg 100 inclusive
	platform.mu.Lock()
	deleted := len(platform.deletedIDs)
	platform.mu.Unlock()
	if deleted != 59 {
		t.Errorf("deleted %d messages, want 59", deleted)
	}
	if len(ledger.audit) != 1 || ledger.audit[0].Action != "purge" {
		t.Errorf("audit = %#v, want one purge entry", ledger.audit)
	}
}

func TestTribunalPlainChatterProceeds(t *testing.T) {
	t.Parallel()
	tr, _, platform := newTestTribunal(staticResolver{10: roles.Queen})

	u := groupMessage("hello everyone", 10, nil)
	proceed, err := tr.Handle(context.Background(), u, &u.Message.Chat, u.Message.From)
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if !proceed {
		t.Fatal("plain chatter blocked the chain")
	}
	if got := lastReply(platform); got != "" {
		t.Errorf("plain chatter got a reply: %q", got)
	}
}
