package handlers

import (
	"context"
	"sync"
	"testing"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/internal/moderation"
)

var (
	_ platformClient      = (*gatePlatform)(nil)
	_ moderation.Platform = (*gatePlatform)(nil)
)

type fakeDB struct {
	db.Client
	group *db.Group
}

func (f *fakeDB) GetGroup(ctx context.Context, chatID int64) (*db.Group, error) {
	if f.group == nil {
		return nil, db.ErrNotFound
	}
	return f.group, nil
}

type fakeService struct {
	db db.Client
}

func (f *fakeService) GetBot() *api.BotAPI { return nil }
func (f *fakeService) GetDB() db.Client    { return f.db }
func (f *fakeService) GetLanguage(ctx context.Context, chatID int64, user *api.User) string {
	return "en"
}

type gatePlatform struct {
	mu           sync.Mutex
	restricted   map[int64]bool
	banned       map[int64]bool
	status       string
	channelOK    bool
	sentMessages []string
	deletedIDs   []int
	answers      []string
}

func newGatePlatform(status string) *gatePlatform {
	return &gatePlatform{
		restricted: map[int64]bool{},
		banned:     map[int64]bool{},
		status:     status,
	}
}

func (p *gatePlatform) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.restricted[userID] = true
	return nil
}

func (p *gatePlatform) UnrestrictMember(ctx context.Context, chatID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.restricted, userID)
	return nil
}

func (p *gatePlatform) BanMember(ctx context.Context, chatID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.banned[userID] = true
	return nil
}

func (p *gatePlatform) UnbanMember(ctx context.Context, chatID, userID int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.banned, userID)
	return nil
}

func (p *gatePlatform) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	return p.status, nil
}

func (p *gatePlatform) ChannelMember(ctx context.Context, channel string, userID int64) (bool, error) {
	return p.channelOK, nil
}

func (p *gatePlatform) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.deletedIDs = append(p.deletedIDs, messageID)
	return nil
}

func (p *gatePlatform) SendMessage(ctx context.Context, chatID int64, text string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.sentMessages = append(p.sentMessages, text)
	return nil
}

func (p *gatePlatform) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.answers = append(p.answers, text)
	return nil
}

func (p *gatePlatform) isBanned(userID int64) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.banned[userID]
}

func newTestGatekeeper(platform *gatePlatform, timeout time.Duration) *Gatekeeper {
	return NewGatekeeper(
		&fakeService{db: &fakeDB{group: &db.Group{ID: 1, Language: "en"}}},
		platform,
		config.AdmissionConfig{CaptchaTimeout: timeout},
	)
}

func captchaSession(chatID, userID int64, token string) *admission {
	return &admission{chatID: chatID, userID: userID, token: token}
}

func TestVerifyCancelsTimeout(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("restricted")
	g := newTestGatekeeper(platform, time.Hour)

	g.register(captchaSession(1, 2, "tok"))
	if !g.verifySession(context.Background(), 1, 2, "tok") {
		t.Fatal("verify failed for a live session")
	}
	if _, still := platform.restricted[2]; still {
		t.Error("member still restricted after verification")
	}

	// a late timeout for the same session is a no-op
	g.timeoutSession(1, 2, "tok")
	if platform.isBanned(2) {
		t.Error("timeout banned a verified member")
	}
}

func TestTimeoutBansRestrictedMember(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("restricted")
	g := newTestGatekeeper(platform, time.Hour)

	g.register(captchaSession(1, 2, "tok"))
	g.timeoutSession(1, 2, "tok")
	if !platform.isBanned(2) {
		t.Fatal("restricted member not banned on timeout")
	}

	// and verification can no longer apply
	if g.verifySession(context.Background(), 1, 2, "tok") {
		t.Error("verify applied after timeout resolution")
	}
}

func TestTimeoutNoopWhenMemberGone(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("left")
	g := newTestGatekeeper(platform, time.Hour)

	g.register(captchaSession(1, 2, "tok"))
	g.timeoutSession(1, 2, "tok")
	if platform.isBanned(2) {
		t.Error("banned a member who already left")
	}
}

func TestTimeoutIgnoresStaleToken(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("restricted")
	g := newTestGatekeeper(platform, time.Hour)

	g.register(captchaSession(1, 2, "fresh"))
	g.timeoutSession(1, 2, "stale")
	if platform.isBanned(2) {
		t.Error("stale token timeout banned the member")
	}
}

func buttonPress(chatID, userID int64, token string) *api.CallbackQuery {
	return &api.CallbackQuery{
		ID:      "cb",
		From:    &api.User{ID: userID, LanguageCode: "en"},
		Data:    callbackPrefix + token,
		Message: &api.Message{Chat: api.Chat{ID: chatID}},
	}
}

func TestCallbackVerifiesSubject(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("restricted")
	g := newTestGatekeeper(platform, time.Hour)

	platform.restricted[2] = true
	g.register(captchaSession(1, 2, "tok"))
	if err := g.handleCallback(context.Background(), buttonPress(1, 2, "tok")); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if _, still := platform.restricted[2]; still {
		t.Error("member still restricted after pressing the button")
	}
	if len(platform.answers) != 1 || platform.answers[0] != "Verified. Welcome!" {
		t.Errorf("answers = %#v", platform.answers)
	}
}

func TestCallbackRejectsOtherUser(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("restricted")
	g := newTestGatekeeper(platform, time.Hour)

	platform.restricted[2] = true
	g.register(captchaSession(1, 2, "tok"))
	if err := g.handleCallback(context.Background(), buttonPress(1, 3, "tok")); err != nil {
		t.Fatalf("callback: %v", err)
	}
	if _, still := platform.restricted[2]; !still {
		t.Error("a bystander's press lifted the restriction")
	}
	if len(platform.answers) != 1 || platform.answers[0] != "This button belongs to someone else." {
		t.Errorf("answers = %#v", platform.answers)
	}
}

func TestCaptchaTimerFires(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("restricted")
	g := newTestGatekeeper(platform, 20*time.Millisecond)

	g.register(captchaSession(1, 2, "tok"))

	deadline := time.Now().Add(2 * time.Second)
	for !platform.isBanned(2) {
		if time.Now().After(deadline) {
			t.Fatal("captcha timer never fired")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestForceJoinSessionHasNoTimer(t *testing.T) {
	t.Parallel()
	platform := newGatePlatform("restricted")
	g := newTestGatekeeper(platform, 20*time.Millisecond)

	g.register(&admission{chatID: 1, userID: 2, token: "tok", forceJoin: true, channel: "somechannel"})
	time.Sleep(100 * time.Millisecond)
	if platform.isBanned(2) {
		t.Error("force-join session timed out")
	}
}
