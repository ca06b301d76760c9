package handlers

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pborman/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shirkavand/imperator/internal/bot"
	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/internal/i18n"
	"github.com/shirkavand/imperator/internal/observability"
)

const callbackPrefix = "adm:"

// restrictions older than a year read as "forever" on the platform side
const indefinitely = 366 * 24 * time.Hour

type admission struct {
	chatID         int64
	userID         int64
	token          string
	forceJoin      bool
	channel        string
	challengeMsgID int
	timer          *time.Timer
	resolved       bool
}

// Gatekeeper holds every member joining a guarded group in a pending state:
// restricted on entry, released on a confirmed channel membership or a
// captcha press. The captcha path carries a one-shot timeout; force-join
// waits forever. Exactly one of verify or timeout ever applies per session.
type Gatekeeper struct {
	s        bot.Service
	platform platformClient
	cfg      config.AdmissionConfig

	mu       sync.Mutex
	sessions map[string]*admission
}

func NewGatekeeper(s bot.Service, platform platformClient, cfg config.AdmissionConfig) *Gatekeeper {
	return &Gatekeeper{
		s:        s,
		platform: platform,
		cfg:      cfg,
		sessions: make(map[string]*admission),
	}
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

func (g *Gatekeeper) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	switch {
	case u.CallbackQuery != nil && strings.HasPrefix(u.CallbackQuery.Data, callbackPrefix):
		return false, g.handleCallback(ctx, u.CallbackQuery)

	case u.Message != nil && len(u.Message.NewChatMembers) > 0 && chat != nil:
		return true, g.handleJoins(ctx, u.Message)
	}
	return true, nil
}

func (g *Gatekeeper) handleJoins(ctx context.Context, m *api.Message) error {
	entry := g.getLogEntry().WithField("chat_id", m.Chat.ID)

	group, err := g.s.GetDB().GetGroup(ctx, m.Chat.ID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			entry.WithError(err).Error("cant get group")
		}
		group = db.DefaultGroup(m.Chat.ID, m.Chat.Title, config.Get().DefaultLanguage)
	}

	channel := group.ForceJoinChannel
	if channel == "" {
		channel = g.cfg.ForceJoinChannel
	}
	forceJoin := group.ForceJoinEnabled && channel != ""

	for i := range m.NewChatMembers {
		joiner := m.NewChatMembers[i]
		if joiner.IsBot {
			continue
		}
		switch {
		case forceJoin:
			g.challenge(ctx, group, &joiner, true, channel)
		case group.CaptchaEnabled:
			g.challenge(ctx, group, &joiner, false, "")
		case group.WelcomeEnabled:
			g.welcome(ctx, group, &joiner)
		}
	}
	return nil
}

func (g *Gatekeeper) challenge(ctx context.Context, group *db.Group, joiner *api.User, forceJoin bool, channel string) {
	entry := g.getLogEntry().WithFields(log.Fields{"chat_id": group.ID, "user_id": joiner.ID})
	language := g.s.GetLanguage(ctx, group.ID, joiner)

	if err := g.platform.RestrictMember(ctx, group.ID, joiner.ID, time.Now().Add(indefinitely)); err != nil {
		entry.WithError(err).Error("cant restrict joiner")
		return
	}

	var text, button string
	if forceJoin {
		text = fmt.Sprintf(i18n.Get("To get access, join %s and press the confirmation button.", language), channel)
		button = i18n.Get("Confirm membership", language)
	} else {
		text = fmt.Sprintf(i18n.Get("Press the button within %ds to prove you are human.", language), int(g.cfg.CaptchaTimeout.Seconds()))
		button = i18n.Get("I am not a robot", language)
	}

	token := uuid.New()
	msg := api.NewMessage(group.ID, text)
	msg.ReplyMarkup = api.NewInlineKeyboardMarkup(
		api.NewInlineKeyboardRow(
			api.NewInlineKeyboardButtonData(button, callbackPrefix+token),
		),
	)
	sent, err := g.s.GetBot().Send(msg)
	if err != nil {
		entry.WithError(err).Error("cant send challenge")
		return
	}

	sess := &admission{
		chatID:         group.ID,
		userID:         joiner.ID,
		token:          token,
		forceJoin:      forceJoin,
		channel:        channel,
		challengeMsgID: sent.MessageID,
	}
	g.register(sess)
	observability.AdmissionChallenges.WithLabelValues(challengeKind(forceJoin)).Inc()
	entry.Debug("challenge issued")
}

func challengeKind(forceJoin bool) string {
	if forceJoin {
		return "force_join"
	}
	return "captcha"
}

// register stores the session and, on the captcha path, arms its one-shot
// timer.
func (g *Gatekeeper) register(sess *admission) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sessions[sessionKey(sess.chatID, sess.userID)] = sess
	if !sess.forceJoin {
		sess.timer = time.AfterFunc(g.cfg.CaptchaTimeout, func() {
			g.timeoutSession(sess.chatID, sess.userID, sess.token)
		})
	}
}

func (g *Gatekeeper) handleCallback(ctx context.Context, cq *api.CallbackQuery) error {
	if cq.Message == nil {
		return nil
	}
	entry := g.getLogEntry().WithField("user_id", cq.From.ID)
	token := strings.TrimPrefix(cq.Data, callbackPrefix)
	chatID := cq.Message.Chat.ID
	language := g.s.GetLanguage(ctx, chatID, cq.From)

	g.mu.Lock()
	sess := g.findByToken(chatID, token)
	g.mu.Unlock()

	if sess == nil {
		g.answer(ctx, cq.ID, "", false)
		return nil
	}
	if sess.userID != cq.From.ID {
		// only the subject may confirm
		g.answer(ctx, cq.ID, i18n.Get("This button belongs to someone else.", language), false)
		return nil
	}

	if sess.forceJoin {
		member, err := g.platform.ChannelMember(ctx, sess.channel, sess.userID)
		if err != nil {
			entry.WithError(err).Warn("cant check channel membership")
		}
		if !member {
			// re-prompt without lifting the restriction
			g.answer(ctx, cq.ID, i18n.Get("You are not a channel member yet.", language), true)
			return nil
		}
	}

	if !g.verifySession(ctx, sess.chatID, sess.userID, token) {
		g.answer(ctx, cq.ID, "", false)
		return nil
	}
	g.answer(ctx, cq.ID, i18n.Get("Verified. Welcome!", language), false)
	return nil
}

// verifySession resolves the session on the success path. It returns false
// when the session is already gone or resolved, so a racing timeout and
// verification can never both apply.
func (g *Gatekeeper) verifySession(ctx context.Context, chatID, userID int64, token string) bool {
	g.mu.Lock()
	sess, ok := g.sessions[sessionKey(chatID, userID)]
	if !ok || sess.resolved || sess.token != token {
		g.mu.Unlock()
		return false
	}
	sess.resolved = true
	if sess.timer != nil {
		sess.timer.Stop()
	}
	delete(g.sessions, sessionKey(chatID, userID))
	g.mu.Unlock()

	entry := g.getLogEntry().WithFields(log.Fields{"chat_id": chatID, "user_id": userID})
	if err := g.platform.UnrestrictMember(ctx, chatID, userID); err != nil {
		entry.WithError(err).Error("cant unrestrict verified member")
	}
	if sess.challengeMsgID != 0 {
		if err := g.platform.DeleteMessage(ctx, chatID, sess.challengeMsgID); err != nil {
			entry.WithError(err).Debug("cant delete challenge message")
		}
	}

	if group, err := g.s.GetDB().GetGroup(ctx, chatID); err == nil && group.WelcomeEnabled {
		language := g.s.GetLanguage(ctx, chatID, nil)
		if err := g.platform.SendMessage(ctx, chatID, i18n.Get("Welcome!", language)); err != nil {
			entry.WithError(err).Debug("cant send welcome")
		}
	}
	entry.Debug("member verified")
	return true
}

// timeoutSession fires once per captcha session. The ban is best-effort and
// applies only while the member is still restricted: a member who left, was
// banned separately, or verified in the interim is left alone.
func (g *Gatekeeper) timeoutSession(chatID, userID int64, token string) {
	g.mu.Lock()
	sess, ok := g.sessions[sessionKey(chatID, userID)]
	if !ok || sess.resolved || sess.token != token {
		g.mu.Unlock()
		return
	}
	sess.resolved = true
	delete(g.sessions, sessionKey(chatID, userID))
	g.mu.Unlock()

	entry := g.getLogEntry().WithFields(log.Fields{"chat_id": chatID, "user_id": userID})
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	status, err := g.platform.MemberStatus(ctx, chatID, userID)
	if err != nil {
		entry.WithError(err).Warn("cant check member status on timeout")
		return
	}
	if status != "restricted" {
		return
	}
	if err := g.platform.BanMember(ctx, chatID, userID); err != nil {
		entry.WithError(err).Warn("cant ban timed-out member")
		return
	}
	if sess.challengeMsgID != 0 {
		_ = g.platform.DeleteMessage(ctx, chatID, sess.challengeMsgID)
	}
	entry.Info("captcha timed out, member banned")
}

// findByToken must be called with g.mu held.
func (g *Gatekeeper) findByToken(chatID int64, token string) *admission {
	for _, sess := range g.sessions {
		if sess.chatID == chatID && sess.token == token {
			return sess
		}
	}
	return nil
}

func (g *Gatekeeper) welcome(ctx context.Context, group *db.Group, joiner *api.User) {
	language := g.s.GetLanguage(ctx, group.ID, joiner)
	if err := g.platform.SendMessage(ctx, group.ID, i18n.Get("Welcome!", language)); err != nil {
		g.getLogEntry().WithError(err).Debug("cant send welcome")
	}
}

func (g *Gatekeeper) answer(ctx context.Context, callbackID, text string, alert bool) {
	if err := g.platform.AnswerCallback(ctx, callbackID, text, alert); err != nil {
		g.getLogEntry().WithError(err).Debug("cant answer callback query")
	}
}

func (g *Gatekeeper) getLogEntry() *log.Entry {
	return log.WithField("context", "gatekeeper")
}
