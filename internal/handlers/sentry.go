package handlers

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/shirkavand/imperator/internal/antispam"
	"github.com/shirkavand/imperator/internal/bot"
	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/moderation"
	"github.com/shirkavand/imperator/internal/observability"
)

// Sentry screens group text before anything command-shaped sees it: floods
// earn a system mute, links get deleted and warned. A positive detection
// stops the handler chain for that message.
type Sentry struct {
	s        bot.Service
	engine   *moderation.Engine
	platform platformClient
	flood    *antispam.FloodDetector
	cfg      config.AntispamConfig
}

func NewSentry(s bot.Service, engine *moderation.Engine, platform platformClient, cfg config.AntispamConfig) *Sentry {
	return &Sentry{
		s:        s,
		engine:   engine,
		platform: platform,
		flood:    antispam.NewFloodDetector(cfg),
		cfg:      cfg,
	}
}

func (s *Sentry) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.Message == nil || chat == nil || user == nil || user.IsBot {
		return true, nil
	}
	if !(chat.IsGroup() || chat.IsSuperGroup()) {
		return true, nil
	}
	m := u.Message
	if m.Text == "" || len(m.NewChatMembers) > 0 {
		return true, nil
	}

	group, err := s.s.GetDB().GetGroup(ctx, chat.ID)
	if err != nil || !group.AntispamEnabled {
		return true, nil
	}

	entry := s.getLogEntry().WithFields(log.Fields{"chat_id": chat.ID, "user_id": user.ID})
	name, _ := bot.GetFullName(user)
	language := s.s.GetLanguage(ctx, chat.ID, user)

	if s.flood.Observe(chat.ID, user.ID, m.Text) {
		observability.SpamDetections.WithLabelValues("flood").Inc()
		out, err := s.engine.SystemMute(ctx, chat.ID, user.ID, name, language, s.cfg.FloodMute)
		if err != nil {
			entry.WithError(err).Warn("cant auto-mute flooder")
			return false, nil
		}
		s.reply(ctx, chat.ID, out.Reply)
		return false, nil
	}

	if antispam.HasLink(m.Text) {
		observability.SpamDetections.WithLabelValues("link").Inc()
		if err := s.platform.DeleteMessage(ctx, chat.ID, m.MessageID); err != nil {
			entry.WithError(err).Warn("cant delete link message")
		}
		out, err := s.engine.EscalateLinkWarn(ctx, chat.ID, user.ID, name, language)
		if err != nil {
			entry.WithError(err).Warn("cant warn link poster")
			return false, nil
		}
		s.reply(ctx, chat.ID, out.Reply)
		return false, nil
	}

	return true, nil
}

func (s *Sentry) reply(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if err := s.platform.SendMessage(ctx, chatID, text); err != nil {
		s.getLogEntry().WithError(err).Debug("cant send reply")
	}
}

func (s *Sentry) getLogEntry() *log.Entry {
	return log.WithField("context", "sentry")
}
