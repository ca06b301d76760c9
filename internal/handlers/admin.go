package handlers

import (
	"context"
	"strconv"
	"strings"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shirkavand/imperator/internal/bot"
	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/internal/i18n"
)

// Admin bootstraps groups the bot is added to: it records the group, detects
// the chat creator as its emperor, and answers /start in private chat,
// tracking ref_<id> deep-link referrals.
type Admin struct {
	s bot.Service
}

func NewAdmin(s bot.Service) *Admin {
	return &Admin{s: s}
}

func (a *Admin) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (bool, error) {
	if u.MyChatMember != nil {
		return true, a.handleMyChatMember(ctx, u.MyChatMember)
	}
	if u.Message != nil && u.Message.Chat.IsPrivate() && u.Message.IsCommand() {
		return a.handlePrivateCommand(ctx, u.Message)
	}
	return true, nil
}

func (a *Admin) handleMyChatMember(ctx context.Context, mcm *api.ChatMemberUpdated) error {
	entry := a.getLogEntry().WithField("chat_id", mcm.Chat.ID)

	if !(mcm.Chat.IsGroup() || mcm.Chat.IsSuperGroup()) {
		return nil
	}
	switch mcm.NewChatMember.Status {
	case "member", "administrator":
	default:
		return nil
	}

	group := db.DefaultGroup(mcm.Chat.ID, mcm.Chat.Title, config.Get().DefaultLanguage)
	if err := a.s.GetDB().UpsertGroup(ctx, group); err != nil {
		return errors.WithMessage(err, "cant upsert group")
	}
	entry.Info("joined group")

	a.detectEmperor(ctx, mcm.Chat.ID)

	if mcm.NewChatMember.Status == "administrator" {
		language := a.s.GetLanguage(ctx, mcm.Chat.ID, nil)
		text := i18n.Get("Empire activated.", language) + "\n" +
			i18n.Get("Reply to a user and say \"ban\", \"mute 10m\", \"warn\", \"promote knight\" and so on.", language)
		if _, err := a.s.GetBot().Send(api.NewMessage(mcm.Chat.ID, text)); err != nil {
			entry.WithError(err).Error("cant send activation message")
		}
	}
	return nil
}

// detectEmperor records the platform creator once. A group whose emperor is
// already set is left alone.
func (a *Admin) detectEmperor(ctx context.Context, chatID int64) {
	entry := a.getLogEntry().WithField("chat_id", chatID)

	group, err := a.s.GetDB().GetGroup(ctx, chatID)
	if err != nil {
		entry.WithError(err).Error("cant get group")
		return
	}
	if group.EmperorID != 0 {
		return
	}

	admins, err := a.s.GetBot().GetChatAdministrators(api.ChatAdministratorsConfig{
		ChatConfig: api.ChatConfig{ChatID: chatID},
	})
	if err != nil {
		entry.WithError(err).Warn("cant get chat administrators")
		return
	}
	for _, admin := range admins {
		if admin.IsCreator() {
			if err := a.s.GetDB().SetEmperor(ctx, chatID, admin.User.ID); err != nil {
				entry.WithError(err).Error("cant set emperor")
			}
			return
		}
	}
}

func (a *Admin) handlePrivateCommand(ctx context.Context, m *api.Message) (bool, error) {
	if m.Command() != "start" {
		return true, nil
	}
	entry := a.getLogEntry().WithField("user_id", m.From.ID)

	if payload := m.CommandArguments(); strings.HasPrefix(payload, "ref_") {
		refID, err := strconv.ParseInt(strings.TrimPrefix(payload, "ref_"), 10, 64)
		if err == nil && refID != m.From.ID {
			if err := a.s.GetDB().AddReferral(ctx, refID, m.From.ID); err != nil {
				entry.WithError(err).Warn("cant add referral")
			}
		}
	}

	language := a.s.GetLanguage(ctx, m.Chat.ID, m.From)
	if _, err := a.s.GetBot().Send(api.NewMessage(
		m.Chat.ID,
		i18n.Get("Add me to a group and promote me to admin.", language),
	)); err != nil {
		entry.WithError(err).Error("cant send start reply")
	}
	return false, nil
}

func (a *Admin) getLogEntry() *log.Entry {
	return log.WithField("context", "admin")
}
