package bot

import (
	"context"

	api "github.com/OvyFlash/telegram-bot-api"

	"github.com/iamwavecut/tool"

	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/internal/i18n"
)

type service struct {
	bot *api.BotAPI
	db  db.Client
}

func NewService(bot *api.BotAPI, db db.Client) *service {
	return &service{
		bot: bot,
		db:  db,
	}
}

func (s *service) GetBot() *api.BotAPI {
	return s.bot
}

func (s *service) GetDB() db.Client {
	return s.db
}

// GetLanguage picks the group's configured language, then the user's client
// language when we support it, then the instance default.
func (s *service) GetLanguage(ctx context.Context, chatID int64, user *api.User) string {
	if group, err := s.db.GetGroup(ctx, chatID); err == nil && group.Language != "" {
		return group.Language
	}
	if user != nil && tool.In(user.LanguageCode, i18n.GetLanguagesList()...) {
		return user.LanguageCode
	}
	return config.Get().DefaultLanguage
}
