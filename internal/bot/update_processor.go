package bot

import (
	"context"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db"
)

const UpdateTimeout = 5 * time.Minute

type UpdateProcessor struct {
	s              Service
	updateHandlers []Handler
}

var registeredHandlers = make(map[string]Handler)

func RegisterUpdateHandler(title string, handler Handler) {
	registeredHandlers[title] = handler
}

func NewUpdateProcessor(s Service) *UpdateProcessor {
	enabledHandlers := make([]Handler, 0)
	for _, handlerName := range config.Get().EnabledHandlers {
		if _, ok := registeredHandlers[handlerName]; !ok || registeredHandlers[handlerName] == nil {
			log.Warnf("no registered handler: %s", handlerName)
			continue
		}
		enabledHandlers = append(enabledHandlers, registeredHandlers[handlerName])
	}

	return &UpdateProcessor{
		s:              s,
		updateHandlers: enabledHandlers,
	}
}

func (up *UpdateProcessor) Process(ctx context.Context, u *api.Update) error {
	if u == nil {
		return errors.New("update is nil")
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	var updateTime time.Time
	switch {
	case u.Message != nil:
		updateTime = time.Unix(int64(u.Message.Date), 0)
	case u.EditedMessage != nil:
		updateTime = time.Unix(int64(u.EditedMessage.Date), 0)
	default:
		updateTime = time.Now()
	}
	if time.Since(updateTime) > UpdateTimeout {
		log.WithFields(log.Fields{
			"update_time": updateTime,
			"age":         time.Since(updateTime),
		}).Debug("Skipping outdated update")
		return nil
	}

	chat := u.FromChat()
	if chat == nil {
		switch {
		case u.MyChatMember != nil:
			chat = &u.MyChatMember.Chat
		case u.ChatMember != nil:
			chat = &u.ChatMember.Chat
		}
	}
	user := u.SentFrom()
	if user == nil {
		switch {
		case u.MyChatMember != nil:
			user = &u.MyChatMember.From
		case u.ChatMember != nil:
			user = &u.ChatMember.From
		}
	}

	up.refreshGroupTitle(ctx, chat)

	for _, handler := range up.updateHandlers {
		if handler == nil {
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		proceed, err := handler.Handle(ctx, u, chat, user)
		if err != nil {
			return errors.WithMessage(err, "handling error")
		}
		if !proceed {
			log.Trace("not proceeding")
			return nil
		}
	}
	return nil
}

// refreshGroupTitle keeps the stored group title in sync with the platform.
func (up *UpdateProcessor) refreshGroupTitle(ctx context.Context, chat *api.Chat) {
	if chat == nil || !(chat.IsGroup() || chat.IsSuperGroup()) {
		return
	}
	group, err := up.s.GetDB().GetGroup(ctx, chat.ID)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			log.WithError(err).Warn("cant get group")
		}
		return
	}
	if group.Title == chat.Title {
		return
	}
	group.Title = chat.Title
	if err := up.s.GetDB().UpdateGroupConfig(ctx, group); err != nil {
		log.WithError(err).Warn("cant update group title")
	}
}

func GetFullName(user *api.User) (string, int64) {
	if user == nil {
		return "", 0
	}
	userName := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if 0 == len(userName) {
		userName = user.UserName
	}
	return userName, user.ID
}

func GetUN(user *api.User) (string, int64) {
	if user == nil {
		return "", 0
	}
	userName := user.UserName
	if 0 == len(userName) {
		userName = strings.TrimSpace(user.FirstName + " " + user.LastName)
	}
	return userName, user.ID
}
