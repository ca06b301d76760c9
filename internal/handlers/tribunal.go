package handlers

import (
	"context"
	"errors"

	api "github.com/OvyFlash/telegram-bot-api"
	log "github.com/sirupsen/logrus"

	"github.com/shirkavand/imperator/internal/bot"
	"github.com/shirkavand/imperator/internal/classifier"
	"github.com/shirkavand/imperator/internal/i18n"
	"github.com/shirkavand/imperator/internal/moderation"
	"github.com/shirkavand/imperator/internal/observability"
)

// Tribunal turns recognized command text into engine calls and relays the
// outcome. Target-taking commands require a reply: bare keywords in normal
// conversation fall through to the rest of the chain.
type Tribunal struct {
	s        bot.Service
	engine   *moderation.Engine
	platform platformClient
}

func NewTribunal(s bot.Service, engine *moderation.Engine, platform platformClient) *Tribunal {
	return &Tribunal{s: s, engine: engine, platform: platform}
}

func (t *Tribunal) Handle(ctx context.Context, u *api.Update, chat *api.Chat, user *api.User) (proceed bool, err error) {
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

	intent := classifier.Classify(m.Text)
	if intent == classifier.IntentNone {
		return true, nil
	}

	language := t.s.GetLanguage(ctx, chat.ID, user)
	entry := t.getLogEntry().WithFields(log.Fields{"chat_id": chat.ID, "intent": intent})

	// nothing here may take the process down: an unexpected failure turns
	// into a generic reply
	defer func() {
		if r := recover(); r != nil {
			entry.Errorf("panic in command handling: %v", r)
			t.reply(ctx, chat.ID, i18n.Get("Internal error, please try again.", language))
			proceed, err = false, nil
		}
	}()

	req := moderation.Request{
		ChatID:  chat.ID,
		ActorID: user.ID,
		Text:    m.Text,
		Lang:    language,
	}
	if m.ReplyToMessage != nil && m.ReplyToMessage.From != nil {
		req.TargetID = m.ReplyToMessage.From.ID
		req.TargetName, _ = bot.GetFullName(m.ReplyToMessage.From)
	}

	var out moderation.Outcome
	var actErr error
	switch intent {
	case classifier.IntentRules:
		out, actErr = t.engine.ShowRules(ctx, req)
	case classifier.IntentSetRules:
		out, actErr = t.engine.SetRules(ctx, req)
	case classifier.IntentPanel:
		out, actErr = t.engine.Panel(ctx, req)
	default:
		if req.TargetID == 0 {
			return true, nil
		}
		switch intent {
		case classifier.IntentBan:
			out, actErr = t.engine.Ban(ctx, req)
		case classifier.IntentUnban:
			out, actErr = t.engine.Unban(ctx, req)
		case classifier.IntentMute:
			out, actErr = t.engine.Mute(ctx, req)
		case classifier.IntentUnmute:
			out, actErr = t.engine.Unmute(ctx, req)
		case classifier.IntentWarn:
			out, actErr = t.engine.Warn(ctx, req)
		case classifier.IntentUnwarn:
			out, actErr = t.engine.Unwarn(ctx, req)
		case classifier.IntentPromote:
			out, actErr = t.engine.Promote(ctx, req)
		case classifier.IntentDemote:
			out, actErr = t.engine.Demote(ctx, req)
		case classifier.IntentPurge:
			out, actErr = t.engine.Purge(ctx, req, m.ReplyToMessage.MessageID, m.MessageID)
		case classifier.IntentTag:
			out, actErr = t.engine.Tag(ctx, req)
		default:
			return true, nil
		}
	}

	if actErr != nil {
		entry.WithError(actErr).Debug("action rejected")
		t.reply(ctx, chat.ID, denialReply(actErr, language))
		return false, nil
	}

	observability.ModerationActions.WithLabelValues(string(intent)).Inc()
	t.reply(ctx, chat.ID, out.Reply)
	return false, nil
}

func denialReply(err error, language string) string {
	switch {
	case errors.Is(err, moderation.ErrAuthorizationDenied):
		return i18n.Get("You are not allowed to do that.", language)
	case errors.Is(err, moderation.ErrTargetProtected):
		return i18n.Get("This member is protected.", language)
	case errors.Is(err, moderation.ErrAmbiguousCommand):
		return i18n.Get("Role not recognized. Example: \"promote knight\"", language)
	case errors.Is(err, moderation.ErrPlatformRejected):
		return i18n.Get("The platform refused that action. Check my admin rights.", language)
	default:
		return i18n.Get("Internal error, please try again.", language)
	}
}

func (t *Tribunal) reply(ctx context.Context, chatID int64, text string) {
	if text == "" {
		return
	}
	if err := t.platform.SendMessage(ctx, chatID, text); err != nil {
		t.getLogEntry().WithError(err).Debug("cant send reply")
	}
}

func (t *Tribunal) getLogEntry() *log.Entry {
	return log.WithField("context", "tribunal")
}
