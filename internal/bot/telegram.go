package bot

import (
	"context"
	"fmt"
	"strings"
	"time"

	api "github.com/OvyFlash/telegram-bot-api"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"
)

// Telegram adapts the Bot API to the platform surface the moderation and
// admission code drives. Member status lookups for the same (chat,user)
// pair are collapsed through a singleflight group, bursts of updates from
// one chat otherwise hammer getChatMember.
type Telegram struct {
	bot    *api.BotAPI
	status singleflight.Group
}

func NewTelegram(bot *api.BotAPI) *Telegram {
	return &Telegram{bot: bot}
}

func mutedPermissions() *api.ChatPermissions {
	return &api.ChatPermissions{}
}

func fullPermissions() *api.ChatPermissions {
	return &api.ChatPermissions{
		CanSendMessages:       true,
		CanSendAudios:         true,
		CanSendDocuments:      true,
		CanSendPhotos:         true,
		CanSendVideos:         true,
		CanSendVideoNotes:     true,
		CanSendVoiceNotes:     true,
		CanSendPolls:          true,
		CanSendOtherMessages:  true,
		CanAddWebPagePreviews: true,
		CanChangeInfo:         true,
		CanInviteUsers:        true,
		CanPinMessages:        true,
		CanManageTopics:       true,
	}
}

func memberConfig(chatID, userID int64) api.ChatMemberConfig {
	return api.ChatMemberConfig{
		ChatConfig: api.ChatConfig{ChatID: chatID},
		UserID:     userID,
	}
}

func (t *Telegram) RestrictMember(ctx context.Context, chatID, userID int64, until time.Time) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := t.bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		UntilDate:        until.Unix(),
		Permissions:      mutedPermissions(),
	}); err != nil {
		return errors.WithMessage(err, "cant restrict")
	}
	return nil
}

func (t *Telegram) UnrestrictMember(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := t.bot.Request(api.RestrictChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		Permissions:      fullPermissions(),
	}); err != nil {
		return errors.WithMessage(err, "cant unrestrict")
	}
	return nil
}

func (t *Telegram) BanMember(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := t.bot.Request(api.BanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		RevokeMessages:   true,
	}); err != nil {
		return errors.WithMessage(err, "cant ban")
	}
	return nil
}

func (t *Telegram) UnbanMember(ctx context.Context, chatID, userID int64) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := t.bot.Request(api.UnbanChatMemberConfig{
		ChatMemberConfig: memberConfig(chatID, userID),
		OnlyIfBanned:     true,
	}); err != nil {
		return errors.WithMessage(err, "cant unban")
	}
	return nil
}

func (t *Telegram) MemberStatus(ctx context.Context, chatID, userID int64) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}
	v, err, _ := t.status.Do(fmt.Sprintf("%d:%d", chatID, userID), func() (any, error) {
		member, err := t.bot.GetChatMember(api.GetChatMemberConfig{
			ChatConfigWithUser: api.ChatConfigWithUser{
				ChatConfig: api.ChatConfig{ChatID: chatID},
				UserID:     userID,
			},
		})
		if err != nil {
			return "", errors.WithMessage(err, "cant get chat member")
		}
		return member.Status, nil
	})
	if err != nil {
		return "", err
	}
	return v.(string), nil
}

// ChannelMember reports whether userID currently belongs to the public
// channel, for force-join checks.
func (t *Telegram) ChannelMember(ctx context.Context, channel string, userID int64) (bool, error) {
	select {
	case <-ctx.Done():
		return false, ctx.Err()
	default:
	}
	if !strings.HasPrefix(channel, "@") {
		channel = "@" + channel
	}
	member, err := t.bot.GetChatMember(api.GetChatMemberConfig{
		ChatConfigWithUser: api.ChatConfigWithUser{
			ChatConfig: api.ChatConfig{SuperGroupUsername: channel},
			UserID:     userID,
		},
	})
	if err != nil {
		return false, errors.WithMessage(err, "cant get channel member")
	}
	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

func (t *Telegram) DeleteMessage(ctx context.Context, chatID int64, messageID int) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := t.bot.Request(api.NewDeleteMessage(chatID, messageID)); err != nil {
		return errors.WithMessage(err, "cant delete message")
	}
	return nil
}

func (t *Telegram) AnswerCallback(ctx context.Context, callbackID, text string, alert bool) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	callback := api.NewCallback(callbackID, text)
	if alert {
		callback = api.NewCallbackWithAlert(callbackID, text)
	}
	if _, err := t.bot.Request(callback); err != nil {
		return errors.WithMessage(err, "cant answer callback")
	}
	return nil
}

func (t *Telegram) SendMessage(ctx context.Context, chatID int64, text string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if _, err := t.bot.Send(api.NewMessage(chatID, text)); err != nil {
		return errors.WithMessage(err, "cant send message")
	}
	return nil
}
