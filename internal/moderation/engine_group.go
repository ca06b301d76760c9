package moderation

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/internal/i18n"
	"github.com/shirkavand/imperator/internal/roles"
)

var setRulesPrefix = regexp.MustCompile(`(?i)^\s*(set\s?rules|تنظیم\s?قوانین)\s*:?`)

func (e *Engine) group(ctx context.Context, chatID int64) (*db.Group, error) {
	group, err := e.store.GetGroup(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get group: %w", err)
	}
	return group, nil
}

// ShowRules needs no privilege at all.
func (e *Engine) ShowRules(ctx context.Context, req Request) (Outcome, error) {
	group, err := e.group(ctx, req.ChatID)
	if err != nil {
		return Outcome{}, err
	}
	if strings.TrimSpace(group.Rules) == "" {
		return Outcome{Reply: i18n.Get("📜 No rules set yet.", req.Lang)}, nil
	}
	return Outcome{Reply: fmt.Sprintf(i18n.Get("📜 Rules:\n%s", req.Lang), group.Rules)}, nil
}

func (e *Engine) SetRules(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorizeActorOnly(ctx, req, roles.CapEditRules); err != nil {
		return Outcome{}, err
	}
	text := strings.TrimSpace(setRulesPrefix.ReplaceAllString(req.Text, ""))
	if text == "" {
		return Outcome{}, fmt.Errorf("%w: empty rules text", ErrAmbiguousCommand)
	}
	group, err := e.group(ctx, req.ChatID)
	if err != nil {
		return Outcome{}, err
	}
	group.Rules = text
	if err := e.store.UpdateGroupConfig(ctx, group); err != nil {
		return Outcome{}, fmt.Errorf("update group: %w", err)
	}
	e.audit(ctx, req.ChatID, req.ActorID, "setrules", 0, "-")
	return Outcome{Reply: i18n.Get("✅ Rules updated.", req.Lang)}, nil
}

// Panel with no toggle token replies with the current switches; with one of
// antispam, welcome, captcha, forcejoin it flips that switch.
func (e *Engine) Panel(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorizeActorOnly(ctx, req, roles.CapPanel); err != nil {
		return Outcome{}, err
	}
	group, err := e.group(ctx, req.ChatID)
	if err != nil {
		return Outcome{}, err
	}

	toggled := ""
	fields := strings.Fields(strings.ToLower(req.Text))
	for _, field := range fields {
		switch field {
		case "antispam":
			group.AntispamEnabled = !group.AntispamEnabled
			toggled = field
		case "welcome":
			group.WelcomeEnabled = !group.WelcomeEnabled
			toggled = field
		case "captcha":
			group.CaptchaEnabled = !group.CaptchaEnabled
			toggled = field
		case "forcejoin":
			group.ForceJoinEnabled = !group.ForceJoinEnabled
			toggled = field
		}
		if toggled != "" {
			break
		}
	}
	if toggled != "" {
		if err := e.store.UpdateGroupConfig(ctx, group); err != nil {
			return Outcome{}, fmt.Errorf("update group: %w", err)
		}
		e.audit(ctx, req.ChatID, req.ActorID, "panel", 0, toggled)
	}

	mark := func(on bool) string {
		if on {
			return "✅"
		}
		return "❌"
	}
	reply := fmt.Sprintf(
		i18n.Get("⚙️ Panel\nAntispam: %s\nWelcome: %s\nCaptcha: %s\nForce-join: %s", req.Lang),
		mark(group.AntispamEnabled), mark(group.WelcomeEnabled),
		mark(group.CaptchaEnabled), mark(group.ForceJoinEnabled),
	)
	return Outcome{Reply: reply}, nil
}

// Tag mentions the target so mobile clients notify them.
func (e *Engine) Tag(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorizeActorOnly(ctx, req, roles.CapTag); err != nil {
		return Outcome{}, err
	}
	return Outcome{Reply: fmt.Sprintf(i18n.Get("📣 %s, you are needed here!", req.Lang), req.TargetName)}, nil
}

// SystemMute is the anti-flood path: no actor, no authorization, straight to
// the platform and the ledger.
func (e *Engine) SystemMute(ctx context.Context, chatID, userID int64, name, lang string, duration time.Duration) (Outcome, error) {
	unlock := e.locks.Lock(targetKey(chatID, userID))
	defer unlock()

	until := e.now().Add(duration)
	if err := e.platform.RestrictMember(ctx, chatID, userID, until); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPlatformRejected, err)
	}
	if err := e.store.SetMute(ctx, chatID, userID, until); err != nil {
		return Outcome{}, fmt.Errorf("set mute: %w", err)
	}
	e.audit(ctx, chatID, 0, "auto-mute", userID, "flood")
	return Outcome{Reply: fmt.Sprintf(i18n.Get("🔇 %s muted %s for flooding.", lang), name, HumanDuration(duration))}, nil
}

// EscalateLinkWarn is the link-spam path: the offending message is already
// gone, the sender takes a system warning with the usual escalation.
func (e *Engine) EscalateLinkWarn(ctx context.Context, chatID, userID int64, name, lang string) (Outcome, error) {
	unlock := e.locks.Lock(targetKey(chatID, userID))
	defer unlock()

	out, err := e.escalatingWarn(ctx, chatID, 0, userID, name, "link", lang)
	if err != nil || out.AutoBanned {
		return out, err
	}
	out.Reply = fmt.Sprintf(i18n.Get("🔗 Links are forbidden. %s", lang), out.Reply)
	return out, nil
}
