package moderation

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/shirkavand/imperator/internal/classifier"
	"github.com/shirkavand/imperator/internal/config"
	"github.com/shirkavand/imperator/internal/db"
	"github.com/shirkavand/imperator/internal/i18n"
	"github.com/shirkavand/imperator/internal/roles"
)

type ledgerStore interface {
	GetGroup(ctx context.Context, chatID int64) (*db.Group, error)
	UpdateGroupConfig(ctx context.Context, group *db.Group) error
	SetRole(ctx context.Context, chatID, userID int64, role string) error
	DeleteRole(ctx context.Context, chatID, userID int64) error
	IncrementWarns(ctx context.Context, chatID, userID int64, reason string) (int, error)
	ResetWarns(ctx context.Context, chatID, userID int64) error
	SetMute(ctx context.Context, chatID, userID int64, expiresAt time.Time) error
	DeleteMute(ctx context.Context, chatID, userID int64) error
	AppendAudit(ctx context.Context, entry *db.AuditEntry) error
}

type roleResolver interface {
	Resolve(ctx context.Context, chatID, userID int64) roles.Role
}

// Request carries one classified moderation attempt: who acts, on whom, and
// the raw command text for argument parsing.
type Request struct {
	ChatID     int64
	ActorID    int64
	TargetID   int64
	TargetName string
	Text       string
	Lang       string
}

// Outcome is what the caller relays back to the chat.
type Outcome struct {
	Reply      string
	AutoBanned bool
	Failed     int // purge: per-message deletions that did not go through
}

// Engine applies a single moderation action transactionally: authorize,
// protect, invoke the platform, then update the ledger and audit trail.
// A failed platform call leaves the ledger untouched.
type Engine struct {
	store    ledgerStore
	platform Platform
	resolver roleResolver
	cfg      config.TribunalConfig

	locks *keyedMutex
	now   func() time.Time
}

func NewEngine(store ledgerStore, platform Platform, resolver roleResolver, cfg config.TribunalConfig) *Engine {
	return &Engine{
		store:    store,
		platform: platform,
		resolver: resolver,
		cfg:      cfg,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
}

func targetKey(chatID, userID int64) string {
	return fmt.Sprintf("%d:%d", chatID, userID)
}

// authorize runs the checks in a fixed order: capability, hierarchy,
// invariant guards (never the emperor, never oneself), then platform-admin
// protection for destructive actions.
func (e *Engine) authorize(ctx context.Context, req Request, capability roles.Capability, allowEqual, destructive bool) (roles.Role, roles.Role, error) {
	actorRole := e.resolver.Resolve(ctx, req.ChatID, req.ActorID)
	if !roles.HasCapability(actorRole, capability) {
		return actorRole, roles.Citizen, fmt.Errorf("%w: %s lacks %s", ErrAuthorizationDenied, actorRole, capability)
	}

	targetRole := e.resolver.Resolve(ctx, req.ChatID, req.TargetID)
	if !roles.CanActOn(actorRole, targetRole, allowEqual) {
		return actorRole, targetRole, fmt.Errorf("%w: %s cannot act on %s", ErrAuthorizationDenied, actorRole, targetRole)
	}

	if req.TargetID == req.ActorID {
		return actorRole, targetRole, fmt.Errorf("%w: self", ErrTargetProtected)
	}
	group, err := e.store.GetGroup(ctx, req.ChatID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.WithError(err).WithField("chat_id", req.ChatID).Warn("cant load group for protection check")
	}
	if group != nil && group.EmperorID != 0 && group.EmperorID == req.TargetID {
		return actorRole, targetRole, fmt.Errorf("%w: emperor", ErrTargetProtected)
	}

	if destructive && actorRole != roles.Emperor && actorRole != roles.Queen {
		status, err := e.platform.MemberStatus(ctx, req.ChatID, req.TargetID)
		if err == nil && (status == "creator" || status == "administrator") {
			return actorRole, targetRole, fmt.Errorf("%w: platform admin", ErrTargetProtected)
		}
	}

	return actorRole, targetRole, nil
}

func (e *Engine) audit(ctx context.Context, chatID, actorID int64, action string, targetID int64, reason string) {
	entry := &db.AuditEntry{
		ChatID:   chatID,
		ActorID:  actorID,
		Action:   action,
		TargetID: targetID,
		Reason:   reason,
		TS:       e.now(),
	}
	if err := e.store.AppendAudit(ctx, entry); err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"action":  action,
		}).Error("cant append audit entry")
	}
}

func (e *Engine) Ban(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorize(ctx, req, roles.CapBan, false, true); err != nil {
		return Outcome{}, err
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	if err := e.platform.BanMember(ctx, req.ChatID, req.TargetID); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPlatformRejected, err)
	}
	e.audit(ctx, req.ChatID, req.ActorID, "ban", req.TargetID, "-")
	return Outcome{Reply: fmt.Sprintf(i18n.Get("🚫 Banned: %s", req.Lang), req.TargetName)}, nil
}

func (e *Engine) Unban(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorize(ctx, req, roles.CapUnban, false, false); err != nil {
		return Outcome{}, err
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	if err := e.platform.UnbanMember(ctx, req.ChatID, req.TargetID); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPlatformRejected, err)
	}
	e.audit(ctx, req.ChatID, req.ActorID, "unban", req.TargetID, "-")
	return Outcome{Reply: fmt.Sprintf(i18n.Get("✅ Unbanned: %s", req.Lang), req.TargetName)}, nil
}

func (e *Engine) Mute(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorize(ctx, req, roles.CapMute, false, true); err != nil {
		return Outcome{}, err
	}
	duration := e.cfg.DefaultMute
	if d, ok := ParseDurationToken(req.Text); ok {
		duration = d
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	until := e.now().Add(duration)
	if err := e.platform.RestrictMember(ctx, req.ChatID, req.TargetID, until); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPlatformRejected, err)
	}
	if err := e.store.SetMute(ctx, req.ChatID, req.TargetID, until); err != nil {
		log.WithError(err).Error("cant mirror mute record")
	}
	e.audit(ctx, req.ChatID, req.ActorID, "mute", req.TargetID, "-")
	return Outcome{Reply: fmt.Sprintf(i18n.Get("🔇 Muted %s for %s", req.Lang), req.TargetName, HumanDuration(duration))}, nil
}

// Unmute restores full send permissions. Succeeds even when no mute record
// exists.
func (e *Engine) Unmute(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorize(ctx, req, roles.CapUnmute, false, false); err != nil {
		return Outcome{}, err
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	if err := e.platform.UnrestrictMember(ctx, req.ChatID, req.TargetID); err != nil {
		return Outcome{}, fmt.Errorf("%w: %v", ErrPlatformRejected, err)
	}
	if err := e.store.DeleteMute(ctx, req.ChatID, req.TargetID); err != nil {
		log.WithError(err).Error("cant delete mute record")
	}
	e.audit(ctx, req.ChatID, req.ActorID, "unmute", req.TargetID, "-")
	return Outcome{Reply: fmt.Sprintf(i18n.Get("🔊 Unmuted: %s", req.Lang), req.TargetName)}, nil
}

func (e *Engine) Warn(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorize(ctx, req, roles.CapWarn, false, true); err != nil {
		return Outcome{}, err
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	return e.escalatingWarn(ctx, req.ChatID, req.ActorID, req.TargetID, req.TargetName, "-", req.Lang)
}

// escalatingWarn increments the warning record and converts the limit-th
// warning into a ban plus a counter reset, exactly once per crossing. The
// caller must hold the target's key lock.
func (e *Engine) escalatingWarn(ctx context.Context, chatID, actorID, targetID int64, targetName, reason, lang string) (Outcome, error) {
	count, err := e.store.IncrementWarns(ctx, chatID, targetID, reason)
	if err != nil {
		return Outcome{}, fmt.Errorf("increment warns: %w", err)
	}
	e.audit(ctx, chatID, actorID, "warn", targetID, reason)

	if count < e.cfg.WarnLimit {
		return Outcome{Reply: fmt.Sprintf(i18n.Get("⚠️ Warning %d/%d for %s", lang), count, e.cfg.WarnLimit, targetName)}, nil
	}

	if err := e.platform.BanMember(ctx, chatID, targetID); err != nil {
		// the counter stays at the limit; the next warn retries the ban
		return Outcome{}, fmt.Errorf("%w: %v", ErrPlatformRejected, err)
	}
	if err := e.store.ResetWarns(ctx, chatID, targetID); err != nil {
		log.WithError(err).Error("cant reset warns after escalation")
	}
	e.audit(ctx, chatID, actorID, "ban", targetID, reason)
	return Outcome{
		Reply:      fmt.Sprintf(i18n.Get("🚫 %d warnings → banned.", lang), e.cfg.WarnLimit),
		AutoBanned: true,
	}, nil
}

func (e *Engine) Unwarn(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorize(ctx, req, roles.CapUnwarn, false, false); err != nil {
		return Outcome{}, err
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	if err := e.store.ResetWarns(ctx, req.ChatID, req.TargetID); err != nil {
		return Outcome{}, fmt.Errorf("reset warns: %w", err)
	}
	e.audit(ctx, req.ChatID, req.ActorID, "unwarn", req.TargetID, "-")
	return Outcome{Reply: i18n.Get("✅ Warnings reset.", req.Lang)}, nil
}

func (e *Engine) Promote(ctx context.Context, req Request) (Outcome, error) {
	requested, ok := classifier.RoleToken(req.Text)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: no role token", ErrAmbiguousCommand)
	}
	actorRole, _, err := e.authorize(ctx, req, roles.CapPromote, true, false)
	if err != nil {
		return Outcome{}, err
	}
	// assigning a rank above one's own is never allowed, even for peers
	if !roles.CanActOn(actorRole, requested, true) {
		return Outcome{}, fmt.Errorf("%w: requested rank above actor", ErrAuthorizationDenied)
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	if err := e.store.SetRole(ctx, req.ChatID, req.TargetID, requested.Tag()); err != nil {
		return Outcome{}, fmt.Errorf("set role: %w", err)
	}
	e.audit(ctx, req.ChatID, req.ActorID, "promote", req.TargetID, requested.Tag())
	return Outcome{Reply: fmt.Sprintf(i18n.Get("✅ Promoted: %s → %s", req.Lang), req.TargetName, requested.Label(req.Lang))}, nil
}

// Demote removes the stored assignment, returning the target to their
// platform-derived default.
func (e *Engine) Demote(ctx context.Context, req Request) (Outcome, error) {
	if _, _, err := e.authorize(ctx, req, roles.CapDemote, false, false); err != nil {
		return Outcome{}, err
	}
	unlock := e.locks.Lock(targetKey(req.ChatID, req.TargetID))
	defer unlock()

	if err := e.store.DeleteRole(ctx, req.ChatID, req.TargetID); err != nil {
		return Outcome{}, fmt.Errorf("delete role: %w", err)
	}
	e.audit(ctx, req.ChatID, req.ActorID, "demote", req.TargetID, "-")
	return Outcome{Reply: fmt.Sprintf(i18n.Get("✅ Demoted: %s → %s", req.Lang), req.TargetName, roles.Citizen.Label(req.Lang))}, nil
}

// Purge deletes every message in the inclusive [fromID, toID] range.
// Individual failures do not abort the sweep; one audit entry covers the
// whole range regardless.
func (e *Engine) Purge(ctx context.Context, req Request, fromID, toID int) (Outcome, error) {
	if _, _, err := e.authorizeActorOnly(ctx, req, roles.CapPurge); err != nil {
		return Outcome{}, err
	}

	deleted, failed := 0, 0
	for id := fromID; id <= toID; id++ {
		if err := e.platform.DeleteMessage(ctx, req.ChatID, id); err != nil {
			failed++
			continue
		}
		deleted++
	}
	e.audit(ctx, req.ChatID, req.ActorID, "purge", 0, fmt.Sprintf("%d deleted, %d failed", deleted, failed))
	return Outcome{
		Reply:  fmt.Sprintf(i18n.Get("🧹 Purged %d messages.", req.Lang), deleted),
		Failed: failed,
	}, nil
}

// authorizeActorOnly checks only the actor's capability, for actions with
// no moderated target.
func (e *Engine) authorizeActorOnly(ctx context.Context, req Request, capability roles.Capability) (roles.Role, roles.Role, error) {
	actorRole := e.resolver.Resolve(ctx, req.ChatID, req.ActorID)
	if !roles.HasCapability(actorRole, capability) {
		return actorRole, roles.Citizen, fmt.Errorf("%w: %s lacks %s", ErrAuthorizationDenied, actorRole, capability)
	}
	return actorRole, roles.Citizen, nil
}
