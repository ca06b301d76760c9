package roles

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"github.com/shirkavand/imperator/internal/db"
)

type resolverStore interface {
	GetGroup(ctx context.Context, chatID int64) (*db.Group, error)
	GetRole(ctx context.Context, chatID, userID int64) (string, error)
}

type memberStatusSource interface {
	MemberStatus(ctx context.Context, chatID, userID int64) (string, error)
}

// Resolver determines a user's effective role in a chat by combining the
// recorded emperor, the stored role assignment and the platform's own
// admin status.
type Resolver struct {
	store  resolverStore
	status memberStatusSource
}

func NewResolver(store resolverStore, status memberStatusSource) *Resolver {
	return &Resolver{store: store, status: status}
}

// Resolve applies precedence highest first: recorded emperor, stored queen,
// platform creator/administrator, stored role, citizen. A platform lookup
// failure falls through to the stored role rather than granting the trusted
// tier.
func (r *Resolver) Resolve(ctx context.Context, chatID, userID int64) Role {
	group, err := r.store.GetGroup(ctx, chatID)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		log.WithError(err).WithField("chat_id", chatID).Warn("cant load group for role resolution")
	}
	if group != nil && group.EmperorID != 0 && group.EmperorID == userID {
		return Emperor
	}

	stored := Citizen
	storedSet := false
	if tag, err := r.store.GetRole(ctx, chatID, userID); err == nil {
		stored = ParseTag(tag)
		storedSet = true
	} else if !errors.Is(err, db.ErrNotFound) {
		log.WithError(err).WithField("chat_id", chatID).Warn("cant load stored role")
	}
	if storedSet && stored == Queen {
		return Queen
	}

	status, err := r.status.MemberStatus(ctx, chatID, userID)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"chat_id": chatID,
			"user_id": userID,
		}).Debug("member status lookup failed, using stored role")
		return stored
	}
	if status == "creator" || status == "administrator" {
		return Consul
	}

	return stored
}
