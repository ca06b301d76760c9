package db

import "time"

type (
	// Group is the per-chat configuration record. EmperorID stays 0 until
	// the chat creator is detected; it is never overwritten once set.
	Group struct {
		ID               int64     `db:"id"`
		Title            string    `db:"title"`
		EmperorID        int64     `db:"emperor_id"`
		Rules            string    `db:"rules"`
		Language         string    `db:"language"`
		WelcomeEnabled   bool      `db:"welcome_enabled"`
		AntispamEnabled  bool      `db:"antispam_enabled"`
		CaptchaEnabled   bool      `db:"captcha_enabled"`
		ForceJoinEnabled bool      `db:"force_join_enabled"`
		ForceJoinChannel string    `db:"force_join_channel"`
		CreatedAt        time.Time `db:"created_at"`
		UpdatedAt        time.Time `db:"updated_at"`
	}

	// RoleRecord stores an explicitly assigned role tag. Absence means the
	// lowest default role.
	RoleRecord struct {
		ChatID int64  `db:"chat_id"`
		UserID int64  `db:"user_id"`
		Role   string `db:"role"`
	}

	Warn struct {
		ChatID     int64  `db:"chat_id"`
		UserID     int64  `db:"user_id"`
		Count      int    `db:"count"`
		LastReason string `db:"last_reason"`
	}

	// Mute mirrors the platform-side restriction expiry for display and
	// audit. The platform's own timed restriction is the source of truth.
	Mute struct {
		ChatID    int64     `db:"chat_id"`
		UserID    int64     `db:"user_id"`
		ExpiresAt time.Time `db:"expires_at"`
	}

	AuditEntry struct {
		ID       int64     `db:"id"`
		ChatID   int64     `db:"chat_id"`
		ActorID  int64     `db:"actor_id"`
		Action   string    `db:"action"`
		TargetID int64     `db:"target_id"`
		Reason   string    `db:"reason"`
		TS       time.Time `db:"ts"`
	}

	Referral struct {
		RefUserID int64     `db:"ref_user_id"`
		NewUserID int64     `db:"new_user_id"`
		TS        time.Time `db:"ts"`
	}
)

func DefaultGroup(chatID int64, title, language string) *Group {
	return &Group{
		ID:              chatID,
		Title:           title,
		Language:        language,
		WelcomeEnabled:  true,
		AntispamEnabled: true,
		CaptchaEnabled:  true,
	}
}
