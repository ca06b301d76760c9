package classifier

import (
	"testing"

	"github.com/shirkavand/imperator/internal/roles"
)

func TestClassifyEnglishAndPersian(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text string
		want Intent
	}{
		{"ban", IntentBan},
		{"please BAN him", IntentBan},
		{"تبعید", IntentBan},
		{"unban", IntentUnban},
		{"رفع تبعید", IntentUnban},
		{"mute 10m", IntentMute},
		{"سکوت ۱۰", IntentMute},
		{"unmute", IntentUnmute},
		{"رفع سکوت", IntentUnmute},
		{"warn", IntentWarn},
		{"اخطار", IntentWarn},
		{"unwarn", IntentUnwarn},
		{"حذف اخطار", IntentUnwarn},
		{"purge", IntentPurge},
		{"پاکسازی", IntentPurge},
		{"panel", IntentPanel},
		{"پنل", IntentPanel},
		{"rules", IntentRules},
		{"قوانین", IntentRules},
		{"set rules no links", IntentSetRules},
		{"setrules no links", IntentSetRules},
		{"تنظیم قوانین بدون لینک", IntentSetRules},
		{"promote knight", IntentPromote},
		{"ارتقا شوالیه", IntentPromote},
		{"تنظیم شوالیه", IntentPromote},
		{"demote", IntentDemote},
		{"تنزل", IntentDemote},
		{"hello everyone", IntentNone},
		{"banana", IntentNone},
	}
	for _, tt := range tests {
		if got := Classify(tt.text); got != tt.want {
			t.Fatalf("Classify(%q) = %q, want %q", tt.text, got, tt.want)
		}
	}
}

func TestRoleToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text   string
		want   roles.Role
		wantOK bool
	}{
		{"promote knight", roles.Knight, true},
		{"promote queen", roles.Queen, true},
		{"promote princess", roles.Princess, true},
		{"promote prince", roles.Prince, true},
		{"ارتقا دوک", roles.Duke, true},
		{"تنظیم بارون", roles.Baron, true},
		{"promote", roles.Citizen, false},
		{"promote emperor", roles.Citizen, false},
	}
	for _, tt := range tests {
		got, ok := RoleToken(tt.text)
		if ok != tt.wantOK || (ok && got != tt.want) {
			t.Fatalf("RoleToken(%q) = (%s, %v), want (%s, %v)", tt.text, got, ok, tt.want, tt.wantOK)
		}
	}
}
