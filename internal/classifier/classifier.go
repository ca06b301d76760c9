package classifier

import (
	"regexp"

	"github.com/shirkavand/imperator/internal/roles"
)

// Intent is the recognized moderation command, if any. Commands are plain
// keywords in English or Persian, no slash prefix.
type Intent string

const (
	IntentNone     Intent = ""
	IntentBan      Intent = "ban"
	IntentUnban    Intent = "unban"
	IntentMute     Intent = "mute"
	IntentUnmute   Intent = "unmute"
	IntentWarn     Intent = "warn"
	IntentUnwarn   Intent = "unwarn"
	IntentPromote  Intent = "promote"
	IntentDemote   Intent = "demote"
	IntentPurge    Intent = "purge"
	IntentPanel    Intent = "panel"
	IntentRules    Intent = "rules"
	IntentSetRules Intent = "setrules"
	IntentTag      Intent = "tag"
)

type keywordSet struct {
	intent   Intent
	patterns []*regexp.Regexp
}

func compile(patterns ...string) []*regexp.Regexp {
	compiled := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		compiled = append(compiled, regexp.MustCompile(p))
	}
	return compiled
}

// Order matters: compound keywords (setrules, unban, unmute, unwarn) must be
// tried before their shorter cousins, and FA "تنظیم قوانین" before the bare
// promote keyword "تنظیم".
var keywords = []keywordSet{
	{IntentSetRules, compile(`(?i)\bset\s?rules\b`, `تنظیم\s?قوانین`)},
	{IntentRules, compile(`(?i)\brules\b`, `قوانین`)},
	{IntentUnban, compile(`(?i)\bunban\b`, `آزاد(?:\s|)سازی|رفع\s?بن|رفع\s?تبعید`)},
	{IntentBan, compile(`(?i)\bban\b`, `تبعید`)},
	{IntentUnmute, compile(`(?i)\bunmute\b`, `رفع\s?سکوت|آزاد\s?از\s?سکوت`)},
	{IntentMute, compile(`(?i)\bmute\b`, `سکوت|میوت`)},
	{IntentUnwarn, compile(`(?i)\bunwarn\b`, `حذف\s?اخطار|ریست\s?اخطار`)},
	{IntentWarn, compile(`(?i)\bwarn\b`, `اخطار`)},
	{IntentPurge, compile(`(?i)\bpurge\b`, `پاکسازی|پاک\s?کردن`)},
	{IntentPanel, compile(`(?i)\bpanel\b`, `پنل`)},
	{IntentPromote, compile(`(?i)\bpromote\b`, `ارتقا|تنظیم`)},
	{IntentDemote, compile(`(?i)\bdemote\b`, `تنزل|کاهش\s?رتبه`)},
	{IntentTag, compile(`(?i)\btag\b`, `فراخوان|صدا\s?زدن`)},
}

var roleKeywords = []struct {
	role     roles.Role
	patterns []*regexp.Regexp
}{
	{roles.Queen, compile(`(?i)\bqueen\b`, `ملکه`)},
	{roles.Knight, compile(`(?i)\bknight\b`, `شوالیه`)},
	{roles.Princess, compile(`(?i)\bprincess\b`, `پرنسس`)},
	{roles.Prince, compile(`(?i)\bprince\b`, `شاهزاده`)},
	{roles.Duke, compile(`(?i)\bduke\b`, `دوک`)},
	{roles.Baron, compile(`(?i)\bbaron\b`, `بارون`)},
	{roles.Citizen, compile(`(?i)\bcitizen\b`, `شهروند`)},
}

func matchAny(text string, patterns []*regexp.Regexp) bool {
	for _, p := range patterns {
		if p.MatchString(text) {
			return true
		}
	}
	return false
}

// Classify returns the first recognized intent in text, or IntentNone.
func Classify(text string) Intent {
	for _, kw := range keywords {
		if matchAny(text, kw.patterns) {
			return kw.intent
		}
	}
	return IntentNone
}

// RoleToken extracts the requested role from a promote command. The second
// return is false when no role keyword is present.
func RoleToken(text string) (roles.Role, bool) {
	for _, rk := range roleKeywords {
		if matchAny(text, rk.patterns) {
			return rk.role, true
		}
	}
	return roles.Citizen, false
}
