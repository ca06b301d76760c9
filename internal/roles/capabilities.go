package roles

// Capability is a named moderation permission a role may hold.
type Capability string

const (
	CapBan       Capability = "ban"
	CapUnban     Capability = "unban"
	CapMute      Capability = "mute"
	CapUnmute    Capability = "unmute"
	CapWarn      Capability = "warn"
	CapUnwarn    Capability = "unwarn"
	CapPurge     Capability = "purge"
	CapPromote   Capability = "promote"
	CapDemote    Capability = "demote"
	CapViewRules Capability = "view_rules"
	CapEditRules Capability = "edit_rules"
	CapPanel     Capability = "panel"
	CapTag       Capability = "tag"
)

var (
	citizenCaps = capSet(CapViewRules)
	gentryCaps  = capSet(CapViewRules, CapBan, CapMute, CapWarn)
	consulCaps  = capSet(
		CapViewRules, CapEditRules, CapPanel, CapTag,
		CapBan, CapUnban, CapMute, CapUnmute, CapWarn, CapUnwarn, CapPurge,
	)
	crownCaps = capSet(
		CapViewRules, CapEditRules, CapPanel, CapTag,
		CapBan, CapUnban, CapMute, CapUnmute, CapWarn, CapUnwarn, CapPurge,
		CapPromote, CapDemote,
	)
)

var matrix = map[Role]map[Capability]struct{}{
	Citizen:  citizenCaps,
	Baron:    gentryCaps,
	Duke:     gentryCaps,
	Princess: gentryCaps,
	Prince:   gentryCaps,
	Knight:   gentryCaps,
	Consul:   consulCaps,
	Queen:    crownCaps,
	Emperor:  crownCaps,
}

func capSet(caps ...Capability) map[Capability]struct{} {
	set := make(map[Capability]struct{}, len(caps))
	for _, c := range caps {
		set[c] = struct{}{}
	}
	return set
}

func HasCapability(role Role, capability Capability) bool {
	caps, ok := matrix[role]
	if !ok {
		caps = citizenCaps
	}
	_, has := caps[capability]
	return has
}
