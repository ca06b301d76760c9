package roles

// Role is the fixed total order of chat ranks, lowest to highest. The zero
// value is the default rank for anyone without a stored assignment.
type Role int

const (
	Citizen Role = iota
	Baron
	Duke
	Princess
	Prince
	Knight
	Consul
	Queen
	Emperor
)

var tags = map[Role]string{
	Citizen:  "citizen",
	Baron:    "baron",
	Duke:     "duke",
	Princess: "princess",
	Prince:   "prince",
	Knight:   "knight",
	Consul:   "consul",
	Queen:    "queen",
	Emperor:  "emperor",
}

var labelsFA = map[Role]string{
	Citizen:  "شهروند",
	Baron:    "بارون",
	Duke:     "دوک",
	Princess: "پرنسس",
	Prince:   "شاهزاده",
	Knight:   "شوالیه",
	Consul:   "کنسول",
	Queen:    "ملکه",
	Emperor:  "امپراتور",
}

var labelsEN = map[Role]string{
	Citizen:  "Citizen",
	Baron:    "Baron",
	Duke:     "Duke",
	Princess: "Princess",
	Prince:   "Prince",
	Knight:   "Knight",
	Consul:   "Consul",
	Queen:    "Queen",
	Emperor:  "Emperor",
}

// Tag is the storage representation of the role.
func (r Role) Tag() string {
	if tag, ok := tags[r]; ok {
		return tag
	}
	return tags[Citizen]
}

func (r Role) Rank() int {
	if r < Citizen || r > Emperor {
		return int(Citizen)
	}
	return int(r)
}

func (r Role) Label(lang string) string {
	if lang == "fa" {
		return labelsFA[r]
	}
	return labelsEN[r]
}

func (r Role) String() string { return r.Tag() }

// ParseTag resolves a stored role tag. Unknown tags collapse to Citizen.
func ParseTag(tag string) Role {
	for role, t := range tags {
		if t == tag {
			return role
		}
	}
	return Citizen
}

// CanActOn reports whether actor may moderate target. The two top ranks act
// on anyone unconditionally; everyone else must strictly outrank the target,
// or match it when allowEqual is set.
func CanActOn(actor, target Role, allowEqual bool) bool {
	if actor == Emperor || actor == Queen {
		return true
	}
	if allowEqual {
		return actor.Rank() >= target.Rank()
	}
	return actor.Rank() > target.Rank()
}
