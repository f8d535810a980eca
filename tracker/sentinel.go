package tracker

// Absence is the reason a value is missing from a record. It is
// serialized as the literal text downstream consumers already expect.
type Absence int

const (
	// Unset means the value was never looked up or the lookup target does
	// not exist, e.g. the package is not in the status table.
	Unset Absence = iota
	// NoMatch means the lookup ran but nothing matched.
	NoMatch
)

func (a Absence) String() string {
	switch a {
	case NoMatch:
		return "not found"
	default:
		return "N/A"
	}
}

func (a Absence) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// IsAbsent reports whether s is one of the absence sentinels.
func IsAbsent(s string) bool {
	return s == Unset.String() || s == NoMatch.String()
}
