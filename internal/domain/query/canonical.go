package query

// Intent says which assessment categories a query needs.
type Intent struct {
	NeedsTechnical bool
	NeedsSoftSkill bool
}

// Mixed reports whether both categories are needed.
func (i Intent) Mixed() bool {
	return i.NeedsTechnical && i.NeedsSoftSkill
}

// Canonical is the deterministic text form of a query plus its intent.
type Canonical struct {
	Text   string
	Intent Intent
}
