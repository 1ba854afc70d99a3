package types

// Position is a zero-indexed line/character offset within a text document,
// matching LSP's own zero-indexed position convention on the wire. Callers
// at the capability-facade boundary work with 1-indexed lines; conversion
// happens at that boundary, not here.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open [Start, End) span within a text document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location points at a range within a specific file.
type Location struct {
	URI   string `json:"uri"`
	Range Range  `json:"range"`
}

// DefinitionHit is a single definition result, normalized for the
// capability facade: 1-indexed line, absolute filesystem path instead of a
// URI.
type DefinitionHit struct {
	Path      string `json:"path"`
	Line1     int    `json:"line1"`
	Character int    `json:"character"`
}
