package domain

// Track is one resolved, playable media reference.
// Values are never mutated after the resolver hands them out.
type Track struct {
	Title   string `json:"title"`
	Locator string `json:"locator"`
}
