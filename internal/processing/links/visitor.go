package links

import "github.com/google/uuid"

// DeriveVisitorID returns the client's own visitor hint verbatim, or a fresh
// random id when there is none. Synthesized ids are not stable across
// requests, so unique-visitor counts undercount returning visitors that
// send no hint.
func DeriveVisitorID(hint string) string {
	if hint != "" {
		return hint
	}
	return uuid.NewString()
}
