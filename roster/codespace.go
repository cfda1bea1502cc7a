package roster

import (
	"fmt"
	"sort"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// CODE SPACE INTEGRITY
// =============================================================================

// Collision describes two codes sharing letters where they may not.
type Collision struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

func (c Collision) Error() string {
	return fmt.Sprintf("%s: %s", c.Code, c.Reason)
}

func (c Collision) Unwrap() error { return generic.ErrCodeCollision }

// CheckCodeSpace reports shift codes that repeat letters within one
// (work post, day-type), special codes that share letters, and shift codes
// that share letters with a special code.
func CheckCodeSpace(shifts []ShiftCode, specials []SpecialCode) []Collision {
	var out []Collision

	type scope struct {
		code    string
		post    WorkPostID
		dayType DayType
	}
	seen := make(map[scope]string)
	for _, c := range shifts {
		k := scope{c.Code, c.WorkPostID, c.DayType}
		if other, ok := seen[k]; ok {
			out = append(out, Collision{Code: c.Code, Reason: fmt.Sprintf(
				"shift codes %s and %s share post %s and day-type %s", other, c.ID, c.WorkPostID, c.DayType)})
			continue
		}
		seen[k] = c.ID
	}

	special := make(map[string]string)
	terms := make(map[Term]string)
	for _, s := range specials {
		if other, ok := special[s.Code]; ok {
			out = append(out, Collision{Code: s.Code, Reason: fmt.Sprintf("special codes %s and %s share letters", other, s.ID)})
		}
		special[s.Code] = s.ID
		if s.Term != "" {
			if other, ok := terms[s.Term]; ok {
				out = append(out, Collision{Code: s.Code, Reason: fmt.Sprintf("term %s owned by %s and %s", s.Term, other, s.ID)})
			}
			terms[s.Term] = s.ID
		}
	}
	for _, c := range shifts {
		if id, ok := special[c.Code]; ok {
			out = append(out, Collision{Code: c.Code, Reason: fmt.Sprintf("shift code %s collides with special code %s", c.ID, id)})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}

// CanDeleteSpecialCode refuses codes that own a system term.
func CanDeleteSpecialCode(c SpecialCode) error {
	if c.Term != "" {
		return fmt.Errorf("special code %s owns term %s: %w", c.Code, c.Term, generic.ErrTermLocked)
	}
	return nil
}
