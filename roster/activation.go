package roster

import (
	"fmt"

	"github.com/warp/roster-engine/generic"
)

// =============================================================================
// VERSION ACTIVATION - append-only configuration
// =============================================================================

// ActivateTypeTable marks version id active from `from` and archives the
// previously active version with effective_to = from. It returns only the
// versions that changed.
func ActivateTypeTable(versions []TypeTableVersion, id string, from generic.Date) ([]TypeTableVersion, error) {
	var (
		target  *TypeTableVersion
		changed []TypeTableVersion
	)
	for i := range versions {
		if versions[i].ID == id {
			target = &versions[i]
		}
	}
	if target == nil {
		return nil, fmt.Errorf("type-table %s: %w", id, generic.ErrNotFound)
	}
	for _, v := range versions {
		if v.ID == id || v.Status != TypeTableActive {
			continue
		}
		if from.BeforeOrEqual(v.EffectiveFrom) {
			return nil, fmt.Errorf("activate %s on %s: active version %s starts %s: %w",
				id, from, v.ID, v.EffectiveFrom, generic.ErrInvalidPeriod)
		}
		end := from
		v.Status = TypeTableArchived
		v.EffectiveTo = &end
		changed = append(changed, v)
	}
	next := *target
	next.Status = TypeTableActive
	next.EffectiveFrom = from
	next.EffectiveTo = nil
	return append(changed, next), nil
}

// ActivateRule closes the open version of next.Name with effective_to =
// next.EffectiveFrom and returns the changed rows followed by next.
func ActivateRule(existing []HRRule, next HRRule) ([]HRRule, error) {
	if err := ValidateRuleValue(next.Name, next.Value); err != nil {
		return nil, err
	}
	next.Active = true
	next.EffectiveTo = nil

	var changed []HRRule
	for _, r := range existing {
		if r.Name != next.Name || !r.Active || r.ID == next.ID {
			continue
		}
		if r.EffectiveTo != nil && !r.EffectiveTo.After(next.EffectiveFrom) {
			continue
		}
		if !r.EffectiveFrom.Before(next.EffectiveFrom) {
			return nil, fmt.Errorf("rule %s: version from %s is not after %s: %w",
				next.Name, next.EffectiveFrom, r.EffectiveFrom, generic.ErrInvalidPeriod)
		}
		end := next.EffectiveFrom
		r.EffectiveTo = &end
		changed = append(changed, r)
	}
	return append(changed, next), nil
}
