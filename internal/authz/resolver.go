package authz

// EffectiveCapability folds the grants for a category into the capability
// triple for a user holding the given roles. Each bit is the boolean OR of
// that bit over every grant whose role the user holds; no matching grants, or
// an empty role set, yields all-false. Pure function of its inputs.
func EffectiveCapability(grants []Grant, held map[uint64]struct{}) Capability {
	var eff Capability
	if len(held) == 0 {
		return eff
	}
	for _, g := range grants {
		if _, ok := held[g.RoleID]; !ok {
			continue
		}
		eff.View = eff.View || g.View
		eff.Create = eff.Create || g.Create
		eff.Manage = eff.Manage || g.Manage
	}
	return eff
}

func roleSet(ids []uint64) map[uint64]struct{} {
	set := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
