package rifmgr

import (
	"inet.af/netaddr"

	"github.com/veesix-networks/osvswitch/pkg/state"
)

type SubnetDiff struct {
	ToAdd     []netaddr.IPPrefix
	ToDel     []netaddr.IPPrefix
	Unchanged []netaddr.IPPrefix
}

func (d SubnetDiff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToDel) == 0
}

// DiffSubnets compares two subnet sets. Input order and duplicates do not
// affect the result; every list comes back sorted.
func DiffSubnets(old, new []netaddr.IPPrefix) SubnetDiff {
	oldSet := make(map[netaddr.IPPrefix]struct{}, len(old))
	for _, p := range old {
		oldSet[p] = struct{}{}
	}
	newSet := make(map[netaddr.IPPrefix]struct{}, len(new))
	for _, p := range new {
		newSet[p] = struct{}{}
	}

	var d SubnetDiff
	for p := range newSet {
		if _, ok := oldSet[p]; ok {
			d.Unchanged = append(d.Unchanged, p)
		} else {
			d.ToAdd = append(d.ToAdd, p)
		}
	}
	for p := range oldSet {
		if _, ok := newSet[p]; !ok {
			d.ToDel = append(d.ToDel, p)
		}
	}

	state.SortPrefixes(d.ToAdd)
	state.SortPrefixes(d.ToDel)
	state.SortPrefixes(d.Unchanged)
	return d
}
