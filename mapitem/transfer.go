// mapitem/transfer.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapitem

// TransferKey is the boolean metadata flag that marks an item as being
// moved between groups. While it is set, observers of the group tree
// treat a removal as the first half of a relocation rather than as the
// item going away, and the matching add as a group change.
const TransferKey = "mapcore.groupTransfer"

// InTransfer reports whether item is in the middle of a group transfer.
func InTransfer(item Item) bool {
	return item.GetBool(TransferKey, false)
}

// Transfer moves item from its current group to dest, marking it with
// TransferKey for the duration of the move so that observers see a
// single relocation rather than a removal followed by an addition. Any
// value the caller had stored under TransferKey is restored afterward.
// An item that has no group is simply added to dest. Transfer returns
// false if the item is already in dest.
func Transfer(item Item, dest *Group) bool {
	if dest == nil {
		panic("mapitem: Transfer called with nil destination")
	}

	src := item.Group()
	if src == dest {
		return false
	}
	if src == nil {
		return dest.AddItem(item)
	}

	prev, had := item.Entry(TransferKey)
	item.SetBool(TransferKey, true)
	defer func() {
		if had {
			item.SetEntry(TransferKey, prev)
		} else {
			item.Remove(TransferKey)
		}
	}()

	return dest.AddItem(item)
}

// Transfer moves item into g; see the package-level Transfer.
func (g *Group) Transfer(item Item) bool {
	return Transfer(item, g)
}
