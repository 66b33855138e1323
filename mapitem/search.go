// mapitem/search.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapitem

// FindGroup returns the child of g with the given name.
func (g *Group) FindGroup(name string) (*Group, bool) {
	for _, c := range g.Groups() {
		if c.Name() == name {
			return c, true
		}
	}
	return nil, false
}

// DeepFindGroup does a breadth-first search of g's subtree (excluding g
// itself) for a group with the given name.
func (g *Group) DeepFindGroup(name string) (*Group, bool) {
	var found *Group
	g.walkGroups(func(c *Group) bool {
		if c != g && c.Name() == name {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

// DeepFindGroupSerial searches g's subtree, including g, for the group
// with the given serial id.
func (g *Group) DeepFindGroupSerial(serial SerialID) (*Group, bool) {
	var found *Group
	g.walkGroups(func(c *Group) bool {
		if c.SerialID() == serial {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

// DeepFindGroupUID searches g's subtree, including g, for the group with
// the given UID.
func (g *Group) DeepFindGroupUID(uid string) (*Group, bool) {
	var found *Group
	g.walkGroups(func(c *Group) bool {
		if c.UID() == uid {
			found = c
			return false
		}
		return true
	})
	return found, found != nil
}

// FindOrCreatePath walks down from g following the given group names,
// creating any groups that don't exist yet, and returns the last one.
func (g *Group) FindOrCreatePath(path ...string) *Group {
	c := g
	for _, name := range path {
		next, ok := c.FindGroup(name)
		if !ok {
			next = c.AddNewGroup(name)
		}
		c = next
	}
	return c
}

// FindItem returns the item in g (but not its children) with the given
// serial id.
func (g *Group) FindItem(serial SerialID) (Item, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	item, ok := g.itemIndex[serial]
	return item, ok
}

// DeepFindItem does a breadth-first search of g's subtree for the item
// with the given serial id.
func (g *Group) DeepFindItem(serial SerialID) (Item, bool) {
	var found Item
	g.walkGroups(func(c *Group) bool {
		if item, ok := c.FindItem(serial); ok {
			found = item
			return false
		}
		return true
	})
	return found, found != nil
}

// DeepFindUID does a breadth-first search of g's subtree for the item
// with the given UID.
func (g *Group) DeepFindUID(uid string) (Item, bool) {
	return g.DeepFindFirst(func(item Item) bool { return item.UID() == uid })
}

// DeepFindItemByMeta returns the first item, in breadth-first order,
// whose string metadata value for key is value.
func (g *Group) DeepFindItemByMeta(key, value string) (Item, bool) {
	return g.DeepFindFirst(func(item Item) bool {
		return item.Has(key) && item.GetString(key, "") == value
	})
}

// DeepFindFirst returns the first item, in breadth-first order, for
// which pred returns true.
func (g *Group) DeepFindFirst(pred func(Item) bool) (Item, bool) {
	var found Item
	g.walkGroups(func(c *Group) bool {
		for _, item := range c.Items() {
			if pred(item) {
				found = item
				return false
			}
		}
		return true
	})
	return found, found != nil
}

// DeepFindItems returns all of the items in g's subtree for which pred
// returns true, in breadth-first order.
func (g *Group) DeepFindItems(pred func(Item) bool) []Item {
	var items []Item
	g.walkGroups(func(c *Group) bool {
		for _, item := range c.Items() {
			if pred(item) {
				items = append(items, item)
			}
		}
		return true
	})
	return items
}

// DeepForEachItem calls fn for each item in g's subtree in depth-first
// order: a group's own items are visited before those of its children.
// Iteration stops if fn returns false; the return value reports whether
// the iteration ran to completion.
func (g *Group) DeepForEachItem(fn func(Item) bool) bool {
	for _, item := range g.Items() {
		if !fn(item) {
			return false
		}
	}
	for _, c := range g.Groups() {
		if !c.DeepForEachItem(fn) {
			return false
		}
	}
	return true
}

// DeepForEachGroup calls fn for g and each group in its subtree, in
// depth-first order, stopping if fn returns false.
func (g *Group) DeepForEachGroup(fn func(*Group) bool) bool {
	if !fn(g) {
		return false
	}
	for _, c := range g.Groups() {
		if !c.DeepForEachGroup(fn) {
			return false
		}
	}
	return true
}

func (g *Group) DeepItemCount() int {
	n := 0
	g.walkGroups(func(c *Group) bool {
		n += c.ItemCount()
		return true
	})
	return n
}

// walkGroups visits g and its descendants breadth-first until fn returns
// false.
func (g *Group) walkGroups(fn func(*Group) bool) {
	queue := []*Group{g}
	for len(queue) > 0 {
		c := queue[0]
		queue = queue[1:]
		if !fn(c) {
			return
		}
		queue = append(queue, c.Groups()...)
	}
}
