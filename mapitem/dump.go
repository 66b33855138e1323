// mapitem/dump.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package mapitem

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/goforj/godump"
)

type groupDump struct {
	Name   string
	Serial SerialID
	Items  []string
	Groups []groupDump
}

func (g *Group) dumpTree() groupDump {
	d := groupDump{Name: g.Name(), Serial: g.SerialID()}
	for _, item := range g.Items() {
		d.Items = append(d.Items, fmt.Sprintf("%s %s %q", item.Kind(), item.UID(), item.Title()))
	}
	for _, c := range g.Groups() {
		d.Groups = append(d.Groups, c.dumpTree())
	}
	return d
}

// Dump returns a human-readable rendering of the subtree rooted at g,
// for debugging.
func (g *Group) Dump() string {
	return godump.DumpStr(g.dumpTree())
}

// Summary returns a one-line description of the size of g's subtree.
func (g *Group) Summary() string {
	ngroups := 0
	g.DeepForEachGroup(func(*Group) bool { ngroups++; return true })
	return fmt.Sprintf("%s: %s items in %s groups", g.Name(),
		humanize.Comma(int64(g.DeepItemCount())), humanize.Comma(int64(ngroups-1)))
}
