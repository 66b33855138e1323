// overlay/query.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package overlay

import (
	"slices"

	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/mapitem"
)

// GroupQuery answers queries by searching the subtree of a group.
type GroupQuery struct {
	Group *mapitem.Group
}

func (q GroupQuery) DeepFindItem(meta map[string]string) (mapitem.Item, bool) {
	if q.Group == nil {
		return nil, false
	}
	return q.Group.DeepFindFirst(func(item mapitem.Item) bool { return matchesMeta(item, meta) })
}

// DeepFindClosestItem prefilters candidates by geohash cell when a
// threshold is given so that only items in the neighborhood of p have
// their distance computed.
func (q GroupQuery) DeepFindClosestItem(p geo.Point, thresholdMeters float64, meta map[string]string) (mapitem.Item, bool) {
	if q.Group == nil {
		return nil, false
	}

	var cells []string
	prec := 0
	if thresholdMeters > 0 {
		if prec = p.NeighborhoodPrecision(thresholdMeters); prec > 0 {
			cells = p.GeohashNeighbors(prec)
		}
	}

	var best mapitem.Item
	var bestDist float64
	q.Group.DeepForEachItem(func(item mapitem.Item) bool {
		c, ok := item.Center()
		if !ok || !matchesMeta(item, meta) {
			return true
		}
		if prec > 0 && !slices.Contains(cells, c.Geohash(prec)) {
			return true
		}
		d := p.DistanceMeters(c)
		if thresholdMeters > 0 && d > thresholdMeters {
			return true
		}
		if best == nil || d < bestDist {
			best, bestDist = item, d
		}
		return true
	})
	return best, best != nil
}

func matchesMeta(item mapitem.Item, meta map[string]string) bool {
	for k, v := range meta {
		if !item.Has(k) || item.GetString(k, "") != v {
			return false
		}
	}
	return true
}
