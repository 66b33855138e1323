// mapview/mapview.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// Package mapview ties together the state of a single map view: its
// group tree, event dispatcher, overlays, layers, and search providers.
// Each MapView is independent, so a process may hold several.
package mapview

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tacmap/mapcore/event"
	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/layer"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapitem"
	"github.com/tacmap/mapcore/overlay"
	"github.com/tacmap/mapcore/store"

	"github.com/goforj/godump"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

type Options struct {
	Name    string
	Log     *log.Logger
	Metrics *event.Metrics // may be nil
	// CacheSize and CacheTTL configure the UID lookup cache.
	CacheSize int
	CacheTTL  time.Duration
}

// MapView is the context object for one map view. It owns the root
// group and wires the dispatcher to it through a forwarder, so every
// change to the tree is dispatched as an event.
type MapView struct {
	name string
	lg   *log.Logger

	root       *mapitem.Group
	dispatcher *event.Dispatcher
	forwarder  *event.Forwarder
	overlays   *overlay.Manager
	legacy     *overlay.LegacyBridge
	layers     *layer.LayerBinLayer
	cache      *expirable.LRU[string, mapitem.Item]
	evictor    event.Listener

	mu        sync.Mutex
	searches  []LocationSearch
	persister *store.Persister
	disposed  bool
}

func New(opts Options) *MapView {
	if opts.Name == "" {
		opts.Name = "map"
	}
	if opts.CacheSize == 0 {
		opts.CacheSize = 1024
	}
	if opts.CacheTTL == 0 {
		opts.CacheTTL = 10 * time.Minute
	}
	lg := opts.Log.With(slog.String("view", opts.Name))

	root := mapitem.NewGroup(opts.Name, lg)
	d := event.NewDispatcher(lg, opts.Metrics)
	f := event.NewForwarder(d, lg)
	f.Attach(root)
	om := overlay.NewManager(root, lg)

	v := &MapView{
		name:       opts.Name,
		lg:         lg,
		root:       root,
		dispatcher: d,
		forwarder:  f,
		overlays:   om,
		legacy:     overlay.NewLegacyBridge(om, lg),
		layers:     layer.NewLayerBinLayer(opts.Name, lg),
		cache:      expirable.NewLRU[string, mapitem.Item](opts.CacheSize, nil, opts.CacheTTL),
	}

	// Removed items must not be served from the cache.
	v.evictor = event.NewListener(func(e event.Event) {
		if item := e.Item(); item != nil {
			v.cache.Remove(item.UID())
		}
	})
	d.AddListenerToBase(event.ItemRemoved, v.evictor)

	lg.Info("created map view")
	return v
}

func (v *MapView) Name() string                        { return v.name }
func (v *MapView) Root() *mapitem.Group                { return v.root }
func (v *MapView) Dispatcher() *event.Dispatcher       { return v.dispatcher }
func (v *MapView) Forwarder() *event.Forwarder         { return v.forwarder }
func (v *MapView) Overlays() *overlay.Manager          { return v.overlays }
func (v *MapView) LegacyBridge() *overlay.LegacyBridge { return v.legacy }
func (v *MapView) Layers() *layer.LayerBinLayer        { return v.layers }

// FindItem returns the item in the view's tree with the given UID.
func (v *MapView) FindItem(uid string) (mapitem.Item, bool) {
	if item, ok := v.cache.Get(uid); ok {
		if g := item.Group(); !item.Disposed() && g != nil && v.root.IsAncestorOf(g) {
			return item, true
		}
		v.cache.Remove(uid)
	}

	item, ok := v.root.DeepFindUID(uid)
	if ok {
		v.cache.Add(uid, item)
	}
	return item, ok
}

// AttachStore loads the items in s into the tree and then keeps s up to
// date as the tree changes.
func (v *MapView) AttachStore(ctx context.Context, s *store.Store) (int, error) {
	n, err := s.Load(ctx, v.root)
	if err != nil {
		return 0, err
	}

	p := store.NewPersister(s, v.lg)
	p.Register(v.dispatcher)

	v.mu.Lock()
	old := v.persister
	v.persister = p
	v.mu.Unlock()

	if old != nil {
		old.Unregister(v.dispatcher)
	}
	return n, nil
}

// Dispose tears down the view. Listeners are removed before the tree is
// disposed so that disposal is not reported, and in particular not
// persisted, as the deletion of every item.
func (v *MapView) Dispose() {
	v.mu.Lock()
	if v.disposed {
		v.mu.Unlock()
		return
	}
	v.disposed = true
	v.searches = nil
	v.persister = nil
	v.mu.Unlock()

	v.legacy.Close()
	v.dispatcher.Clear()
	v.forwarder.Detach(v.root)
	v.root.Dispose()
	v.cache.Purge()
	v.lg.Info("disposed map view")
}

func (v *MapView) Disposed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.disposed
}

///////////////////////////////////////////////////////////////////////////
// Location search

// SearchResult is a single match from a LocationSearch.
type SearchResult struct {
	Title string
	Point geo.Point
	Item  mapitem.Item // nil for results that aren't map items
}

// LocationSearch is implemented by providers that can resolve a search
// term to locations, such as a gazetteer or a coordinate parser.
type LocationSearch interface {
	Name() string
	Search(term string) []SearchResult
}

func (v *MapView) AddLocationSearch(s LocationSearch) bool {
	v.mu.Lock()
	defer v.mu.Unlock()

	if slices.Contains(v.searches, s) {
		v.lg.Warn("location search already registered", slog.String("search", s.Name()))
		return false
	}
	v.searches = append(v.searches, s)
	return true
}

func (v *MapView) RemoveLocationSearch(s LocationSearch) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.searches = slices.DeleteFunc(v.searches, func(ls LocationSearch) bool { return ls == s })
}

// Search returns the results from each registered provider, in the order
// the providers were registered.
func (v *MapView) Search(term string) []SearchResult {
	v.mu.Lock()
	searches := slices.Clone(v.searches)
	v.mu.Unlock()

	var results []SearchResult
	for _, s := range searches {
		results = append(results, s.Search(term)...)
	}
	return results
}

// ItemSearch is a LocationSearch over the titles of the items in a
// group tree.
type ItemSearch struct {
	Root *mapitem.Group
}

func (s ItemSearch) Name() string { return "items" }

func (s ItemSearch) Search(term string) []SearchResult {
	term = strings.ToLower(term)
	var results []SearchResult
	s.Root.DeepForEachItem(func(item mapitem.Item) bool {
		if strings.Contains(strings.ToLower(item.Title()), term) {
			if c, ok := item.Center(); ok {
				results = append(results, SearchResult{Title: item.Title(), Point: c, Item: item})
			}
		}
		return true
	})
	return results
}

///////////////////////////////////////////////////////////////////////////
// Debugging

type viewDump struct {
	Name      string
	Summary   string
	Overlays  []string
	LayerBins []string
	Depth     int
}

// Dump returns a human-readable description of the view, for debugging.
func (v *MapView) Dump() string {
	d := viewDump{
		Name:      v.name,
		Summary:   v.root.Summary(),
		LayerBins: v.layers.Bins(),
		Depth:     v.dispatcher.Depth(),
	}
	for _, o := range v.overlays.Overlays() {
		d.Overlays = append(d.Overlays, o.Identifier())
	}
	return godump.DumpStr(d)
}
