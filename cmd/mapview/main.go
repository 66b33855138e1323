// cmd/mapview/main.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

// mapview hosts a single map view: it loads the configured overlays and
// layer bins, restores items from the database and snapshot, and serves
// status, metrics, and map control requests over HTTP.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/tacmap/mapcore/event"
	"github.com/tacmap/mapcore/layer"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapview"
	"github.com/tacmap/mapcore/overlay"
	"github.com/tacmap/mapcore/store"

	"github.com/apenwarr/fixconsole"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
)

var (
	logLevel   = flag.String("loglevel", "", "logging level: debug, info, warn, error")
	logDir     = flag.String("logdir", "", "log file directory")
	configFile = flag.String("config", "", "path to the JSON configuration file")
	dbPath     = flag.String("db", "", "SQLite database for persisted map items")
	snapshot   = flag.String("snapshot", "", "snapshot file to load at startup and save at exit")
	listen     = flag.String("listen", "", "address for the status and control server")
	showTUI    = flag.Bool("tui", false, "show the map view in the terminal")
)

func main() {
	flag.Parse()

	if err := fixconsole.FixConsoleIfNeeded(); err != nil {
		fmt.Printf("FixConsole: %v\n", err)
	}

	lg := log.New(*logLevel, *logDir)
	defer lg.CatchAndReportCrash()

	path := *configFile
	if path == "" {
		path = configFilePath(lg)
	}
	config, err := LoadOrMakeDefaultConfig(path, lg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", path, err)
		os.Exit(1)
	}
	// Command-line flags take precedence over the config file.
	override := func(arg string, v *string) {
		if arg != "" {
			*v = arg
		}
	}
	override(*logLevel, &config.LogLevel)
	override(*dbPath, &config.Database)
	override(*snapshot, &config.Snapshot)
	override(*listen, &config.Listen)
	if *logLevel == "" && config.LogLevel != "info" {
		lg = log.New(config.LogLevel, *logDir)
	}

	if err := run(config, lg); err != nil {
		lg.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(config *Config, lg *log.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewGoCollector())

	view := mapview.New(mapview.Options{Name: "map", Log: lg, Metrics: event.NewMetrics(reg)})
	defer view.Dispose()

	buildView(view, config, lg)

	if config.Database != "" {
		s, err := store.Open(config.Database, lg)
		if err != nil {
			return err
		}
		defer s.Close()

		n, err := view.AttachStore(ctx, s)
		if err != nil {
			return err
		}
		lg.Info("restored items from database", slog.Int("count", n), slog.String("path", config.Database))
	}

	if config.Snapshot != "" {
		if _, err := os.Stat(config.Snapshot); err == nil {
			if n, err := view.LoadSnapshot(config.Snapshot); err != nil {
				lg.Warn("unable to load snapshot", slog.String("path", config.Snapshot), slog.Any("error", err))
			} else {
				lg.Info("restored items from snapshot", slog.Int("count", n))
			}
		}
	}

	srv := &http.Server{
		Addr:              config.Listen,
		Handler:           newServeMux(view, reg, start, lg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		lg.Info("listening", slog.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		if *showTUI {
			if err := runViewer(ctx, view, lg); err != nil {
				return err
			}
			// Quitting the viewer exits the program.
			stop()
		}
		<-ctx.Done()

		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})

	err := eg.Wait()

	if config.Snapshot != "" {
		if serr := view.SaveSnapshot(config.Snapshot); serr != nil {
			lg.Warn("unable to save snapshot", slog.String("path", config.Snapshot), slog.Any("error", serr))
		}
	}
	return err
}

// buildView registers the configured overlays, layer bins, and search
// providers with view.
func buildView(view *mapview.MapView, config *Config, lg *log.Logger) {
	om := view.Overlays()
	for _, oc := range config.Overlays {
		order := oc.Order
		if order == 0 {
			order = overlay.DefaultOrder
		}
		if oc.Parent != "" && !slices.Contains(overlay.ParentNames(), oc.Parent) {
			lg.Warn("unknown overlay parent", slog.String("id", oc.ID), slog.String("parent", oc.Parent))
			continue
		}

		o := overlay.NewGroupOverlay(oc.ID, oc.Name, nil, order)
		var ok bool
		if oc.Parent != "" {
			ok = om.AddOverlayToParent(oc.Parent, o)
		} else {
			ok = om.AddOverlay(o)
		}
		if !ok {
			lg.Warn("unable to add overlay", slog.String("id", oc.ID))
		}
	}

	for _, name := range config.LayerBins {
		view.Layers().AddLayerBin(name, layer.NewLayer(name))
	}

	view.AddLocationSearch(mapview.ItemSearch{Root: view.Root()})
}
