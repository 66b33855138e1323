// cmd/mapview/http.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/tacmap/mapcore/control"
	"github.com/tacmap/mapcore/geo"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapview"

	"github.com/dustin/go-humanize"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/shirou/gopsutil/v3/cpu"
)

type status struct {
	Uptime        string   `json:"uptime"`
	Summary       string   `json:"summary"`
	Items         int      `json:"items"`
	Overlays      []string `json:"overlays"`
	LayerBins     []string `json:"layer_bins"`
	ScopeDepth    int      `json:"scope_depth"`
	AllocMemory   string   `json:"alloc_memory"`
	SysMemory     string   `json:"sys_memory"`
	NumGoRoutines int      `json:"goroutines"`
	CPUUsage      float64  `json:"cpu_usage"`
}

// loggingCamera stands in for a renderer; it records camera moves in the
// log.
type loggingCamera struct {
	lg *log.Logger
}

func (c loggingCamera) PanTo(p geo.Point, snap bool) {
	c.lg.Info("pan", slog.Any("point", p), slog.Bool("snap", snap))
}

func (c loggingCamera) ZoomTo(scale float64, snap bool) {
	c.lg.Info("zoom to", slog.Float64("scale", scale), slog.Bool("snap", snap))
}

func (c loggingCamera) ZoomBy(factor float64, about geo.Point, snap bool) {
	c.lg.Info("zoom by", slog.Float64("factor", factor), slog.Any("about", about), slog.Bool("snap", snap))
}

func newServeMux(view *mapview.MapView, reg *prometheus.Registry, start time.Time, lg *log.Logger) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	mux.HandleFunc("/status", func(w http.ResponseWriter, r *http.Request) {
		var m runtime.MemStats
		runtime.ReadMemStats(&m)

		st := status{
			Uptime:        time.Since(start).Round(time.Second).String(),
			Summary:       view.Root().Summary(),
			Items:         view.Root().DeepItemCount(),
			LayerBins:     view.Layers().Bins(),
			ScopeDepth:    view.Dispatcher().Depth(),
			AllocMemory:   humanize.Bytes(m.Alloc),
			SysMemory:     humanize.Bytes(m.Sys),
			NumGoRoutines: runtime.NumGoroutine(),
		}
		for _, o := range view.Overlays().Overlays() {
			st.Overlays = append(st.Overlays, o.Identifier())
		}
		if usage, err := cpu.Percent(0, false); err == nil && len(usage) > 0 {
			st.CPUUsage = usage[0]
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			lg.Warn("unable to write status", slog.Any("error", err))
		}
	})

	h := &control.Handler{Root: view.Root(), Camera: loggingCamera{lg}, Log: lg}
	mux.HandleFunc("/control/{action}", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "POST required", http.StatusMethodNotAllowed)
			return
		}
		if err := r.ParseForm(); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		params := make(map[string]string)
		for k := range r.Form {
			params[k] = r.Form.Get(k)
		}

		err := h.Handle(r.PathValue("action"), params)
		switch {
		case err == nil:
			w.WriteHeader(http.StatusNoContent)
		case errors.Is(err, control.ErrUnknownAction):
			http.Error(w, err.Error(), http.StatusNotFound)
		default:
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	})

	return mux
}
