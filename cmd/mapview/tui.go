// cmd/mapview/tui.go
// Copyright(c) 2025 mapcore contributors, licensed under the GNU Public License, Version 3.
// SPDX: GPL-3.0-only

package main

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/tacmap/mapcore/event"
	"github.com/tacmap/mapcore/layer"
	"github.com/tacmap/mapcore/log"
	"github.com/tacmap/mapcore/mapview"
	"github.com/tacmap/mapcore/overlay"

	"github.com/gdamore/tcell/v2"
)

const maxRecentEvents = 200

// panel is a card in the viewer; lines is called each time the screen
// is redrawn.
type panel struct {
	name  string
	lines func() []string
}

func (p *panel) Name() string { return p.name }

// eventLog keeps the most recent dispatched events for display.
type eventLog struct {
	mu     sync.Mutex
	recent []string
	screen tcell.Screen
}

func (l *eventLog) OnMapEvent(e event.Event) {
	l.mu.Lock()
	l.recent = append(l.recent, time.Now().Format("15:04:05")+" "+e.String())
	if len(l.recent) > maxRecentEvents {
		l.recent = l.recent[len(l.recent)-maxRecentEvents:]
	}
	l.mu.Unlock()

	// Wake up the event loop so the new event is drawn.
	_ = l.screen.PostEvent(tcell.NewEventInterrupt(nil))
}

func (l *eventLog) lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	// Newest first.
	s := make([]string, len(l.recent))
	for i, r := range l.recent {
		s[len(s)-1-i] = r
	}
	return s
}

// runViewer shows the state of the view in the terminal until the user
// quits or ctx is canceled.
func runViewer(ctx context.Context, view *mapview.MapView, lg *log.Logger) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return err
	}
	if err := screen.Init(); err != nil {
		return err
	}
	defer screen.Fini()

	screen.SetStyle(tcell.StyleDefault.
		Background(tcell.ColorReset).
		Foreground(tcell.ColorReset))

	events := &eventLog{screen: screen}
	view.Dispatcher().AddListenerAll(events)
	defer view.Dispatcher().RemoveListenerAll(events)

	cards := layer.NewCardLayer("viewer", lg)
	cards.Add(&panel{name: "tree", lines: func() []string {
		return strings.Split(view.Root().Dump(), "\n")
	}})
	cards.Add(&panel{name: "overlays", lines: func() []string {
		var s []string
		for _, o := range view.Overlays().Overlays() {
			s = append(s, fmt.Sprintf("%-12s %s", o.Identifier(), o.Name()))
			if p, ok := o.(*overlay.Parent); ok {
				for _, c := range p.Children() {
					s = append(s, "    "+c.Identifier())
				}
			}
		}
		return s
	}})
	cards.Add(&panel{name: "events", lines: events.lines})

	go func() {
		<-ctx.Done()
		_ = screen.PostEvent(tcell.NewEventInterrupt(nil))
	}()

	for {
		if ctx.Err() != nil {
			return nil
		}

		render(screen, view, cards)
		screen.Show()

		switch ev := screen.PollEvent().(type) {
		case *tcell.EventResize:
			screen.Sync()
		case *tcell.EventKey:
			switch {
			case ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC || ev.Rune() == 'q':
				return nil
			case ev.Key() == tcell.KeyTab || ev.Rune() == 'n':
				cards.Next()
			case ev.Key() == tcell.KeyBacktab || ev.Rune() == 'p':
				cards.Previous()
			}
		case nil:
			// Screen finalized.
			return nil
		}
	}
}

func render(screen tcell.Screen, view *mapview.MapView, cards *layer.CardLayer) {
	screen.Clear()
	width, height := screen.Size()

	header := tcell.StyleDefault.Reverse(true)
	title := view.Name() + " | " + view.Root().Summary()
	for _, name := range cards.Names() {
		if cards.Active() != nil && cards.Active().Name() == name {
			title += " [" + name + "]"
		} else {
			title += "  " + name + " "
		}
	}
	drawText(screen, 0, 0, width, header, title)

	if p, ok := cards.Active().(*panel); ok {
		for i, line := range p.lines() {
			if i+1 >= height-1 {
				break
			}
			drawText(screen, 0, i+1, width, tcell.StyleDefault, line)
		}
	}

	drawText(screen, 0, height-1, width, tcell.StyleDefault.Dim(true), "n/tab: next  p: previous  q: quit")
}

func drawText(screen tcell.Screen, x, y, maxWidth int, style tcell.Style, text string) {
	col := 0
	for _, r := range text {
		if col >= maxWidth {
			break
		}
		screen.SetContent(x+col, y, r, nil, style)
		col++
	}
	for col < maxWidth {
		screen.SetContent(x+col, y, ' ', nil, style)
		col++
	}
}
