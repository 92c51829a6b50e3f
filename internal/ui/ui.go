// Package ui holds what the CLI and the terminal screen share: the status
// sink fed by session events, the column policy and product formatting.
package ui

import (
	"fmt"
	"io"

	"github.com/felixgeelhaar/glance/internal/catalog"
	"github.com/felixgeelhaar/glance/internal/session"
)

type UI interface {
	UpdateStatus(status string)
	Log(msg string)
}

type SilentUI struct{}

func (s SilentUI) UpdateStatus(status string) {}
func (s SilentUI) Log(msg string)             {}

// Printer writes statuses and log lines to a writer.
type Printer struct {
	Out     io.Writer
	Verbose bool // Print statuses too, not only log lines
}

func (p Printer) UpdateStatus(status string) {
	if p.Verbose {
		fmt.Fprintf(p.Out, "» %s\n", status)
	}
}

func (p Printer) Log(msg string) {
	fmt.Fprintln(p.Out, msg)
}

// Attach forwards session events on bus to u.
func Attach(bus *session.EventBus, u UI) {
	bus.SubscribeAll(func(e session.Event) {
		text, status := Describe(e)
		if text == "" {
			return
		}
		if status {
			u.UpdateStatus(text)
		} else {
			u.Log(text)
		}
	})
}

// Describe renders an event as one line. status is false for lines that
// belong in the log rather than the status bar.
func Describe(e session.Event) (text string, status bool) {
	d := e.Data
	switch e.Type {
	case session.EventSearchStarted:
		var what string
		if img, ok := d["image"].(*catalog.Image); ok && img != nil {
			what = "by image " + img.Name
		} else {
			what = fmt.Sprintf("for %q", d["query"])
		}
		if f, _ := d["filters"].(string); f != "" && f != "none" {
			what += " [" + f + "]"
		}
		return "searching " + what, true
	case session.EventPageRequested:
		return fmt.Sprintf("loading more from %v", d["offset"]), true
	case session.EventPageMerged:
		text = fmt.Sprintf("%v results", d["total"])
		if done, _ := d["exhausted"].(bool); done {
			text += ", no more pages"
		}
		return text, true
	case session.EventPageDiscarded:
		return fmt.Sprintf("discarded stale page at offset %v", d["offset"]), false
	case session.EventSearchFailed:
		return fmt.Sprintf("search failed: %v", d["error"]), true
	case session.EventFiltersChanged:
		return fmt.Sprintf("filters: %v", d["filters"]), true
	case session.EventDetailLoaded:
		if found, _ := d["found"].(bool); !found {
			return fmt.Sprintf("no product for %v", d["hash"]), true
		}
		return fmt.Sprintf("detail %v with %v similar", d["hash"], d["similar"]), true
	case session.EventDetailFailed:
		return fmt.Sprintf("detail failed: %v", d["error"]), true
	}
	return "", false
}
