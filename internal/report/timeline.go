package report

import (
	"errors"
	"fmt"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ivlev/sketchcast/internal/render"
	"github.com/ivlev/sketchcast/internal/scene"
)

const (
	StatusPending = "pending"
	StatusDrawing = "drawing"
	StatusDone    = "done"
	StatusWiping  = "wiping"
	StatusSkipped = "skipped"
)

// Entry is one operation's state at a point in time.
type Entry struct {
	Index      int        `json:"index"`
	ID         string     `json:"id"`
	Kind       scene.Kind `json:"type"`
	DelayMs    float64    `json:"delay_ms"`
	DurationMs float64    `json:"duration_ms"`
	EndMs      float64    `json:"end_ms"`
	Seed       int64      `json:"seed"`
	Status     string     `json:"status"`
	Linear     float64    `json:"linear"`
	Eased      float64    `json:"eased"`
	Problem    string     `json:"problem,omitempty"`
}

// Timeline lists every operation of sc with its state at atMs.
func Timeline(sc *scene.Scene, atMs float64, size render.Size) []Entry {
	if sc == nil {
		return nil
	}
	frame := render.Compose(sc, atMs, size)

	skipped := make(map[int]string, len(frame.Skipped))
	for _, err := range frame.Skipped {
		var opErr *render.OperationError
		if errors.As(err, &opErr) {
			skipped[opErr.Index] = opErr.Reason
		}
	}
	shapes := make(map[int]render.Shape, len(frame.Shapes))
	for _, sh := range frame.Shapes {
		shapes[sh.Index] = sh
	}

	entries := make([]Entry, 0, len(sc.Operations))
	for i, op := range sc.Operations {
		e := Entry{
			Index:      i,
			ID:         op.ID,
			Kind:       op.Kind,
			DelayMs:    op.DelayMs,
			DurationMs: op.Duration(),
			EndMs:      op.EndMs(),
			Seed:       op.Seed(),
			Status:     StatusPending,
		}

		if reason, ok := skipped[i]; ok {
			e.Status = StatusSkipped
			e.Problem = reason
		} else if sh, ok := shapes[i]; ok {
			e.Linear, e.Eased = sh.Progress.Linear, sh.Progress.Eased
			switch {
			case sh.Wipe:
				e.Status = StatusWiping
			case sh.Progress.Linear < 1:
				e.Status = StatusDrawing
			default:
				e.Status = StatusDone
			}
		}
		entries = append(entries, e)
	}
	return entries
}

// RenderTimeline formats entries as a table for the terminal.
func RenderTimeline(entries []Entry, atMs float64) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "ID", "Type", "Delay", "Duration", "End", "Seed", fmt.Sprintf("At %.0fms", atMs)})

	end := 0.0
	for _, e := range entries {
		status := e.Status
		switch e.Status {
		case StatusDrawing:
			status = fmt.Sprintf("%s %3.0f%%", e.Status, e.Eased*100)
		case StatusSkipped:
			status = fmt.Sprintf("%s: %s", e.Status, e.Problem)
		}
		tw.AppendRow(table.Row{e.Index, e.ID, e.Kind, ms(e.DelayMs), ms(e.DurationMs), ms(e.EndMs), e.Seed, status})
		if e.EndMs > end {
			end = e.EndMs
		}
	}
	tw.AppendFooter(table.Row{"", "", "", "", "", ms(end), "", fmt.Sprintf("%d operations", len(entries))})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return tw.Render()
}

func ms(v float64) string {
	return fmt.Sprintf("%.0fms", v)
}
