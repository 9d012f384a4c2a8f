package ux

import (
	"fmt"
	"io"
	"sort"

	"github.com/mltmacster/agentic-empire/internal/coordinator"
	"github.com/mltmacster/agentic-empire/internal/journal"
	"github.com/mltmacster/agentic-empire/internal/registry"
)

// RenderReport prints the full status display for the platform.
func RenderReport(w io.Writer, r *coordinator.Report) {
	fmt.Fprintf(w, "%s%s — Status Report%s\n", Bold, r.Platform, Reset)
	fmt.Fprintf(w, "%sGenerated:%s %s\n", Dim, Reset, r.GeneratedAt.Format("2006-01-02 15:04:05"))

	fmt.Fprintf(w, "\n%sWorkers:%s\n", Bold, Reset)
	renderCounts(w, r.WorkersByState)

	fmt.Fprintf(w, "\n%sTasks:%s\n", Bold, Reset)
	renderCounts(w, r.TasksByState)

	fmt.Fprintf(w, "\n%sReady:%s\n", Bold, Reset)
	if len(r.Ready) == 0 {
		fmt.Fprintf(w, "  %s(none)%s\n", Dim, Reset)
	}
	for i, id := range r.Ready {
		fmt.Fprintf(w, "  %s%d%s  %s\n", Dim, i+1, Reset, id)
	}

	fmt.Fprintf(w, "\n%sJournal entries:%s %d\n", Bold, Reset, r.JournalEntries)
}

func renderCounts(w io.Writer, counts map[string]int) {
	if len(counts) == 0 {
		fmt.Fprintf(w, "  %s(none)%s\n", Dim, Reset)
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-14s %s%d%s\n", k, StatusColor(k), counts[k], Reset)
	}
}

// RenderWorkers prints one line per worker.
func RenderWorkers(w io.Writer, workers []registry.Worker) {
	if len(workers) == 0 {
		fmt.Fprintf(w, "%s(no workers)%s\n", Dim, Reset)
		return
	}
	for _, wk := range workers {
		parent := ""
		if wk.Parent != "" {
			parent = fmt.Sprintf(" %s↳ %s%s", Dim, wk.Parent, Reset)
		}
		fmt.Fprintf(w, "%s%-24s%s %-20s %s%-8s%s clearance %d%s\n",
			Bold, wk.ID, Reset, wk.Role, StatusColor(wk.Status), wk.Status, Reset, wk.Clearance, parent)
	}
}

// RenderHistory prints a task's journal chain, oldest first.
func RenderHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintf(w, "%s(no journal entries)%s\n", Dim, Reset)
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s#%d%s %s %s%-12s%s %s\n",
			Dim, e.Seq, Reset, e.Timestamp.Format("2006-01-02 15:04:05"),
			StatusColor(e.Status), e.Status, Reset, e.Summary)
	}
}
