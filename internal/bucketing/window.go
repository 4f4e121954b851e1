package bucketing

import (
	"fmt"
	"sort"
	"time"

	"tradecompass/internal/pack"
)

// WindowMode selects how the observation window is derived from the pack.
type WindowMode string

const (
	// WindowLast90Days is a fixed trailing window anchored at the most
	// recent event in the pack, so identical packs always produce the
	// identical window regardless of when the run happens.
	WindowLast90Days WindowMode = "last_90_days"

	// WindowLast12Months is the trailing-year variant of the same rule.
	WindowLast12Months WindowMode = "last_12_months"

	// WindowCapClosed spans the approvals of the most recent closed
	// quotes (capped, default 100).
	WindowCapClosed WindowMode = "cap_100_closed"
)

// DefaultClosedQuoteCap bounds the cap_100_closed window.
const DefaultClosedQuoteCap = 100

// Window is the resolved observation interval.
type Window struct {
	Mode  WindowMode `json:"mode"`
	Start time.Time  `json:"start"`
	End   time.Time  `json:"end"`
	Days  int        `json:"days"`
}

// Contains reports whether t falls inside the window (inclusive bounds).
func (w Window) Contains(t time.Time) bool {
	if w.Start.IsZero() && w.End.IsZero() {
		return false
	}
	return !t.Before(w.Start) && !t.After(w.End)
}

// resolveWindow derives the observation window from pack timestamps only.
// Wall-clock time never participates, keeping feature extraction
// reproducible.
func resolveWindow(p *pack.Pack, mode WindowMode) (Window, error) {
	anchor := latestEvent(p)
	if anchor.IsZero() {
		return Window{Mode: mode}, nil
	}

	switch mode {
	case WindowLast90Days:
		start := anchor.AddDate(0, 0, -90)
		return Window{Mode: mode, Start: start, End: anchor, Days: 90}, nil
	case WindowLast12Months:
		start := anchor.AddDate(-1, 0, 0)
		return Window{Mode: mode, Start: start, End: anchor, Days: int(anchor.Sub(start).Hours() / 24)}, nil
	case WindowCapClosed:
		return closedQuoteWindow(p, DefaultClosedQuoteCap, anchor), nil
	default:
		return Window{}, fmt.Errorf("unknown window mode %q", mode)
	}
}

// closedQuoteWindow spans the approval timestamps of the cap most recent
// approved quotes. With no approvals it degrades to the trailing-90-days
// rule so a sparse pack still gets a window.
func closedQuoteWindow(p *pack.Pack, cap int, anchor time.Time) Window {
	var approvals []time.Time
	for _, q := range p.Quotes {
		if q.Status == pack.QuoteStatusApproved && q.ApprovedAt != nil {
			approvals = append(approvals, *q.ApprovedAt)
		}
	}
	if len(approvals) == 0 {
		start := anchor.AddDate(0, 0, -90)
		return Window{Mode: WindowCapClosed, Start: start, End: anchor, Days: 90}
	}
	sort.Slice(approvals, func(i, j int) bool { return approvals[i].After(approvals[j]) })
	if len(approvals) > cap {
		approvals = approvals[:cap]
	}
	start, end := approvals[len(approvals)-1], approvals[0]
	days := int(end.Sub(start).Hours()/24) + 1
	return Window{Mode: WindowCapClosed, Start: start, End: end, Days: days}
}

func latestEvent(p *pack.Pack) time.Time {
	var latest time.Time
	bump := func(t time.Time) {
		if t.After(latest) {
			latest = t
		}
	}
	for _, q := range p.Quotes {
		bump(q.CreatedAt)
		if q.ApprovedAt != nil {
			bump(*q.ApprovedAt)
		}
	}
	for _, inv := range p.Invoices {
		bump(inv.CreatedAt)
		if inv.PaidAt != nil {
			bump(*inv.PaidAt)
		}
	}
	for _, j := range p.Jobs {
		bump(j.CreatedAt)
		if j.ScheduledAt != nil {
			bump(*j.ScheduledAt)
		}
		if j.CompletedAt != nil {
			bump(*j.CompletedAt)
		}
	}
	return latest
}
