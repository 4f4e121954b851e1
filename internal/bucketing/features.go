// Package bucketing turns raw activity records into a bounded set of
// categorical buckets. Buckets replace raw numbers everywhere downstream:
// later stages cite a bucket token, never a source row. The computation is
// pure and deterministic; identical packs yield byte-identical buckets.
package bucketing

import (
	"fmt"
	"strings"
	"time"

	"tradecompass/internal/contracts"
	"tradecompass/internal/logging"
	"tradecompass/internal/pack"
)

// Signal ids, in the fixed order buckets are emitted.
const (
	SignalRevenueConcentration = "revenue_concentration"
	SignalWeeklyVolatility     = "weekly_volatility"
	SignalSeasonality          = "seasonality"
	SignalDecisionLatency      = "decision_latency"
	SignalCapacitySqueeze      = "capacity_squeeze"
	SignalOpenPipeline         = "open_pipeline"
)

// ValueUnknown marks a signal whose denominator had no data. Absence of
// signal is a representable value, never an error.
const ValueUnknown = "unknown"

// Bucket is one categorical finding plus its reproducible evidence token.
type Bucket struct {
	Signal     string `json:"signal"`
	Label      string `json:"label"`
	Value      string `json:"value"`
	Confidence string `json:"confidence"`
	Evidence   string `json:"evidence"`
}

// Features is the full bucketing result for one pack and window.
type Features struct {
	Window     Window               `json:"window"`
	DataLimits contracts.DataLimits `json:"data_limits"`
	Buckets    []Bucket             `json:"buckets"`
}

// ComputeFeatures buckets a pack over the resolved window. It returns
// exactly six buckets in fixed order, each with a token of the form
// bucket:<signal-id>:<normalized-value>.
func ComputeFeatures(p *pack.Pack, mode WindowMode) (*Features, error) {
	win, err := resolveWindow(p, mode)
	if err != nil {
		return nil, err
	}

	w := newWindowed(p, win)
	limits := w.dataLimits()

	buckets := []Bucket{
		newBucket(SignalRevenueConcentration, "Revenue concentration", w.revenueConcentration(), w.confidence()),
		newBucket(SignalWeeklyVolatility, "Weekly volatility", w.weeklyVolatility(), w.confidence()),
		newBucket(SignalSeasonality, "Seasonality", w.seasonality(), w.confidence()),
		newBucket(SignalDecisionLatency, "Decision latency", w.decisionLatency(), w.confidence()),
		newBucket(SignalCapacitySqueeze, "Capacity squeeze", w.capacitySqueeze(), w.confidence()),
		newBucket(SignalOpenPipeline, "Open pipeline", w.openPipeline(), w.confidence()),
	}

	logging.Get(logging.CategoryBucketing).Debugw("computed features",
		"window_mode", string(mode), "rows", w.rowCount(), "buckets", len(buckets))

	return &Features{Window: win, DataLimits: limits, Buckets: buckets}, nil
}

func newBucket(signal, label, value, confidence string) Bucket {
	norm := normalizeValue(value)
	return Bucket{
		Signal:     signal,
		Label:      label,
		Value:      norm,
		Confidence: confidence,
		Evidence:   fmt.Sprintf("bucket:%s:%s", signal, norm),
	}
}

func normalizeValue(v string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), " ", "_")
}

// windowed holds the in-window slices the signal computations share.
type windowed struct {
	win      Window
	quotes   []pack.Quote
	invoices []pack.Invoice
	jobs     []pack.Job
	p        *pack.Pack

	excludedQuotes   int
	excludedInvoices int
	excludedJobs     int
}

func newWindowed(p *pack.Pack, win Window) *windowed {
	w := &windowed{win: win, p: p}
	for _, q := range p.Quotes {
		if win.Contains(q.CreatedAt) {
			w.quotes = append(w.quotes, q)
		} else {
			w.excludedQuotes++
		}
	}
	for _, inv := range p.Invoices {
		if win.Contains(inv.CreatedAt) {
			w.invoices = append(w.invoices, inv)
		} else {
			w.excludedInvoices++
		}
	}
	for _, j := range p.Jobs {
		if win.Contains(j.CreatedAt) {
			w.jobs = append(w.jobs, j)
		} else {
			w.excludedJobs++
		}
	}
	return w
}

func (w *windowed) rowCount() int {
	return len(w.quotes) + len(w.invoices) + len(w.jobs)
}

// confidence grades every bucket from the in-window row count.
func (w *windowed) confidence() string {
	n := w.rowCount()
	switch {
	case n >= 120:
		return contracts.ConfidenceHigh
	case n >= 40:
		return contracts.ConfidenceMedium
	default:
		return contracts.ConfidenceLow
	}
}

func (w *windowed) dataLimits() contracts.DataLimits {
	limits := contracts.DataLimits{
		WindowMode:   string(w.win.Mode),
		WindowDays:   w.win.Days,
		HasQuotes:    len(w.quotes) > 0,
		HasInvoices:  len(w.invoices) > 0,
		HasJobs:      len(w.jobs) > 0,
		HasCustomers: len(w.p.Customers) > 0,
	}
	if !limits.HasJobs {
		limits.Notes = append(limits.Notes, "no job records in window; capacity inferred from volume rhythm")
	}
	if n := w.excludedQuotes + w.excludedInvoices + w.excludedJobs; n > 0 {
		limits.Notes = append(limits.Notes, fmt.Sprintf("%d records fell outside the window and were excluded", n))
	}
	return limits
}

// revenueConcentration buckets the share of total value held by the five
// largest amounts. Invoice totals are preferred; quotes stand in when no
// invoices exist.
func (w *windowed) revenueConcentration() string {
	var amounts []float64
	if len(w.invoices) > 0 {
		for _, inv := range w.invoices {
			amounts = append(amounts, inv.Total)
		}
	} else {
		for _, q := range w.quotes {
			amounts = append(amounts, q.Total)
		}
	}
	var total float64
	for _, a := range amounts {
		total += a
	}
	if total <= 0 {
		return ValueUnknown
	}
	top := topN(amounts, 5)
	share := top / total
	switch {
	case share < 0.35:
		return "low"
	case share < 0.60:
		return "medium"
	default:
		return "high"
	}
}

// weeklyVolatility buckets the coefficient of variation of weekly
// quote+invoice creation counts. Fewer than four weekly points is unknown.
func (w *windowed) weeklyVolatility() string {
	counts := w.weeklyCounts()
	if len(counts) < 4 {
		return ValueUnknown
	}
	m := mean(counts)
	if m == 0 {
		return ValueUnknown
	}
	cv := stddev(counts) / m
	switch {
	case cv < 0.25:
		return "low"
	case cv < 0.50:
		return "medium"
	default:
		return "high"
	}
}

// weeklyCounts buckets in-window creation events into weeks from the
// window start, including empty interior weeks. A trailing partial week
// counts as a week, so the anchor event is never dropped.
func (w *windowed) weeklyCounts() []float64 {
	if w.win.Start.IsZero() {
		return nil
	}
	weeks := (w.win.Days + 6) / 7
	if weeks == 0 {
		return nil
	}
	counts := make([]float64, weeks)
	add := func(t time.Time) {
		idx := int(t.Sub(w.win.Start).Hours() / (24 * 7))
		if idx < 0 {
			return
		}
		if idx >= weeks {
			idx = weeks - 1
		}
		counts[idx]++
	}
	for _, q := range w.quotes {
		add(q.CreatedAt)
	}
	for _, inv := range w.invoices {
		add(inv.CreatedAt)
	}
	return counts
}

// seasonality buckets the busiest/least-busy month ratio. Fewer than three
// populated months cannot distinguish season from noise.
func (w *windowed) seasonality() string {
	months := make(map[int]float64)
	add := func(t time.Time) {
		months[t.Year()*12+int(t.Month())]++
	}
	for _, q := range w.quotes {
		add(q.CreatedAt)
	}
	for _, inv := range w.invoices {
		add(inv.CreatedAt)
	}
	if len(months) < 3 {
		return ValueUnknown
	}
	busiest, quietest := 0.0, 0.0
	for _, c := range months {
		if busiest == 0 || c > busiest {
			busiest = c
		}
		if quietest == 0 || c < quietest {
			quietest = c
		}
	}
	if quietest == 0 {
		return ValueUnknown
	}
	ratio := busiest / quietest
	switch {
	case ratio < 1.4:
		return "none"
	case ratio < 2.0:
		return "weak"
	default:
		return "strong"
	}
}

// decisionLatency buckets the median days from quote creation to approval.
func (w *windowed) decisionLatency() string {
	var lags []float64
	for _, q := range w.quotes {
		if q.Status == pack.QuoteStatusApproved && q.ApprovedAt != nil {
			lags = append(lags, q.ApprovedAt.Sub(q.CreatedAt).Hours()/24)
		}
	}
	if len(lags) == 0 {
		return ValueUnknown
	}
	med := median(lags)
	switch {
	case med < 3:
		return "low"
	case med < 10:
		return "medium"
	default:
		return "high"
	}
}

// capacitySqueeze buckets the completed/scheduled job ratio. Packs without
// job data fall back to the weekly volatility rhythm over quote+invoice
// counts, which DataLimits notes record.
func (w *windowed) capacitySqueeze() string {
	scheduled, completed := 0, 0
	for _, j := range w.jobs {
		switch j.Status {
		case pack.JobStatusCompleted:
			completed++
			scheduled++
		case pack.JobStatusScheduled:
			scheduled++
		}
	}
	if scheduled == 0 {
		return w.weeklyVolatility()
	}
	ratio := float64(completed) / float64(scheduled)
	switch {
	case ratio >= 0.85:
		return "low"
	case ratio >= 0.65:
		return "medium"
	default:
		return "high"
	}
}

// openPipeline buckets the share of in-window quotes still open.
func (w *windowed) openPipeline() string {
	if len(w.quotes) == 0 {
		return ValueUnknown
	}
	open := 0
	for _, q := range w.quotes {
		if q.Status == pack.QuoteStatusSent || q.Status == pack.QuoteStatusDraft {
			open++
		}
	}
	share := float64(open) / float64(len(w.quotes))
	switch {
	case share < 0.20:
		return "low"
	case share < 0.50:
		return "medium"
	default:
		return "high"
	}
}

// topN sums the n largest amounts without mutating the input.
func topN(amounts []float64, n int) float64 {
	s := append([]float64(nil), amounts...)
	// insertion-sort descending; amounts lists are short
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] > s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
	if len(s) > n {
		s = s[:n]
	}
	var sum float64
	for _, v := range s {
		sum += v
	}
	return sum
}
