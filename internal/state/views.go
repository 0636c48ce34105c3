package state

import (
	"time"

	"billtracker/internal/cache"
	"billtracker/internal/core"
)

const (
	viewCacheSize = 128
	viewCacheTTL  = 10 * time.Minute
)

// BillsView is the filtered listing with its footer.
type BillsView struct {
	Version  uint64           `json:"version"`
	Criteria core.Criteria    `json:"criteria"`
	Bills    []core.Bill      `json:"bills"`
	Summary  core.ViewSummary `json:"summary"`
}

// AnalyticsView is the grouped analytics of the filtered bills.
type AnalyticsView struct {
	Version         uint64                 `json:"version"`
	Criteria        core.AnalyticsCriteria `json:"criteria"`
	Groups          []core.Summary         `json:"groups"`
	BillCount       int                    `json:"billCount"`
	TotalWithTax    string                 `json:"totalWithTax"`
	TotalWithoutTax string                 `json:"totalWithoutTax"`
}

// ChartsView feeds the quarter and year charts.
type ChartsView struct {
	Version  uint64             `json:"version"`
	Quarters []core.SeriesPoint `json:"quarters"`
	Years    []core.SeriesPoint `json:"years"`
}

// Views computes read models from the current snapshot and caches them by
// snapshot version and criteria.
type Views struct {
	store     *Store
	bills     cache.Cache[BillsView]
	analytics cache.Cache[AnalyticsView]
	charts    cache.Cache[ChartsView]
	options   cache.Cache[core.FilterOptions]
}

// NewViews wires view caches to st. Caches are purged whenever a new
// snapshot is installed. When manager is not nil the caches are registered
// for periodic expiry and reporting.
func NewViews(st *Store, manager *cache.Manager) *Views {
	bills := cache.NewViewCache[BillsView](viewCacheSize, viewCacheTTL)
	analytics := cache.NewViewCache[AnalyticsView](viewCacheSize, viewCacheTTL)
	charts := cache.NewViewCache[ChartsView](viewCacheSize, viewCacheTTL)
	options := cache.NewViewCache[core.FilterOptions](viewCacheSize, viewCacheTTL)
	v := &Views{store: st, bills: bills, analytics: analytics, charts: charts, options: options}
	if manager != nil {
		manager.Register("bills", bills)
		manager.Register("analytics", analytics)
		manager.Register("charts", charts)
		manager.Register("options", options)
	}
	st.Subscribe(func(Snapshot) {
		v.bills.Purge()
		v.analytics.Purge()
		v.charts.Purge()
		v.options.Purge()
	})
	return v
}

// Snapshot returns the snapshot views are computed from.
func (v *Views) Snapshot() Snapshot {
	return v.store.Snapshot()
}

// Bills filters the current snapshot.
func (v *Views) Bills(c core.Criteria) BillsView {
	snap := v.store.Snapshot()
	return v.BillsOf(snap, c)
}

// BillsOf filters a given snapshot.
func (v *Views) BillsOf(snap Snapshot, c core.Criteria) BillsView {
	key := c.Key()
	if cached, ok := v.bills.Get(snap.Version, key); ok {
		return cached
	}
	filtered := core.FilterBills(snap.Bills, c)
	out := BillsView{
		Version:  snap.Version,
		Criteria: c,
		Bills:    filtered,
		Summary:  core.Summarize(filtered),
	}
	v.bills.Set(snap.Version, key, out)
	return out
}

// Analytics groups the bills passing the analytics filters.
func (v *Views) Analytics(c core.AnalyticsCriteria) AnalyticsView {
	snap := v.store.Snapshot()
	key := c.Key()
	if cached, ok := v.analytics.Get(snap.Version, key); ok {
		return cached
	}
	filtered := core.FilterForAnalytics(snap.Bills, c)
	agg := core.Aggregate(filtered)
	out := AnalyticsView{
		Version:         snap.Version,
		Criteria:        c,
		Groups:          agg.Groups(),
		BillCount:       len(filtered),
		TotalWithTax:    agg.TotalWithTax().StringFixed(2),
		TotalWithoutTax: agg.TotalWithoutTax().StringFixed(2),
	}
	v.analytics.Set(snap.Version, key, out)
	return out
}

// Charts computes the quarter and year series of the bills passing the
// analytics filters, so they always match the analytics table.
func (v *Views) Charts(c core.AnalyticsCriteria) ChartsView {
	snap := v.store.Snapshot()
	key := c.Key()
	if cached, ok := v.charts.Get(snap.Version, key); ok {
		return cached
	}
	filtered := core.FilterForAnalytics(snap.Bills, c)
	out := ChartsView{
		Version:  snap.Version,
		Quarters: core.QuarterTotals(filtered),
		Years:    core.YearTotals(filtered),
	}
	v.charts.Set(snap.Version, key, out)
	return out
}

// FilterOptions lists the dropdown values of the current snapshot.
func (v *Views) FilterOptions() core.FilterOptions {
	snap := v.store.Snapshot()
	if cached, ok := v.options.Get(snap.Version, ""); ok {
		return cached
	}
	out := core.BuildFilterOptions(snap.Bills, snap.Config)
	v.options.Set(snap.Version, "", out)
	return out
}
