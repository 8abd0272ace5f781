package dashboard

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/insights"
	"github.com/KaramelBytes/sheetdash/internal/store"
)

const maxRawTotals = 3

// Connect creates the widgets of one mode for a file if it has none yet,
// and returns the file's widgets for that mode.
func (s *Service) Connect(ctx context.Context, fileID string, mode store.WidgetSource) ([]*store.Widget, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	return s.connect(ctx, f, mode)
}

func (s *Service) connect(ctx context.Context, f *store.File, mode store.WidgetSource) ([]*store.Widget, error) {
	existing, err := s.store.ListWidgets(ctx, f.ID, mode)
	if err != nil {
		return nil, err
	}
	if len(existing) > 0 {
		return existing, nil
	}

	var ws []*store.Widget
	if mode == store.SourceAI {
		cache, err := s.insightsFor(ctx, f)
		if err != nil {
			return nil, err
		}
		ws = aiWidgets(f.ID, &cache.Payload)
	} else {
		profiles := analysis.ClassifyAll(f.Data)
		ws = rawWidgets(f.ID, profiles, analysis.SelectChartFromProfiles(f.Data, profiles), f.Headers)
	}
	if err := s.store.CreateWidgets(ctx, ws); err != nil {
		return nil, err
	}
	s.logger.Info("widgets created",
		zap.String("file_id", f.ID),
		zap.String("mode", string(mode)),
		zap.Int("count", len(ws)))
	return ws, nil
}

// insightsFor returns the cached insights of f, running an analysis and
// caching the result when there is none.
func (s *Service) insightsFor(ctx context.Context, f *store.File) (*store.InsightCache, error) {
	if f.Insights != nil {
		return f.Insights, nil
	}
	cache := s.analyze(ctx, f)
	if err := s.store.SaveInsights(ctx, f.ID, cache); err != nil {
		return nil, err
	}
	f.Insights = cache
	return cache, nil
}

func (s *Service) analyze(ctx context.Context, f *store.File) *store.InsightCache {
	if s.opts.AITimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.AITimeout)
		defer cancel()
	}
	p := s.analyzer.Analyze(ctx, f.Name, f.Data)
	s.logger.Info("insights generated",
		zap.String("file_id", f.ID),
		zap.String("source", string(p.Source)),
		zap.Int("insights", len(p.WidgetInsights)))
	return &store.InsightCache{CachedAt: time.Now().UTC(), Payload: *p}
}

// Regenerate re-runs the analysis, overwrites the cache, and refreshes the
// insight and chart settings of existing AI widgets.
func (s *Service) Regenerate(ctx context.Context, fileID string) (*store.InsightCache, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	cache := s.analyze(ctx, f)
	if err := s.store.SaveInsights(ctx, fileID, cache); err != nil {
		return nil, err
	}
	ws, err := s.store.ListWidgets(ctx, fileID, store.SourceAI)
	if err != nil {
		return nil, err
	}
	for _, w := range ws {
		if !refreshWidget(w, &cache.Payload) {
			continue
		}
		if err := s.store.UpdateWidget(ctx, w); err != nil {
			return nil, err
		}
	}
	return cache, nil
}

// refreshWidget points w at the matching parts of p and reports whether anything changed.
func refreshWidget(w *store.Widget, p *insights.Payload) bool {
	switch w.Type {
	case analysis.WidgetKPI:
		if w.Config.InsightKey == "" {
			return false
		}
		in, ok := p.WidgetInsights[w.Config.InsightKey]
		if !ok {
			if w.Config.Insight == nil {
				return false
			}
			w.Config.Insight = nil
			return true
		}
		w.Config.Insight = &in
		return true
	case analysis.WidgetBarChart, analysis.WidgetPieChart:
		rec := chartRec(p, w.Type)
		if rec == nil {
			return false
		}
		if rec.Title != "" {
			w.Title = rec.Title
		}
		w.Config.CategoryColumn = rec.Category()
		w.Config.ValueColumn = rec.Measure()
		return true
	}
	return false
}

func chartRec(p *insights.Payload, t analysis.WidgetType) *insights.ChartRecommendation {
	if t == analysis.WidgetPieChart {
		return p.ChartRecommendations.PieChart
	}
	return p.ChartRecommendations.BarChart
}

// rawWidgets lays out the heuristic dashboard: up to three totals, one
// average, a record count, bar and pie charts, and the data table.
func rawWidgets(fileID string, profiles []analysis.ColumnProfile, sel analysis.ChartSelection, headers []string) []*store.Widget {
	var ws []*store.Widget
	add := func(t analysis.WidgetType, title string, cfg store.WidgetConfig) {
		ws = append(ws, &store.Widget{
			FileID:   fileID,
			Type:     t,
			Title:    title,
			Position: len(ws),
			Visible:  true,
			Source:   store.SourceRaw,
			Config:   cfg,
		})
	}

	numeric := analysis.ProfilesByKind(profiles, analysis.KindNumeric)
	for i, p := range numeric {
		if i == maxRawTotals {
			break
		}
		add(analysis.WidgetKPI, "Total "+p.Name, store.WidgetConfig{
			SourceColumns: []string{p.Name},
			Operation:     string(analysis.OpSum),
		})
	}
	if len(numeric) > 0 {
		add(analysis.WidgetKPI, "Average "+numeric[0].Name, store.WidgetConfig{
			SourceColumns: []string{numeric[0].Name},
			Operation:     string(analysis.OpAverage),
		})
	}
	add(analysis.WidgetKPI, "Total Records", store.WidgetConfig{
		SourceColumns: append([]string(nil), headers...),
		Operation:     string(analysis.OpCount),
	})

	chartCfg := store.WidgetConfig{
		SourceColumns:  nonEmpty(sel.CategoryColumn, sel.ValueColumn),
		Operation:      string(analysis.OpSum),
		CategoryColumn: sel.CategoryColumn,
		ValueColumn:    sel.ValueColumn,
	}
	add(analysis.WidgetBarChart, chartTitle(sel), chartCfg)
	add(analysis.WidgetPieChart, chartTitle(sel), chartCfg)
	add(analysis.WidgetTable, "Data Table", store.WidgetConfig{SourceColumns: append([]string(nil), headers...)})
	return ws
}

// aiWidgets turns the recommended widgets of p into stored widgets.
func aiWidgets(fileID string, p *insights.Payload) []*store.Widget {
	ws := make([]*store.Widget, 0, len(p.RecommendedWidgets))
	for _, rw := range p.RecommendedWidgets {
		w := &store.Widget{
			FileID:   fileID,
			Type:     rw.Type,
			Title:    rw.Title,
			Position: len(ws),
			Visible:  true,
			Source:   store.SourceAI,
			Config: store.WidgetConfig{
				SourceColumns: rw.SourceColumns,
				Operation:     rw.Operation,
				InsightKey:    rw.InsightKey,
			},
		}
		refreshWidget(w, p)
		if w.Title == "" {
			w.Title = string(w.Type)
		}
		ws = append(ws, w)
	}
	return ws
}

func chartTitle(sel analysis.ChartSelection) string {
	if sel.ValueColumn == "" || sel.ValueColumn == sel.CategoryColumn {
		return "Data Overview"
	}
	return sel.ValueColumn + " by " + sel.CategoryColumn
}

func nonEmpty(vals ...string) []string {
	var out []string
	for _, v := range vals {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
