package dashboard

import (
	"context"

	"github.com/KaramelBytes/sheetdash/internal/analysis"
	"github.com/KaramelBytes/sheetdash/internal/store"
)

// Dashboard is everything a client needs to draw one file's dashboard.
type Dashboard struct {
	File     *store.File           `json:"file"`
	Mode     store.WidgetSource    `json:"mode"`
	Widgets  []*store.Widget       `json:"widgets"`
	Charts   analysis.ChartPayload `json:"charts"`
	Table    []analysis.TableRow   `json:"table"`
	Insights *store.InsightCache   `json:"insights,omitempty"`
}

// Render recomputes a file's dashboard. Widgets are created on first use;
// KPI values are written into each widget's in-memory config only.
func (s *Service) Render(ctx context.Context, fileID string, mode store.WidgetSource) (*Dashboard, error) {
	f, err := s.store.GetFile(ctx, fileID)
	if err != nil {
		return nil, err
	}
	widgets, err := s.connect(ctx, f, mode)
	if err != nil {
		return nil, err
	}
	profiles := analysis.ClassifyAll(f.Data)
	d := &Dashboard{
		File:    f,
		Mode:    mode,
		Widgets: widgets,
		Charts:  analysis.SelectChartFromProfiles(f.Data, profiles).Payload(),
		Table:   analysis.BuildTable(f.Data, s.opts.TableRows),
	}

	if mode == store.SourceAI {
		cache, err := s.insightsFor(ctx, f)
		if err != nil {
			return nil, err
		}
		d.Insights = cache
		if pts := cache.Payload.ChartRecommendations.BarChart.Points(); len(pts) > 0 {
			d.Charts.BarChart = pts
		}
		if pts := cache.Payload.ChartRecommendations.PieChart.Points(); len(pts) > 0 {
			d.Charts.PieChart = pts
		}
	}

	for _, w := range widgets {
		if w.Type != analysis.WidgetKPI {
			continue
		}
		if in := w.Config.Insight; in != nil {
			v := float64(in.Value)
			w.Config.Value = &v
			w.Config.Formatted = in.Display()
			continue
		}
		v := analysis.CalculateWidgetValue(f.Data.Rows, w.Config.Spec())
		w.Config.Value = &v.Value
		w.Config.Formatted = v.Formatted
	}
	return d, nil
}
