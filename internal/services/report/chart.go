// Package report renders profile financial data into shareable images.
package report

import (
	"bytes"
	"fmt"
	"time"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/akumol/guardian/internal/models"
)

// balancePoint is one sample on the balance timeline.
type balancePoint struct {
	Date    time.Time
	Balance float64
}

// RenderBalanceHistory renders a PNG line chart of the profile's balance
// history. Two series: Balance (blue solid) and Total Invested (gray
// dashed). Returns raw PNG bytes.
func RenderBalanceHistory(profile *models.Profile, now time.Time) ([]byte, error) {
	points := balanceTimeline(profile.Financial, now)
	if len(points) < 2 {
		return nil, fmt.Errorf("need at least 2 data points, got %d", len(points))
	}

	xValues := make([]time.Time, len(points))
	balanceY := make([]float64, len(points))
	investedY := make([]float64, len(points))

	for i, p := range points {
		xValues[i] = p.Date
		balanceY[i] = p.Balance
		investedY[i] = profile.Financial.TotalInvested
	}

	balanceSeries := chart.TimeSeries{
		Name: "Balance",
		Style: chart.Style{
			StrokeColor: drawing.ColorFromHex("2563eb"), // blue-600
			StrokeWidth: 2.5,
		},
		XValues: xValues,
		YValues: balanceY,
	}

	investedSeries := chart.TimeSeries{
		Name: "Total Invested",
		Style: chart.Style{
			StrokeColor:     drawing.ColorFromHex("9ca3af"), // gray-400
			StrokeWidth:     1.5,
			StrokeDashArray: []float64{5.0, 3.0},
		},
		XValues: xValues,
		YValues: investedY,
	}

	graph := chart.Chart{
		Title:  "Balance History",
		Width:  900,
		Height: 400,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 10, Right: 20, Bottom: 10},
		},
		XAxis: chart.XAxis{
			TickPosition: chart.TickPositionBetweenTicks,
			ValueFormatter: func(v interface{}) string {
				if t, ok := v.(float64); ok {
					return chart.TimeFromFloat64(t).Format("Jan 06")
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("$%.0f", f)
				}
				return ""
			},
		},
		Series: []chart.Series{
			balanceSeries,
			investedSeries,
		},
	}

	graph.Elements = []chart.Renderable{
		chart.LegendLeft(&graph),
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("chart render failed: %w", err)
	}

	return buf.Bytes(), nil
}

// balanceTimeline expands the snapshot's lookback fields into dated
// samples, oldest first. Zero samples are kept so a flat broke timeline
// still renders; the list only shrinks when the whole history is unset.
func balanceTimeline(fin models.FinancialSnapshot, now time.Time) []balancePoint {
	h := fin.History
	candidates := []balancePoint{
		{Date: now.AddDate(-1, 0, 0), Balance: h.LastYear},
		{Date: now.AddDate(0, -6, 0), Balance: h.SixMonths},
		{Date: now.AddDate(0, -1, 0), Balance: h.LastMonth},
		{Date: now.AddDate(0, 0, -7), Balance: h.LastWeek},
		{Date: now.AddDate(0, 0, -1), Balance: h.Yesterday},
		{Date: now, Balance: fin.Balance},
	}

	anySet := false
	for _, p := range candidates {
		if p.Balance != 0 {
			anySet = true
			break
		}
	}
	if !anySet {
		return nil
	}
	return candidates
}
