package visual

import (
	"errors"
	"fmt"
	"io"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"tgdash/internal/format"
)

// ErrNoData is returned when a chart has nothing to draw.
var ErrNoData = errors.New("visual: not enough data points")

var palette = []drawing.Color{chart.ColorBlue, chart.ColorGreen, chart.ColorRed, chart.ColorOrange}

func lineStyle(col drawing.Color) chart.Style {
	return chart.Style{
		StrokeColor: col,
		StrokeWidth: 2,
		DotColor:    col,
		DotWidth:    2,
	}
}

// RenderLine draws every series of b that has at least two points.
func RenderLine(w io.Writer, b Bundle) error {
	var series []chart.Series
	maxY := 0.0
	for i, s := range b.Series {
		if s.Len() < 2 {
			continue
		}
		for _, v := range s.Values {
			maxY = max(maxY, v)
		}
		series = append(series, chart.ContinuousSeries{
			Name:    s.Name,
			XValues: s.X,
			YValues: s.Values,
			Style:   lineStyle(palette[i%len(palette)]),
		})
	}
	if len(series) == 0 {
		return ErrNoData
	}

	ch := chart.Chart{
		Title:  b.Title,
		Width:  900,
		Height: 360,
		Background: chart.Style{
			Padding: chart.Box{Top: 40, Left: 16, Right: 16, Bottom: 16},
		},
		XAxis: chart.XAxis{
			Name: "Elapsed",
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return format.Elapsed(f)
				}
				return ""
			},
		},
		YAxis: chart.YAxis{
			Range:          &chart.ContinuousRange{Min: 0, Max: headroom(maxY)},
			ValueFormatter: yFormatter(b.Metric),
		},
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}
	if err := ch.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s chart: %w", b.Name, err)
	}
	return nil
}

// RenderBars draws one bar per label of s.
func RenderBars(w io.Writer, title string, s Series) error {
	if s.Len() == 0 {
		return ErrNoData
	}
	bars := make([]chart.Value, 0, s.Len())
	maxY := 0.0
	for i, v := range s.Values {
		bars = append(bars, chart.Value{Label: s.Labels[i], Value: v})
		maxY = max(maxY, v)
	}
	bc := chart.BarChart{
		Title:    title,
		Width:    900,
		Height:   360,
		BarWidth: 40,
		Background: chart.Style{
			Padding: chart.Box{Top: 40},
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: headroom(maxY)},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return format.Float(f, format.Packets, 0)
				}
				return ""
			},
		},
		Bars: bars,
	}
	if err := bc.Render(chart.PNG, w); err != nil {
		return fmt.Errorf("render %s bars: %w", title, err)
	}
	return nil
}

func headroom(maxY float64) float64 {
	if maxY <= 0 {
		return 1
	}
	return maxY * 1.1
}

func yFormatter(m Metric) chart.ValueFormatter {
	return func(v interface{}) string {
		f, ok := v.(float64)
		if !ok {
			return ""
		}
		switch m {
		case MetricRate:
			return format.Bits(f, 1)
		case MetricRTT:
			return format.Time(f*1000, 1)
		default:
			return format.Float(f, format.Packets, 0)
		}
	}
}
