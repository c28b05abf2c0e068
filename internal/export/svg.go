// Package export renders recorded trajectories to SVG.
package export

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/san-kum/mjsim/internal/analysis"
)

// Series is one line of a chart.
type Series struct {
	Name   string
	Stroke string
	Points []analysis.Point
}

var palette = []string{"#00ff88", "#00ccff", "#ffcc00", "#ff00ff", "#ff4444", "#aaaaff"}

// TimeSeries pairs times with values for plotting against time.
func TimeSeries(name string, times, values []float64) Series {
	return Series{Name: name, Points: analysis.NewPortrait(times, values).Points}
}

// WriteSVG draws every series on one width x height chart, scaled to the
// combined bounds, with a legend in the top-left corner.
func WriteSVG(w io.Writer, width, height int, series ...Series) error {
	var all []analysis.Point
	for _, s := range series {
		all = append(all, s.Points...)
	}
	if len(all) < 2 {
		return fmt.Errorf("export: need at least two points")
	}
	minX, maxX, minY, maxY := (&analysis.Portrait{Points: all}).Bounds()
	rangeX := maxX - minX
	rangeY := maxY - minY

	var sb strings.Builder
	fmt.Fprintf(&sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)

	for i, s := range series {
		if len(s.Points) == 0 {
			continue
		}
		stroke := s.Stroke
		if stroke == "" {
			stroke = palette[i%len(palette)]
		}

		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, stroke)
		for j, p := range s.Points {
			x := (p.X - minX) / rangeX * float64(width)
			y := float64(height) - (p.Y-minY)/rangeY*float64(height)

			if j == 0 {
				fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
			} else {
				fmt.Fprintf(&sb, " L%.1f,%.1f", x, y)
			}
		}
		sb.WriteString("\"/>\n")

		if s.Name != "" {
			fmt.Fprintf(&sb, `<text x="8" y="%d" fill="%s" font-family="monospace" font-size="12">%s</text>
`, 16*(i+1), stroke, escape(s.Name))
		}
	}

	sb.WriteString("</svg>\n")
	_, err := io.WriteString(w, sb.String())
	return err
}

// WriteSVGFile writes the chart to path.
func WriteSVGFile(path string, width, height int, series ...Series) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteSVG(f, width, height, series...); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func escape(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
