package export

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/san-kum/mjsim/internal/analysis"
)

func TestWriteSVG(t *testing.T) {
	times := []float64{0, 0.1, 0.2, 0.3}
	var buf bytes.Buffer
	err := WriteSVG(&buf, 400, 200,
		TimeSeries("shoulder.qpos", times, []float64{0, 1, 0, -1}),
		TimeSeries("rail.qvel[0]<x>", times, []float64{1, 1, 1, 1}),
	)
	if err != nil {
		t.Fatal(err)
	}

	svg := buf.String()
	if !strings.HasPrefix(svg, "<?xml") || !strings.HasSuffix(svg, "</svg>\n") {
		t.Errorf("malformed document:\n%s", svg)
	}
	if n := strings.Count(svg, "<path"); n != 2 {
		t.Errorf("expected 2 paths, got %d", n)
	}
	if !strings.Contains(svg, palette[0]) || !strings.Contains(svg, palette[1]) {
		t.Error("series should take palette colors in order")
	}
	if !strings.Contains(svg, "rail.qvel[0]&lt;x&gt;") {
		t.Error("legend not escaped")
	}
}

func TestWriteSVGCustomStroke(t *testing.T) {
	var buf bytes.Buffer
	s := Series{Stroke: "#123456", Points: []analysis.Point{{0, 0}, {1, 1}}}
	if err := WriteSVG(&buf, 100, 100, s); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `stroke="#123456"`) {
		t.Error("custom stroke ignored")
	}
}

func TestWriteSVGTooFewPoints(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSVG(&buf, 100, 100, TimeSeries("x", []float64{0}, []float64{1})); err == nil {
		t.Error("expected error for a single point")
	}
}

func TestWriteSVGFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "plot.svg")
	err := WriteSVGFile(path, 100, 100, TimeSeries("x", []float64{0, 1}, []float64{0, 1}))
	if err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte("<svg")) {
		t.Error("file does not contain svg")
	}
}
