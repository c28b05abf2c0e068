package analysis

import (
	"strings"
)

type Point struct{ X, Y float64 }

// Portrait is a 2D phase space trajectory.
type Portrait struct {
	Points []Point
}

// NewPortrait pairs x and y sample by sample, truncating to the shorter.
func NewPortrait(x, y []float64) *Portrait {
	n := min(len(x), len(y))
	p := &Portrait{Points: make([]Point, n)}
	for i := range n {
		p.Points[i] = Point{X: x[i], Y: y[i]}
	}
	return p
}

// PoincareSection records (x, y) wherever cross passes threshold going up.
func PoincareSection(cross, x, y []float64, threshold float64) *Portrait {
	n := min(len(cross), len(x), len(y))
	p := &Portrait{}
	for i := 1; i < n; i++ {
		if cross[i-1] < threshold && cross[i] >= threshold {
			p.Points = append(p.Points, Point{X: x[i], Y: y[i]})
		}
	}
	return p
}

type bounds struct {
	minX, maxX, minY, maxY float64
}

// padded returns the bounding box of points grown by 10% on each side.
func padded(points []Point) bounds {
	b := bounds{points[0].X, points[0].X, points[0].Y, points[0].Y}
	for _, p := range points {
		b.minX = min(b.minX, p.X)
		b.maxX = max(b.maxX, p.X)
		b.minY = min(b.minY, p.Y)
		b.maxY = max(b.maxY, p.Y)
	}

	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	b.minX -= rangeX * 0.1
	b.maxX += rangeX * 0.1
	b.minY -= rangeY * 0.1
	b.maxY += rangeY * 0.1
	return b
}

// Bounds returns the padded plot window of the portrait.
func (p *Portrait) Bounds() (minX, maxX, minY, maxY float64) {
	if p == nil || len(p.Points) == 0 {
		return 0, 0, 0, 0
	}
	b := padded(p.Points)
	return b.minX, b.maxX, b.minY, b.maxY
}

// ASCII renders the portrait on a width x height character grid with axes
// drawn where they cross the window.
func (p *Portrait) ASCII(width, height int) string {
	if p == nil || len(p.Points) == 0 || width < 2 || height < 2 {
		return ""
	}

	b := padded(p.Points)
	rangeX := b.maxX - b.minX
	rangeY := b.maxY - b.minY

	canvas := make([][]rune, height)
	for i := range canvas {
		canvas[i] = []rune(strings.Repeat(" ", width))
	}

	for _, pt := range p.Points {
		col := int((pt.X - b.minX) / rangeX * float64(width-1))
		row := height - 1 - int((pt.Y-b.minY)/rangeY*float64(height-1))

		if row >= 0 && row < height && col >= 0 && col < width {
			canvas[row][col] = '•'
		}
	}

	if b.minX <= 0 && b.maxX >= 0 {
		col := int((0 - b.minX) / rangeX * float64(width-1))
		for row := 0; row < height; row++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '│'
			}
		}
	}
	if b.minY <= 0 && b.maxY >= 0 {
		row := height - 1 - int((0-b.minY)/rangeY*float64(height-1))
		for col := 0; col < width; col++ {
			if canvas[row][col] == ' ' {
				canvas[row][col] = '─'
			}
		}
	}

	var sb strings.Builder
	for _, row := range canvas {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
