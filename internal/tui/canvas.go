package tui

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/cwbudde/spheredist/internal/sphere"
	"github.com/cwbudde/spheredist/internal/ui"
)

type cell struct {
	r     rune
	color int // point index, -1 for the outline
	depth float64
}

// Canvas is a character grid onto which the sphere is projected.
// Terminal cells are about twice as tall as wide, so x is stretched.
type Canvas struct {
	Width, Height int
	cells         [][]cell
}

// NewCanvas creates an empty canvas
func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h}
	c.cells = make([][]cell, h)
	for i := range c.cells {
		c.cells[i] = make([]cell, w)
	}
	c.Clear()
	return c
}

// Clear resets every cell to blank
func (c *Canvas) Clear() {
	for _, row := range c.cells {
		for i := range row {
			row[i] = cell{r: ' ', color: -1, depth: math.Inf(-1)}
		}
	}
}

func (c *Canvas) radius() float64 {
	return math.Max(1, math.Min(float64(c.Height)/2-1, (float64(c.Width)/2-1)/2))
}

// cellAt maps projected coordinates in [-1, 1] to a cell
func (c *Canvas) cellAt(x, y float64) (col, row int, ok bool) {
	r := c.radius()
	col = int(math.Round(float64(c.Width)/2 + x*r*2))
	row = int(math.Round(float64(c.Height)/2 - y*r))
	ok = col >= 0 && col < c.Width && row >= 0 && row < c.Height
	return col, row, ok
}

// Set writes r at the projected position unless a nearer cell is there
func (c *Canvas) Set(x, y, depth float64, r rune, color int) {
	col, row, ok := c.cellAt(x, y)
	if !ok {
		return
	}
	if cur := c.cells[row][col]; cur.r != ' ' && cur.depth > depth {
		return
	}
	c.cells[row][col] = cell{r: r, color: color, depth: depth}
}

// At returns the rune at a cell
func (c *Canvas) At(col, row int) rune {
	return c.cells[row][col].r
}

// DrawOutline traces the sphere's silhouette
func (c *Canvas) DrawOutline() {
	steps := int(8 * c.radius())
	for i := 0; i < steps; i++ {
		a := 2 * math.Pi * float64(i) / float64(steps)
		c.Set(math.Cos(a), math.Sin(a), math.Inf(-1), '·', -1)
	}
}

// DrawPoints projects the points through v. Points on the far side are
// drawn hollow and behind the near side.
func (c *Canvas) DrawPoints(points sphere.PointSet, v ui.View) {
	for i, p := range points {
		x, y, depth := v.Project(p)
		r := '●'
		if depth < 0 {
			r = '○'
		}
		c.Set(x, y, depth, r, i)
	}
}

// Render returns the canvas as styled text
func (c *Canvas) Render() string {
	var b strings.Builder
	for i, row := range c.cells {
		for _, cl := range row {
			switch {
			case cl.r == ' ':
				b.WriteRune(' ')
			case cl.color < 0:
				b.WriteString(outlineStyle.Render(string(cl.r)))
			default:
				b.WriteString(pointStyle(cl.color).Render(string(cl.r)))
			}
		}
		if i < len(c.cells)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func pointStyle(i int) lipgloss.Style {
	return lipgloss.NewStyle().Foreground(lipgloss.Color(ui.PointColor(i).Hex()))
}
