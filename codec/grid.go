package codec

import (
	"image"

	xdraw "golang.org/x/image/draw"
)

// Grid is a sheet image made of equally sized cells, filled row-major.
type Grid struct {
	Image  *image.NRGBA
	Cell   image.Point
	Across int
}

// GridRows returns the number of rows count cells need.
func GridRows(count, across int) int {
	if across <= 0 {
		return 0
	}
	return (count + across - 1) / across
}

// NewGrid returns a fully transparent grid large enough for count cells.
func NewGrid(cell image.Point, across, count int) *Grid {
	rows := GridRows(count, across)
	return &Grid{
		Image:  image.NewNRGBA(image.Rect(0, 0, cell.X*across, cell.Y*rows)),
		Cell:   cell,
		Across: across,
	}
}

// CellRect returns the rectangle of cell i.
func (g *Grid) CellRect(i int) image.Rectangle {
	min := image.Pt((i%g.Across)*g.Cell.X, (i/g.Across)*g.Cell.Y)
	return image.Rectangle{Min: min, Max: min.Add(g.Cell)}
}

// Place draws img into cell i, anchored at the cell's top left corner. An
// image larger than the cell is clipped to it. A nil img leaves the cell
// transparent.
func (g *Grid) Place(i int, img *image.NRGBA) {
	if img == nil {
		return
	}
	xdraw.Draw(g.Image, g.CellRect(i), img, img.Bounds().Min, xdraw.Src)
}
