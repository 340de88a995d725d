package geom

import (
	"fmt"
	"math"
)

// Point is a grid position in an area (world units, not screen pixels).
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

var Zero = Point{}

func Pt(x, y int) Point { return Point{X: x, Y: y} }

func (p Point) IsZero() bool { return p.X == 0 && p.Y == 0 }

func (p Point) String() string { return fmt.Sprintf("{%d, %d}", p.X, p.Y) }

func (p Point) ToArray() [2]int { return [2]int{p.X, p.Y} }

func FromArray(a [2]int) Point { return Point{X: a[0], Y: a[1]} }

// DistanceSq avoids the sqrt for comparisons against a radius.
func DistanceSq(a, b Point) int {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return dx*dx + dy*dy
}

func Distance(a, b Point) float64 {
	return math.Sqrt(float64(DistanceSq(a, b)))
}

// Within reports whether b lies strictly inside radius r of a.
func Within(a, b Point, r int) bool {
	return DistanceSq(a, b) < r*r
}

func Manhattan(a, b Point) int {
	dx := a.X - b.X
	if dx < 0 {
		dx = -dx
	}
	dy := a.Y - b.Y
	if dy < 0 {
		dy = -dy
	}
	return dx + dy
}
