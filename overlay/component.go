package overlay

type Coord struct {
	X, Y int
}

type Bounds struct {
	TopLeft     Coord
	BottomRight Coord
}
