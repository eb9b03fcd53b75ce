package camera

// Settings carries the capture parameters requested for a connection.
type Settings struct {
	Width  int
	Height int
	FPS    int
}
