package videoframe

// Rotation is an explicit orientation adjustment applied by a display
// consumer. Capture and processing always run in sensor orientation;
// any rotation happens at the edge that needs it.
type Rotation int

const (
	RotateNone Rotation = iota
	Rotate90
	Rotate180
	Rotate270
)

func ParseRotation(v string) (Rotation, bool) {
	switch v {
	case "", "none", "0":
		return RotateNone, true
	case "90":
		return Rotate90, true
	case "180":
		return Rotate180, true
	case "270":
		return Rotate270, true
	}
	return RotateNone, false
}

// Apply rotates a single-channel plane clockwise by the receiver's
// angle, returning the rotated plane and its dimensions. RotateNone
// returns the input plane unchanged.
func (r Rotation) Apply(plane []byte, width, height int) ([]byte, int, int) {
	switch r {
	case Rotate90:
		out := make([]byte, len(plane))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[x*height+(height-1-y)] = plane[y*width+x]
			}
		}
		return out, height, width
	case Rotate180:
		out := make([]byte, len(plane))
		for i, v := range plane {
			out[len(plane)-1-i] = v
		}
		return out, width, height
	case Rotate270:
		out := make([]byte, len(plane))
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				out[(width-1-x)*height+y] = plane[y*width+x]
			}
		}
		return out, height, width
	default:
		return plane, width, height
	}
}
