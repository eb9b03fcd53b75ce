package viewer

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// luminance ramp from darkest to brightest
const shadeRamp = " .:-=+*#%@"

// TerminalDisplay renders frames as character luminance art straight
// into an ANSI terminal, downsampled to the current terminal size.
type TerminalDisplay struct {
	out  io.Writer
	size func() (cols, rows int, err error)
}

func NewTerminalDisplay() *TerminalDisplay {
	return &TerminalDisplay{
		out: os.Stdout,
		size: func() (int, int, error) {
			return term.GetSize(int(os.Stdout.Fd()))
		},
	}
}

// NewTerminalDisplayWithSize pins the output and cell grid, used by
// tests and non-TTY writers.
func NewTerminalDisplayWithSize(out io.Writer, cols, rows int) *TerminalDisplay {
	return &TerminalDisplay{
		out:  out,
		size: func() (int, int, error) { return cols, rows, nil },
	}
}

// Render draws the RGBA frame into the terminal, nearest-neighbour
// sampled down to one character per cell.
func (d *TerminalDisplay) Render(width, height int, pixels []byte) error {
	cols, rows, err := d.size()
	if err != nil {
		return fmt.Errorf("unable to resolve terminal size: %w", err)
	}
	if cols < 1 || rows < 2 {
		return nil
	}
	// keep one row free for the cursor
	rows--

	var out bytes.Buffer
	out.WriteString("\x1b[H")
	for r := 0; r < rows; r++ {
		y := r * height / rows
		for c := 0; c < cols; c++ {
			x := c * width / cols
			luma := pixels[(y*width+x)*4]
			out.WriteByte(shadeRamp[int(luma)*(len(shadeRamp)-1)/255])
		}
		out.WriteString("\r\n")
	}

	_, err = d.out.Write(out.Bytes())
	return err
}
