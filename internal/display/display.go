// Package display prints the human-facing parts of a run: the banner, per-stage progress and
// the completion line.
package display

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/askiada/seqpipe/pkg/pipeline/measure"
	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

const banner = `                          _
 ___  ___  __ _ _ __ (_)_ __   ___
/ __|/ _ \/ _' | '_ \| | '_ \ / _ \
\__ \  __/ (_| | |_) | | |_) |  __/
|___/\___|\__, | .__/|_| .__/ \___|
             |_|_|     |_|
`

// Palette holds the colours used on the console. Colours are off when disabled is true.
type Palette struct {
	Title   *color.Color
	Stage   *color.Color
	Success *color.Color
	Failure *color.Color
}

// NewPalette returns the default palette.
func NewPalette(disabled bool) Palette {
	p := Palette{
		Title:   color.New(color.FgMagenta, color.Bold),
		Stage:   color.New(color.FgCyan, color.Bold),
		Success: color.New(color.FgGreen),
		Failure: color.New(color.FgRed, color.Bold),
	}
	if disabled {
		for _, c := range []*color.Color{p.Title, p.Stage, p.Success, p.Failure} {
			c.DisableColor()
		}
	}

	return p
}

// PrintBanner writes the banner.
func PrintBanner(w io.Writer, p Palette) {
	p.Title.Fprint(w, banner)
	fmt.Fprintln(w)
}

// PrintFinished writes the completion line of a successful run.
func PrintFinished(w io.Writer, p Palette) {
	p.Success.Fprintln(w, "\nPipeline finished.")
}

// Bar renders "prefix [####......] 40%" for step current (zero based) out of size.
func Bar(prefix string, current, size, width int) string {
	if size <= 0 || width <= 0 {
		return prefix
	}
	percentage := (current + 1) * 100 / size
	if percentage > 100 {
		percentage = 100
	}
	complete := width * percentage / 100

	line := fmt.Sprintf("%s [%s%s] %d%%", prefix, strings.Repeat("#", complete), strings.Repeat(".", width-complete), percentage)
	if percentage == 100 {
		line += " -- Done!"
	}

	return line
}

const barWidth = 30

type progress struct {
	model.NoopOption
	w       io.Writer
	palette Palette
	total   int
	done    int
}

// Progress is a pipeline option that prints one header per stage and a progress bar after it.
func Progress(w io.Writer, p Palette) model.PipelineOption {
	return &progress{w: w, palette: p}
}

func (pr *progress) PrepareStage(_, _ *model.StageInfo) error {
	pr.total++
	return nil
}

func (pr *progress) OnStageStart(stage *model.StageInfo) error {
	pr.palette.Stage.Fprintf(pr.w, "\n[%d/%d] %s\n", pr.done+1, pr.total, stage.Label())
	return nil
}

func (pr *progress) OnStageDone(stage *model.StageInfo, duration time.Duration, err error) error {
	if err != nil {
		pr.palette.Failure.Fprintf(pr.w, "%s failed after %s\n", stage.Label(), measure.Round(duration))
		return nil
	}
	pr.palette.Success.Fprintf(pr.w, "%s\n", Bar(stage.Label()+" done in "+measure.Round(duration).String(), pr.done, pr.total, barWidth))
	pr.done++

	return nil
}
