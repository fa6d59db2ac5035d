package evaluate

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pkg/errors"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/tony32769/2018-Data-Science-Bowl/src/submission"
)

// ReportName is the file name of the component histogram for a step.
func ReportName(step string) string {
	return fmt.Sprintf("components-%s.svg", step)
}

// ComponentHistogram counts images by number of predicted components.
func ComponentHistogram(stats submission.Stats) plotter.Values {
	maxCount := 0
	for _, n := range stats.Components {
		if n > maxCount {
			maxCount = n
		}
	}
	counts := make(plotter.Values, maxCount+1)
	for _, n := range stats.Components {
		counts[n]++
	}
	return counts
}

// WriteReport draws ComponentHistogram as an SVG bar chart next to the
// submission.
func WriteReport(resultDir string, step string, stats submission.Stats) (string, error) {
	counts := ComponentHistogram(stats)

	p, err := plot.New()
	if err != nil {
		return "", errors.Wrap(err, "couldn't create plot")
	}
	p.Title.Text = "Components per image (step " + step + ")"
	p.X.Label.Text = "components"
	p.Y.Label.Text = "images"
	p.Add(plotter.NewGrid())

	bars, err := plotter.NewBarChart(counts, vg.Points(10))
	if err != nil {
		return "", errors.Wrap(err, "couldn't create bar chart")
	}
	p.Add(bars)
	names := make([]string, len(counts))
	for i := range names {
		names[i] = strconv.Itoa(i)
	}
	p.NominalX(names...)

	writer, err := p.WriterTo(6*vg.Inch, 4*vg.Inch, "svg")
	if err != nil {
		return "", errors.Wrap(err, "couldn't render plot")
	}

	path := filepath.Join(resultDir, ReportName(step))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "couldn't create report file")
	}
	if _, err := writer.WriteTo(f); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "couldn't write %s", path)
	}
	return path, f.Close()
}
