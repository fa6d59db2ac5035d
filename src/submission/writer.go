package submission

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	datastructures "github.com/tony32769/2018-Data-Science-Bowl/src/datastructures"
)

var Header = []string{"ImageId", "EncodedPixels"}

// FileName is the submission file name for a checkpoint step.
func FileName(step string) string {
	return fmt.Sprintf("submission-nucleus_det-%s.csv", step)
}

func Write(w io.Writer, rows []datastructures.SubmissionRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return err
	}
	for _, row := range rows {
		if err := cw.Write([]string{row.ImageId, row.EncodedPixels}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteFile writes rows to resultDir, creating the directory if needed,
// and returns the path of the file.
func WriteFile(resultDir string, step string, rows []datastructures.SubmissionRow) (string, error) {
	if err := os.MkdirAll(resultDir, 0755); err != nil {
		return "", errors.Wrapf(err, "couldn't create result dir %s", resultDir)
	}

	path := filepath.Join(resultDir, FileName(step))
	f, err := os.Create(path)
	if err != nil {
		return "", errors.Wrap(err, "couldn't create submission file")
	}
	if err := Write(f, rows); err != nil {
		f.Close()
		return "", errors.Wrapf(err, "couldn't write %s", path)
	}
	if err := f.Close(); err != nil {
		return "", errors.Wrapf(err, "couldn't close %s", path)
	}

	log.Debug("[Submission] Wrote ", len(rows), " rows to ", path)
	return path, nil
}

// Read parses a submission file written by Write.
func Read(r io.Reader) ([]datastructures.SubmissionRow, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) != len(Header) || records[0][0] != Header[0] || records[0][1] != Header[1] {
		return nil, errors.New("missing ImageId,EncodedPixels header")
	}
	rows := make([]datastructures.SubmissionRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		rows = append(rows, datastructures.SubmissionRow{ImageId: rec[0], EncodedPixels: rec[1]})
	}
	return rows, nil
}
