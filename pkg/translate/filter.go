package translate

import (
	"encoding/csv"
	"fmt"
	"os"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/utils"
)

// requiredColumns must be present in the input ledger for filtering.
var requiredColumns = []string{"update_date", "title_chinese", "title_english"}

// FilterCSV reads a prober ledger, keeps rows whose update_date falls inside
// the inclusive [start, end] window, re-resolves every kept English title
// through the translator, and writes the result to outputPath. The input file
// is never modified. Rows with unparsable dates are dropped. Returns the
// number of rows kept.
func FilterCSV(inputPath, outputPath string, start, end time.Time, tr *Translator, log *logrus.Logger) (int, error) {
	f, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("opening ledger %s: %w: %v", inputPath, utils.ErrLedgerUnavailable, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return 0, fmt.Errorf("reading ledger %s: %w: %v", inputPath, utils.ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("ledger %s is empty: %w", inputPath, utils.ErrMalformedInput)
	}

	header := rows[0]
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, name := range requiredColumns {
		if _, ok := col[name]; !ok {
			return 0, fmt.Errorf("ledger %s missing required column %q: %w", inputPath, name, utils.ErrMalformedInput)
		}
	}

	clog := log.WithFields(logrus.Fields{
		"input": inputPath, "start": start.Format("2006-01-02"), "end": end.Format("2006-01-02"),
	})

	kept := [][]string{header}
	for _, row := range rows[1:] {
		if len(row) < len(header) {
			continue
		}
		d, perr := time.Parse("2006-01-02", row[col["update_date"]])
		if perr != nil {
			clog.WithField("update_date", row[col["update_date"]]).Debug("Dropping row with unparsable date")
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		row[col["title_english"]] = tr.Translate(row[col["title_chinese"]])
		kept = append(kept, row)
	}

	out, err := os.Create(outputPath)
	if err != nil {
		return 0, fmt.Errorf("creating output %s: %w: %v", outputPath, utils.ErrFilesystem, err)
	}
	defer out.Close()

	writer := csv.NewWriter(out)
	if err := writer.WriteAll(kept); err != nil {
		return 0, fmt.Errorf("writing output %s: %w: %v", outputPath, utils.ErrFilesystem, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return 0, fmt.Errorf("flushing output %s: %w: %v", outputPath, utils.ErrFilesystem, err)
	}

	clog.WithFields(logrus.Fields{"kept": len(kept) - 1, "total": len(rows) - 1}).
		Info("Ledger filtered and retranslated")
	return len(kept) - 1, nil
}
