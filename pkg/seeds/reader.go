// Package seeds reads harvest seed URLs from a CSV table.
package seeds

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/YaPengJi1/pachong/pkg/utils"
)

// Seed is one harvestable URL with its source row number (1-based over data
// rows, excluding the header).
type Seed struct {
	Row int
	URL string
}

// Read loads seed URLs from the named column of a CSV file. startRow and
// endRow bound the data rows inclusively; endRow 0 means through the end.
// Rows with an empty URL cell are skipped with a warning; a missing column
// is a hard error.
func Read(path, column string, startRow, endRow int, log *logrus.Logger) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening seed file %s: %w: %v", path, utils.ErrFilesystem, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading seed file %s: %w: %v", path, utils.ErrMalformedInput, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("seed file %s is empty: %w", path, utils.ErrMalformedInput)
	}

	colIdx := -1
	for i, name := range rows[0] {
		if strings.TrimSpace(name) == column {
			colIdx = i
			break
		}
	}
	if colIdx < 0 {
		return nil, fmt.Errorf("seed file %s has no column %q: %w", path, column, utils.ErrMalformedInput)
	}

	if startRow < 1 {
		startRow = 1
	}
	if endRow <= 0 || endRow > len(rows)-1 {
		endRow = len(rows) - 1
	}

	slog := log.WithFields(logrus.Fields{"component": "seeds", "path": path})
	var seeds []Seed
	for row := startRow; row <= endRow; row++ {
		record := rows[row]
		if colIdx >= len(record) || strings.TrimSpace(record[colIdx]) == "" {
			slog.WithField("row", row).Warn("Seed row has no URL, skipping")
			continue
		}
		seeds = append(seeds, Seed{Row: row, URL: strings.TrimSpace(record[colIdx])})
	}
	slog.WithFields(logrus.Fields{"seeds": len(seeds), "start": startRow, "end": endRow}).
		Info("Seed table loaded")
	return seeds, nil
}
