package repository

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/solet-asu/MCQ-generation/internal/domain"
)

// ExportCSV streams every row of a metadata table to w as CSV, header first.
func (s *SQLiteSink) ExportCSV(ctx context.Context, table string, w io.Writer) error {
	if _, ok := tableSchemas[table]; !ok {
		return domain.NewSinkError(table, fmt.Errorf("unknown table %q", table))
	}

	rows, err := s.db.QueryxContext(ctx, fmt.Sprintf("SELECT * FROM %s ORDER BY timestamp", table))
	if err != nil {
		return domain.NewSinkError(table, err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return domain.NewSinkError(table, err)
	}

	writer := csv.NewWriter(w)
	if err := writer.Write(columns); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	for rows.Next() {
		raw, err := rows.SliceScan()
		if err != nil {
			return domain.NewSinkError(table, err)
		}
		cells := make([]string, len(raw))
		for i, v := range raw {
			switch val := v.(type) {
			case nil:
				cells[i] = ""
			case []byte:
				cells[i] = string(val)
			default:
				cells[i] = fmt.Sprintf("%v", val)
			}
		}
		if err := writer.Write(cells); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}
	if err := rows.Err(); err != nil {
		return domain.NewSinkError(table, err)
	}

	writer.Flush()
	return writer.Error()
}
