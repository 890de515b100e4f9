package reporting

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

// Export formats accepted by ExportUsage.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
	FormatXLSX = "xlsx"
)

const usageSheetName = "AMU"

var usageHeader = []string{"area", "date", "quantity"}

// Export is a rendered usage table ready to be downloaded.
type Export struct {
	Filename    string
	ContentType string
	Body        []byte
}

// SheetWriter replaces the contents of a spreadsheet range.
type SheetWriter interface {
	ReplaceRange(ctx context.Context, sheetRange string, rows [][]interface{}) error
}

// ExportUsage renders every aggregate record in the requested format.
func (s *Service) ExportUsage(ctx context.Context, format string) (*Export, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	if format == "" {
		format = FormatCSV
	}

	records, err := s.store.Usage.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("load usage: %w", err)
	}

	stamp := s.now().UTC().Format("20060102")
	out := &Export{Filename: fmt.Sprintf("amu-usage-%s.%s", stamp, format)}

	switch format {
	case FormatCSV:
		out.ContentType = "text/csv"
		out.Body, err = usageCSV(records)
	case FormatJSON:
		out.ContentType = "application/json"
		out.Body, err = json.Marshal(records)
	case FormatXLSX:
		out.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		out.Body, err = usageXLSX(records)
	default:
		return nil, models.Invalid("format", fmt.Sprintf("unsupported export format %q, use csv, json or xlsx", format))
	}
	if err != nil {
		return nil, fmt.Errorf("render %s export: %w", format, err)
	}

	s.logger.Info("usage exported", zap.String("format", format), zap.Int("records", len(records)))
	return out, nil
}

// SyncSheet mirrors the usage table into a spreadsheet range.
func (s *Service) SyncSheet(ctx context.Context, writer SheetWriter, sheetRange string) error {
	records, err := s.store.Usage.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load usage: %w", err)
	}
	if err := writer.ReplaceRange(ctx, sheetRange, UsageRows(records)); err != nil {
		return fmt.Errorf("write usage sheet: %w", err)
	}
	s.logger.Info("usage sheet synced", zap.String("range", sheetRange), zap.Int("records", len(records)))
	return nil
}

// UsageRows renders records as sheet rows with a header line.
func UsageRows(records []models.AreaUsageRecord) [][]interface{} {
	rows := make([][]interface{}, 0, len(records)+1)
	header := make([]interface{}, len(usageHeader))
	for i, h := range usageHeader {
		header[i] = h
	}
	rows = append(rows, header)
	for _, r := range records {
		rows = append(rows, []interface{}{r.Area, r.Date, r.Quantity})
	}
	return rows
}

func usageCSV(records []models.AreaUsageRecord) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(usageHeader); err != nil {
		return nil, err
	}
	for _, r := range records {
		if err := w.Write([]string{r.Area, r.Date, strconv.FormatInt(r.Quantity, 10)}); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func usageXLSX(records []models.AreaUsageRecord) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", usageSheetName); err != nil {
		return nil, fmt.Errorf("name sheet: %w", err)
	}

	for i, row := range UsageRows(records) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		values := row
		if err := f.SetSheetRow(usageSheetName, cell, &values); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+1, err)
		}
	}

	if err := f.SetPanes(usageSheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("freeze header: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
