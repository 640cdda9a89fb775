package exporter

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"ecgprep/internal/config"
	"ecgprep/internal/files"
	"ecgprep/pkg/contracts/domain"
)

const reportSheet = "Conversions"

// ReportHeaders are the columns of the tabular report formats.
var ReportHeaders = []string{
	"index", "id", "status", "filename", "output_path", "shape", "bytes", "digest", "error_type", "error",
}

// ReportExporter writes conversion reports under the reports directory.
type ReportExporter struct {
	files  *files.Manager
	csv    *CSVWriter
	logger *slog.Logger
}

// NewReportExporter creates a report exporter writing through fm.
func NewReportExporter(fm *files.Manager, logger *slog.Logger) *ReportExporter {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "report_exporter"))
	return &ReportExporter{files: fm, csv: NewCSVWriter(fm, logger), logger: logger}
}

// WriteAll writes the JSON and CSV reports, plus XLSX when requested, and
// returns the absolute paths written.
func (e *ReportExporter) WriteAll(report *domain.ConversionReport, withXLSX bool) ([]string, error) {
	var written []string

	p, err := e.WriteJSON(config.ReportJSONFile, report)
	if err != nil {
		return written, err
	}
	written = append(written, p)

	if p, err = e.WriteCSV(config.ReportCSVFile, report); err != nil {
		return written, err
	}
	written = append(written, p)

	if withXLSX {
		if p, err = e.WriteXLSX(config.ReportXLSXFile, report); err != nil {
			return written, err
		}
		written = append(written, p)
	}

	e.logger.Info("Conversion report written",
		slog.String("run_id", report.RunID),
		slog.Any("files", written))
	return written, nil
}

// WriteJSON writes the full report as indented JSON.
func (e *ReportExporter) WriteJSON(name string, report *domain.ConversionReport) (string, error) {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal report: %w", err)
	}
	path := reportPath(name)
	if err := e.files.WriteFileAtomic(path, append(data, '\n')); err != nil {
		return "", err
	}
	return e.files.Resolve(path), nil
}

// WriteCSV writes one line per manifest row.
func (e *ReportExporter) WriteCSV(name string, report *domain.ConversionReport) (string, error) {
	path := reportPath(name)
	if err := e.csv.WriteSimpleCSV(path, ReportHeaders, ReportRecords(report)); err != nil {
		return "", err
	}
	return e.files.Resolve(path), nil
}

// WriteXLSX writes a workbook with a row sheet and a summary sheet.
func (e *ReportExporter) WriteXLSX(name string, report *domain.ConversionReport) (string, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return "", fmt.Errorf("failed to name sheet: %w", err)
	}
	if err := setRow(f, reportSheet, 1, ReportHeaders); err != nil {
		return "", err
	}
	for i, rec := range ReportRecords(report) {
		if err := setRow(f, reportSheet, i+2, rec); err != nil {
			return "", err
		}
	}

	if _, err := f.NewSheet("Summary"); err != nil {
		return "", fmt.Errorf("failed to add summary sheet: %w", err)
	}
	summary := [][]string{
		{"run_id", report.RunID},
		{"manifest", report.ManifestPath},
		{"output_dir", report.OutputDir},
		{"total", strconv.Itoa(report.Summary.Total)},
		{"converted", strconv.Itoa(report.Summary.Converted)},
		{"failed", strconv.Itoa(report.Summary.Failed)},
	}
	for i, row := range summary {
		if err := setRow(f, "Summary", i+1, row); err != nil {
			return "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return "", fmt.Errorf("failed to render workbook: %w", err)
	}
	path := reportPath(name)
	if err := e.files.WriteFileAtomic(path, buf.Bytes()); err != nil {
		return "", err
	}
	return e.files.Resolve(path), nil
}

// ReportRecords flattens the report rows for tabular output.
func ReportRecords(report *domain.ConversionReport) [][]string {
	records := make([][]string, 0, len(report.Results))
	for _, res := range report.Results {
		row := []string{strconv.Itoa(res.Index), res.ID, res.Status, "", "", "", "", "", res.ErrorType, res.ErrorMsg}
		if res.Record != nil {
			row[3] = res.Record.Filename
			row[4] = res.Record.OutputPath
			row[5] = FormatShape(res.Record.Shape)
			row[6] = strconv.FormatInt(res.Record.Bytes, 10)
			row[7] = res.Record.Digest
		}
		records = append(records, row)
	}
	return records
}

// FormatShape renders a shape as "12x5000".
func FormatShape(shape []int) string {
	parts := make([]string, len(shape))
	for i, d := range shape {
		parts[i] = strconv.Itoa(d)
	}
	return strings.Join(parts, "x")
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	vals := make([]interface{}, len(values))
	for i, v := range values {
		vals[i] = v
	}
	if err := f.SetSheetRow(sheet, cell, &vals); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}

func reportPath(name string) string {
	return "reports/" + name
}
