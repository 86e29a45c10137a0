package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gosim/domain/dataset"
	"gosim/internal"

	"github.com/xuri/excelize/v2"
)

// DataReader loads Excel and CSV files into a dataset.Frame. The first row
// holds column names. A column is numeric when every cell parses as a
// number, categorical otherwise, unless the config forces a kind.
type DataReader struct {
	config   ExcelConfig
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(config ExcelConfig, logger *internal.Logger) *DataReader {
	if config.Sheet == "" {
		config.Sheet = DefaultExcelConfig().Sheet
	}
	if logger == nil {
		logger = internal.NewNopLogger()
	}
	ext := strings.ToLower(filepath.Ext(config.FilePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{config: config, fileType: fileType, logger: logger}
}

// LoadFrame reads path with the default configuration
func LoadFrame(path string) (*dataset.Frame, error) {
	cfg := DefaultExcelConfig()
	cfg.FilePath = path
	return NewDataReader(cfg, nil).ReadFrame()
}

// ReadFrame reads the file into a frame
func (r *DataReader) ReadFrame() (*dataset.Frame, error) {
	if _, err := os.Stat(r.config.FilePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.config.FilePath)
	}

	var (
		rows [][]string
		err  error
	)
	start := time.Now()
	switch r.fileType {
	case "csv":
		rows, err = r.readCSVRows()
	default:
		rows, err = r.readExcelRows()
	}
	if err != nil {
		return nil, err
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("%s file must have at least a header row and one data row", strings.ToUpper(r.fileType))
	}

	frame, err := r.processRows(rows)
	if err != nil {
		return nil, err
	}
	r.logger.Debug("[DataReader] %s loaded in %s (%d columns, %d rows)",
		r.config.FilePath, time.Since(start), len(frame.ColumnNames()), frame.Len())
	return frame, nil
}

func (r *DataReader) readExcelRows() ([][]string, error) {
	f, err := excelize.OpenFile(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	rows, err := f.GetRows(r.config.Sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", r.config.Sheet, err)
	}
	return rows, nil
}

func (r *DataReader) readCSVRows() ([][]string, error) {
	file, err := os.Open(r.config.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	return rows, nil
}

// processRows converts raw string rows into typed columns
func (r *DataReader) processRows(rows [][]string) (*dataset.Frame, error) {
	headers := make([]string, len(rows[0]))
	for i, header := range rows[0] {
		headers[i] = strings.TrimSpace(header)
	}

	cells := make([][]string, len(headers))
	for i := range cells {
		cells[i] = make([]string, 0, len(rows)-1)
	}
	// sheet row number of each kept row, for error messages
	lines := make([]int, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if isBlank(row) {
			continue
		}
		lines = append(lines, i+2)
		for j := range headers {
			cell := ""
			if j < len(row) {
				cell = strings.TrimSpace(row[j])
			}
			cells[j] = append(cells[j], cell)
		}
	}

	columns := make([]dataset.Column, 0, len(headers))
	for j, name := range headers {
		if name == "" {
			continue
		}
		col, err := r.buildColumn(name, cells[j], lines)
		if err != nil {
			return nil, err
		}
		columns = append(columns, col)
	}
	return dataset.NewFrame(columns...)
}

func (r *DataReader) buildColumn(name string, cells []string, lines []int) (dataset.Column, error) {
	kind, forced := r.config.Kinds[name]

	numbers := make([]float64, len(cells))
	numeric := true
	for i, cell := range cells {
		v, err := strconv.ParseFloat(strings.ReplaceAll(cell, ",", ""), 64)
		if err != nil {
			if forced && kind == dataset.KindNumeric {
				return dataset.Column{}, fmt.Errorf("column %q row %d: %q is not a number", name, lines[i], cell)
			}
			numeric = false
			break
		}
		numbers[i] = v
	}

	if numeric && (!forced || kind == dataset.KindNumeric) {
		return dataset.Column{Name: name, Kind: dataset.KindNumeric, Numbers: numbers}, nil
	}
	return dataset.Column{Name: name, Kind: dataset.KindCategorical, Labels: cells}, nil
}

func isBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
