package excel

import (
	"gosim/domain/dataset"
)

// ExcelConfig holds configuration for a tabular data source
type ExcelConfig struct {
	FilePath string                  `json:"file_path"`
	Sheet    string                  `json:"sheet"`
	Kinds    map[string]dataset.Kind `json:"kinds,omitempty"` // forced column kinds
}

// DefaultExcelConfig returns sensible defaults for Excel processing
func DefaultExcelConfig() ExcelConfig {
	return ExcelConfig{
		Sheet: "Sheet1",
	}
}
