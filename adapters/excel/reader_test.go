package excel

import (
	"os"
	"path/filepath"
	"testing"

	"gosim/domain/dataset"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeXLSX(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestReadExcelInfersKinds(t *testing.T) {
	path := writeXLSX(t, [][]interface{}{
		{"species", "weight"},
		{"trout", 2.1},
		{"salmon", 3.4},
		{"trout", 1.9},
	})

	frame, err := LoadFrame(path)
	require.NoError(t, err)
	assert.Equal(t, 3, frame.Len())

	weights, err := dataset.Float64s(frame, "weight")
	require.NoError(t, err)
	assert.Equal(t, []float64{2.1, 3.4, 1.9}, weights)

	species, err := dataset.Strings(frame, "species")
	require.NoError(t, err)
	assert.Equal(t, []string{"trout", "salmon", "trout"}, species)
}

func TestReadCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "salaries.csv")
	require.NoError(t, os.WriteFile(path, []byte("name,salary,team\nA,\"50,000\",7\nB,72000,9\n\nC,61000,7\n"), 0o644))

	cfg := DefaultExcelConfig()
	cfg.FilePath = path
	cfg.Kinds = map[string]dataset.Kind{"team": dataset.KindCategorical}
	frame, err := NewDataReader(cfg, nil).ReadFrame()
	require.NoError(t, err)

	salary, err := dataset.Float64s(frame, "salary")
	require.NoError(t, err)
	assert.Equal(t, []float64{50000, 72000, 61000}, salary)

	teams, err := dataset.Strings(frame, "team")
	require.NoError(t, err)
	assert.Equal(t, []string{"7", "9", "7"}, teams)
}

func TestForcedNumericColumnRejectsText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.csv")
	require.NoError(t, os.WriteFile(path, []byte("x\n1\nabc\n"), 0o644))

	cfg := DefaultExcelConfig()
	cfg.FilePath = path
	cfg.Kinds = map[string]dataset.Kind{"x": dataset.KindNumeric}
	_, err := NewDataReader(cfg, nil).ReadFrame()
	assert.ErrorContains(t, err, "not a number")
}

func TestNumberErrorReportsSheetRowAfterBlankRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gaps.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n1,a\n,\nabc,b\n"), 0o644))

	cfg := DefaultExcelConfig()
	cfg.FilePath = path
	cfg.Kinds = map[string]dataset.Kind{"x": dataset.KindNumeric}
	_, err := NewDataReader(cfg, nil).ReadFrame()
	assert.ErrorContains(t, err, `column "x" row 4: "abc" is not a number`)
}

func TestReadFrameErrors(t *testing.T) {
	_, err := LoadFrame(filepath.Join(t.TempDir(), "missing.csv"))
	assert.ErrorContains(t, err, "not found")

	path := filepath.Join(t.TempDir(), "header.csv")
	require.NoError(t, os.WriteFile(path, []byte("x,y\n"), 0o644))
	_, err = LoadFrame(path)
	assert.ErrorContains(t, err, "at least a header row")
}
