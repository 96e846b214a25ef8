package dataset

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

const irisCSV = `sepal_length,species
5.1,setosa
4.9,setosa
7.0,versicolor
6.4,
`

func TestReadCSV(t *testing.T) {
	table, err := ReadTable(strings.NewReader(irisCSV), "iris.csv")
	require.NoError(t, err)

	assert.Equal(t, []string{"sepal_length", "species"}, table.Header)
	assert.Len(t, table.Rows, 4)
}

func TestReadEmptyCSV(t *testing.T) {
	_, err := ReadTable(strings.NewReader(""), "empty.csv")
	assert.Error(t, err)
}

func TestReadExcel(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{"price", "city"}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{100, "Austin"}))
	require.NoError(t, f.SetSheetRow(sheet, "A3", &[]any{250, "Boston"}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	table, err := ReadTable(&buf, "housing.xlsx")
	require.NoError(t, err)
	assert.Equal(t, []string{"price", "city"}, table.Header)
	require.Len(t, table.Rows, 2)
	assert.Equal(t, "Austin", table.Rows[0][1])
}

func TestBuildProfile(t *testing.T) {
	table, err := ReadTable(strings.NewReader(irisCSV), "iris.csv")
	require.NoError(t, err)

	profile := BuildProfile(table)
	assert.Equal(t, 4, profile.Rows)
	require.Len(t, profile.Columns, 2)

	numeric := profile.Columns[0]
	assert.Equal(t, "sepal_length", numeric.Name)
	assert.Equal(t, "numeric", numeric.Type)
	require.NotNil(t, numeric.Min)
	assert.Equal(t, 4.9, *numeric.Min)
	assert.Equal(t, 7.0, *numeric.Max)
	assert.InDelta(t, 5.85, *numeric.Mean, 0.001)

	categorical := profile.Columns[1]
	assert.Equal(t, "categorical", categorical.Type)
	assert.Equal(t, 1, categorical.Nulls)
	assert.Equal(t, 2, categorical.Distinct)

	require.Len(t, profile.SampleRows, 4)
	assert.Equal(t, "setosa", profile.SampleRows[0]["species"])
	assert.Equal(t, []string{"sepal_length", "species"}, profile.FeatureNames())
}

func TestTableCSVRoundTrip(t *testing.T) {
	table := &Table{
		FileName: "t.csv",
		Header:   []string{"a", "b"},
		Rows:     [][]string{{"1", "x"}, {"2", "y"}},
	}
	out, err := table.CSV()
	require.NoError(t, err)

	reparsed, err := ReadTable(strings.NewReader(out), "t.csv")
	require.NoError(t, err)
	assert.Equal(t, table.Header, reparsed.Header)
	assert.Equal(t, table.Rows, reparsed.Rows)
}
