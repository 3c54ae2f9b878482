package rows

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const teams = `targetName;operand;field;value
EMEA North;AND;Country;Sweden
EMEA North;AND;Department;Ops
APAC;OR;Country;Japan
APAC;OR;Country;Korea
`

func values(rows []Row, column string) []string {
	out := make([]string, len(rows))
	for i, r := range rows {
		out[i] = Value(r, column)
	}
	return out
}

func TestRead_PreservesColumnOrder(t *testing.T) {
	table, err := Read(strings.NewReader(teams), Options{Delimiter: ';'})
	require.NoError(t, err)

	assert.Equal(t, []string{"targetName", "operand", "field", "value"}, table.Header())
	assert.Equal(t, 4, table.Len())

	all, err := table.Select(Selection{})
	require.NoError(t, err)
	require.Len(t, all, 4)

	var keys []string
	for el := all[0].Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Key)
	}
	assert.Equal(t, table.Header(), keys)
}

func TestSelect_DistinctFirstWins(t *testing.T) {
	table, err := Read(strings.NewReader(teams), Options{Delimiter: ';'})
	require.NoError(t, err)

	got, err := table.Select(Selection{
		Columns:    []string{"targetName", "operand"},
		DistinctBy: []string{"targetName"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"EMEA North", "APAC"}, values(got, "targetName"))
	assert.Equal(t, []string{"AND", "OR"}, values(got, "operand"))
	assert.Equal(t, 2, got[0].Len())
}

func TestSelect_Where(t *testing.T) {
	table, err := Read(strings.NewReader(teams), Options{Delimiter: ';'})
	require.NoError(t, err)

	got, err := table.Select(Selection{
		Columns: []string{"field", "value"},
		Where:   map[string]string{"targetName": "APAC"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Japan", "Korea"}, values(got, "value"))
}

func TestSelect_UnknownColumn(t *testing.T) {
	table, err := Read(strings.NewReader("id\na\n"), Options{})
	require.NoError(t, err)

	_, err = table.Select(Selection{Columns: []string{"email"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email")
}

func TestRead_ShortRecordsPadded(t *testing.T) {
	table, err := Read(strings.NewReader("id,name\nabc\n"), Options{})
	require.NoError(t, err)

	got, err := table.Select(Selection{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", Value(got[0], "name"))
}

func TestRead_Empty(t *testing.T) {
	table, err := Read(strings.NewReader(""), Options{})
	require.NoError(t, err)
	assert.Equal(t, 0, table.Len())
}

func TestOpen_EncodedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "users.csv")
	require.NoError(t, os.WriteFile(path, []byte("\xef\xbb\xbfid\njdoe\njdoe\nm\xfcller\n"), 0644))

	_, err := Open(path, Options{Encoding: "klingon"})
	require.Error(t, err)

	// The BOM is stripped, so the header is "id" and not "\ufeffid".
	table, err := Open(path, Options{Encoding: "utf-8-sig"})
	require.NoError(t, err)
	assert.Equal(t, []string{"id"}, table.Header())

	latin := filepath.Join(t.TempDir(), "latin.csv")
	require.NoError(t, os.WriteFile(latin, []byte("id\nm\xfcller\n"), 0644))
	table, err = Open(latin, Options{Encoding: "latin1"})
	require.NoError(t, err)
	got, err := table.Select(Selection{DistinctBy: []string{"id"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"müller"}, values(got, "id"))
}

func TestOpen_MissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "nope.csv"), Options{})
	require.Error(t, err)
}
