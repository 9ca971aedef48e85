package worklist

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleCSV = `step,volume_ul,time,step_index,step_group_index,previous_step_index,destination,destination_group,group,previous_group
stage,10,0,1,1,0,1,1,1,0
imaging,0,30,2,1,1,1,1,2,1
wash,"25,5",-1,3,1,2,1,1,3,2
`

func TestReadCSV(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)
	require.Len(t, tbl.Items, 3)

	first := tbl.Items[0]
	assert.Equal(t, "stage", first.Step)
	assert.Equal(t, 0, first.RequiredTime)
	assert.Equal(t, 1, first.Group)
	assert.Equal(t, "1", first.Destination)
	assert.Equal(t, "10", first.Extra["volume_ul"])

	assert.Equal(t, NoTiming, tbl.Items[2].RequiredTime)
	assert.Equal(t, 2, tbl.Items[2].PreviousGroup)
	assert.Equal(t, "25,5", tbl.Items[2].Extra["volume_ul"])
}

func TestReadCSV_MissingColumns(t *testing.T) {
	_, err := ReadCSV(strings.NewReader("step,time\nstage,0\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing required columns")
	assert.Contains(t, err.Error(), "group")
}

func TestReadCSV_BadNumber(t *testing.T) {
	in := strings.Replace(sampleCSV, "stage,10,0,", "stage,10,abc,", 1)
	_, err := ReadCSV(strings.NewReader(in))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "row 1 column time")
}

func TestCSVRoundTrip_PreservesColumns(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, tbl))
	assert.Equal(t, sampleCSV, buf.String())
}

func TestXLSXRoundTrip(t *testing.T) {
	tbl, err := ReadCSV(strings.NewReader(sampleCSV))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, tbl, ""))

	back, err := ReadXLSX(bytes.NewReader(buf.Bytes()), "")
	require.NoError(t, err)
	assert.Equal(t, tbl.Header, back.Header)
	assert.Equal(t, tbl.Items, back.Items)
}

func TestParseInt(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"12", 12, false},
		{" -1 ", -1, false},
		{"30.0", 30, false},
		{"2.5", 0, true},
		{"x", 0, true},
	}
	for _, tt := range tests {
		got, err := ParseInt(tt.in)
		if tt.wantErr {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestNewDurationTable(t *testing.T) {
	table, err := NewDurationTable([]DurationEntry{{"stage", 5}, {"imaging", 10}, {"stage", 5}})
	require.NoError(t, err)
	assert.Equal(t, DurationTable{"stage": 5, "imaging": 10}, table)

	_, err = NewDurationTable([]DurationEntry{{"stage", 5}, {"stage", 6}})
	assert.ErrorContains(t, err, "conflicting durations")

	_, err = NewDurationTable([]DurationEntry{{"stage", -1}})
	assert.ErrorContains(t, err, "negative duration")

	_, err = NewDurationTable([]DurationEntry{{"", 1}})
	assert.Error(t, err)
}

func TestReadDurationsCSV(t *testing.T) {
	entries, err := ReadDurationsCSV(strings.NewReader("step,exp_time\nstage,5\nimaging,10\n\n"))
	require.NoError(t, err)
	assert.Equal(t, []DurationEntry{{"stage", 5}, {"imaging", 10}}, entries)

	_, err = ReadDurationsCSV(strings.NewReader("name,seconds\nstage,5\n"))
	assert.Error(t, err)
}

func TestReadDurationsJSON(t *testing.T) {
	doc := []byte(`{"settings":{"steps":[{"step":"stage","exp_time":5},{"step":"wash","exp_time":7}]}}`)
	entries, err := ReadDurationsJSON(doc, "settings.steps")
	require.NoError(t, err)
	assert.Equal(t, []DurationEntry{{"stage", 5}, {"wash", 7}}, entries)

	entries, err = ReadDurationsJSON([]byte(`{"stage":5}`), "")
	require.NoError(t, err)
	assert.Equal(t, []DurationEntry{{"stage", 5}}, entries)

	_, err = ReadDurationsJSON(doc, "settings.missing")
	assert.ErrorContains(t, err, "not found")

	_, err = ReadDurationsJSON([]byte(`[{"step":"stage"}]`), "")
	assert.Error(t, err)

	_, err = ReadDurationsJSON([]byte(`{`), "")
	assert.Error(t, err)
}

func TestReadDurationsYAML(t *testing.T) {
	entries, err := ReadDurationsYAML([]byte("- step: stage\n  exp_time: 5\n"))
	require.NoError(t, err)
	assert.Equal(t, []DurationEntry{{"stage", 5}}, entries)

	entries, err = ReadDurationsYAML([]byte("imaging: 10\n"))
	require.NoError(t, err)
	assert.Equal(t, []DurationEntry{{"imaging", 10}}, entries)
}

func TestLoadAndSave(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "worklist.csv")
	require.NoError(t, os.WriteFile(in, []byte(sampleCSV), 0644))

	tbl, err := Load(in, "")
	require.NoError(t, err)
	require.Len(t, tbl.Items, 3)

	out := filepath.Join(dir, "out.xlsx")
	require.NoError(t, Save(out, tbl, "reordered"))
	back, err := Load(out, "reordered")
	require.NoError(t, err)
	assert.Equal(t, tbl.Items, back.Items)

	_, err = Load(filepath.Join(dir, "worklist.pdf"), "")
	assert.ErrorContains(t, err, "unsupported file type")

	dur := filepath.Join(dir, "durations.yaml")
	require.NoError(t, os.WriteFile(dur, []byte("stage: 5\n"), 0644))
	entries, err := LoadDurations(dur, DurationOptions{})
	require.NoError(t, err)
	assert.Equal(t, []DurationEntry{{"stage", 5}}, entries)
}
