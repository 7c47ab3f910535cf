package writter

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tp-distribuidos-2c2025/measurements/shared/aggregate"
)

func sampleTable() *aggregate.Table {
	table := aggregate.NewTable(0)
	for _, v := range []float64{9.6, -1.2, 3.0} {
		table.Update("Bergen", v)
	}
	for _, v := range []float64{2.0, 4.0} {
		table.Update("Amsterdam", v)
	}
	table.Update("Whitehorse", -0.04)
	return table
}

func render(t *testing.T, format string, table *aggregate.Table) string {
	t.Helper()
	rw, err := NewResultWriter(format)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, rw.Write(&buf, table))
	return buf.String()
}

func TestWriteText(t *testing.T) {
	got := render(t, FormatText, sampleTable())

	assert.Equal(t, "{Amsterdam=2.0/3.0/4.0, Bergen=-1.2/3.8/9.6, Whitehorse=0.0/0.0/0.0}\n", got)
}

func TestWriteTextEmpty(t *testing.T) {
	assert.Equal(t, "{}\n", render(t, FormatText, aggregate.NewTable(0)))
}

func TestWriteLines(t *testing.T) {
	got := render(t, FormatLines, sampleTable())

	assert.Equal(t, "Amsterdam=2.0/3.0/4.0\nBergen=-1.2/3.8/9.6\nWhitehorse=0.0/0.0/0.0\n", got)
}

func TestWriteCSV(t *testing.T) {
	table := aggregate.NewTable(0)
	table.Update("Washington, D.C.", 12.25)

	got := render(t, FormatCSV, table)

	assert.Equal(t, "key,min,mean,max\n\"Washington, D.C.\",12.3,12.3,12.3\n", got)
}

func TestWriteJSON(t *testing.T) {
	var entries []Entry
	require.NoError(t, json.Unmarshal([]byte(render(t, FormatJSON, sampleTable())), &entries))

	require.Len(t, entries, 3)
	assert.Equal(t, Entry{Key: "Amsterdam", Min: 2, Mean: 3, Max: 4, Count: 2}, entries[0])
	assert.Equal(t, "Bergen", entries[1].Key)
	assert.Equal(t, uint64(3), entries[1].Count)
}

func TestRound(t *testing.T) {
	tests := map[float64]string{
		1.25:  "1.3",
		-1.25: "-1.2",
		-0.04: "0.0",
		0.05:  "0.1",
		37.0:  "37.0",
		-99.9: "-99.9",
	}
	for in, want := range tests {
		assert.Equal(t, want, oneDecimal(in), "%v", in)
	}
}

func TestEveryListedFormatRenders(t *testing.T) {
	for _, format := range Formats {
		t.Run(format, func(t *testing.T) {
			assert.NotEmpty(t, render(t, format, sampleTable()))
		})
	}
}

func TestUnknownFormat(t *testing.T) {
	_, err := NewResultWriter("xml")
	assert.Error(t, err)
}
