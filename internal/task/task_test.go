package task

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
)

func names(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, t := range tasks {
		out[i] = t.FileName
	}
	return out
}

func TestBuildOrder(t *testing.T) {
	tasks := Build(Selection{
		CompanyID:        "2330",
		IncludeFinancial: true,
		IncludeAnnual:    true,
		Financial: map[string][]int{
			"2024": {3, 1},
			"2025": {3, 1},
		},
		Annual: []string{"2023", "2024"},
	})

	assert.Equal(t, []string{
		"2330_2025_Q1_財報.pdf",
		"2330_2025_Q3_財報.pdf",
		"2330_2024_Q1_財報.pdf",
		"2330_2024_Q3_財報.pdf",
		"2330_2024_年報.pdf",
		"2330_2023_年報.pdf",
	}, names(tasks))
}

func TestBuildHonoursIncludeFlags(t *testing.T) {
	sel := Selection{
		CompanyID: "2330",
		Financial: map[string][]int{"2024": {1}},
		Annual:    []string{"2023"},
	}

	assert.Empty(t, Build(sel))

	sel.IncludeAnnual = true
	tasks := Build(sel)
	require.Len(t, tasks, 1)
	assert.Equal(t, mops.Annual, tasks[0].Type)
}

func TestBuildDeduplicates(t *testing.T) {
	tasks := Build(Selection{
		CompanyID:        " 2330 ",
		IncludeFinancial: true,
		IncludeAnnual:    true,
		Financial:        map[string][]int{"2024": {2, 2}},
		Annual:           []string{"2023", "2023"},
	})

	assert.Equal(t, []string{"2330_2024_Q2_財報.pdf", "2330_2023_年報.pdf"}, names(tasks))
}

func TestCompare(t *testing.T) {
	noSeason := Task{Type: mops.Financial, Year: "2024"}
	q4 := NewFinancial("1", "2024", 4)
	badYear := NewFinancial("1", "abcd", 1)
	annual := NewAnnual("1", "2030")

	assert.Negative(t, Compare(q4, noSeason), "missing season sorts last")
	assert.Negative(t, Compare(q4, badYear), "invalid year sorts after valid years")
	assert.Negative(t, Compare(badYear, annual), "financial before annual")
	assert.Zero(t, Compare(q4, q4))
}

func TestSortIsStable(t *testing.T) {
	a := Task{CompanyID: "a", Type: mops.Annual, Year: "x"}
	b := Task{CompanyID: "b", Type: mops.Annual, Year: "y"}
	tasks := []Task{a, b}

	Sort(tasks)

	assert.Equal(t, []Task{a, b}, tasks)
}

func TestTaskQuery(t *testing.T) {
	q := NewFinancial("2330", "2024", 2).Query()

	assert.Equal(t, mops.Query{CompanyID: "2330", Year: "2024", Season: 2, Type: mops.Financial}, q)
}

func TestTaskJSON(t *testing.T) {
	in := []Task{NewFinancial("2330", "2024", 1), NewAnnual("2330", "2023")}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"type":"financial"`)
	assert.Contains(t, string(data), `"type":"annual"`)

	var out []Task
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in, out)
}

func TestYearRanges(t *testing.T) {
	now := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	fin := FinancialYears(now)
	require.Len(t, fin, 10)
	assert.Equal(t, "2025", fin[0])
	assert.Equal(t, "2016", fin[9])

	ann := AnnualYears(now)
	require.Len(t, ann, 10)
	assert.Equal(t, "2024", ann[0])
	assert.Equal(t, "2015", ann[9])
}

func TestParseSeasons(t *testing.T) {
	year, seasons, err := ParseSeasons("2024:3,1,3")
	require.NoError(t, err)
	assert.Equal(t, "2024", year)
	assert.Equal(t, []int{3, 1}, seasons)

	year, seasons, err = ParseSeasons("2023")
	require.NoError(t, err)
	assert.Equal(t, "2023", year)
	assert.Equal(t, []int{1, 2, 3, 4}, seasons)

	for _, bad := range []string{"24:1", "2024:5", "2024:x", "abcd:1"} {
		_, _, err := ParseSeasons(bad)
		assert.Error(t, err, bad)
	}
}

func TestParseYears(t *testing.T) {
	years, err := ParseYears("2023, 2024,")
	require.NoError(t, err)
	assert.Equal(t, []string{"2023", "2024"}, years)

	_, err = ParseYears("2023,99")
	assert.Error(t, err)
}
