package task

import (
	"cmp"
	"fmt"
	"slices"
	"strconv"

	"github.com/YenHsinCHEN/MopsDownloader/internal/mops"
)

// noSeason sorts tasks without a season after Q1..Q4.
const noSeason = 5

// Task is one document to download. Tasks are values and are never mutated
// after construction.
type Task struct {
	CompanyID string          `json:"co_id"`
	Year      string          `json:"year"`
	Season    int             `json:"season,omitempty"`
	Type      mops.ReportType `json:"type"`
	FileName  string          `json:"file_name"`
}

// NewFinancial returns the task for a quarterly financial report.
func NewFinancial(companyID, year string, season int) Task {
	return Task{
		CompanyID: companyID,
		Year:      year,
		Season:    season,
		Type:      mops.Financial,
		FileName:  fmt.Sprintf("%s_%s_Q%d_財報.pdf", companyID, year, season),
	}
}

// NewAnnual returns the task for an annual report.
func NewAnnual(companyID, year string) Task {
	return Task{
		CompanyID: companyID,
		Year:      year,
		Type:      mops.Annual,
		FileName:  fmt.Sprintf("%s_%s_年報.pdf", companyID, year),
	}
}

// Query converts the task into a resolver query.
func (t Task) Query() mops.Query {
	return mops.Query{
		CompanyID: t.CompanyID,
		Year:      t.Year,
		Season:    t.Season,
		Type:      t.Type,
	}
}

func (t Task) String() string {
	if t.Season > 0 {
		return fmt.Sprintf("%s %s %s Q%d", t.Type, t.CompanyID, t.Year, t.Season)
	}
	return fmt.Sprintf("%s %s %s", t.Type, t.CompanyID, t.Year)
}

// Compare orders tasks for execution: financial before annual, newer years
// first, then ascending season with a missing season last. Years that are
// not integers sort after all valid years.
func Compare(a, b Task) int {
	if c := cmp.Compare(a.Type, b.Type); c != 0 {
		return c
	}
	if c := cmp.Compare(yearKey(b), yearKey(a)); c != 0 {
		return c
	}
	return cmp.Compare(seasonKey(a), seasonKey(b))
}

// Sort orders tasks in place using Compare. The sort is stable.
func Sort(tasks []Task) {
	slices.SortStableFunc(tasks, Compare)
}

func yearKey(t Task) int {
	y, err := strconv.Atoi(t.Year)
	if err != nil {
		return -1
	}
	return y
}

func seasonKey(t Task) int {
	if t.Season < 1 || t.Season > 4 {
		return noSeason
	}
	return t.Season
}
