package task

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"
)

// Selection is what the user picked: a year-by-season matrix of financial
// reports and a set of annual-report years for one company.
type Selection struct {
	CompanyID        string
	IncludeFinancial bool
	IncludeAnnual    bool
	Financial        map[string][]int
	Annual           []string
}

// Build creates the sorted task list for sel. Duplicate selections produce
// one task each.
func Build(sel Selection) []Task {
	companyID := strings.TrimSpace(sel.CompanyID)
	var tasks []Task

	if sel.IncludeFinancial {
		for year, seasons := range sel.Financial {
			seen := make(map[int]bool, len(seasons))
			for _, season := range seasons {
				if seen[season] {
					continue
				}
				seen[season] = true
				tasks = append(tasks, NewFinancial(companyID, year, season))
			}
		}
	}

	if sel.IncludeAnnual {
		seen := make(map[string]bool, len(sel.Annual))
		for _, year := range sel.Annual {
			if seen[year] {
				continue
			}
			seen[year] = true
			tasks = append(tasks, NewAnnual(companyID, year))
		}
	}

	Sort(tasks)
	return tasks
}

// FinancialYears lists the years offered for financial reports: the
// current year and the nine before it, newest first.
func FinancialYears(now time.Time) []string {
	return yearRange(now.Year(), 10)
}

// AnnualYears lists the years offered for annual reports: the previous year
// and the nine before it, newest first. The current year's annual report is
// not published until the following spring.
func AnnualYears(now time.Time) []string {
	return yearRange(now.Year()-1, 10)
}

func yearRange(from, n int) []string {
	years := make([]string, 0, n)
	for y := from; y > from-n; y-- {
		years = append(years, strconv.Itoa(y))
	}
	return years
}

// ParseSeasons parses a financial selection of the form "2024:1,3" into its
// year and seasons. A bare year selects all four seasons.
func ParseSeasons(s string) (string, []int, error) {
	year, list, found := strings.Cut(strings.TrimSpace(s), ":")
	if _, err := strconv.Atoi(year); err != nil || len(year) != 4 {
		return "", nil, fmt.Errorf("task: invalid year %q", year)
	}
	if !found {
		return year, []int{1, 2, 3, 4}, nil
	}

	var seasons []int
	for _, part := range strings.Split(list, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > 4 {
			return "", nil, fmt.Errorf("task: invalid season %q in %q", part, s)
		}
		if !slices.Contains(seasons, n) {
			seasons = append(seasons, n)
		}
	}
	return year, seasons, nil
}

// ParseYears parses a comma-separated list of four-digit years.
func ParseYears(s string) ([]string, error) {
	var years []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := strconv.Atoi(part); err != nil || len(part) != 4 {
			return nil, fmt.Errorf("task: invalid year %q", part)
		}
		years = append(years, part)
	}
	return years, nil
}
