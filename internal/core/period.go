package core

import "fmt"

// Period identifies a calendar month: the budget's aggregation and
// duplication granularity. Day-of-month never matters here.
type Period struct {
	Month int // 1-12
	Year  int
}

func NewPeriod(month, year int) Period {
	return Period{Month: month, Year: year}
}

func (p Period) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 {
		return ErrInvalidYear
	}
	return nil
}

// Next returns the following calendar month, rolling December over into
// January of the next year.
func (p Period) Next() Period {
	if p.Month == 12 {
		return Period{Month: 1, Year: p.Year + 1}
	}
	return Period{Month: p.Month + 1, Year: p.Year}
}

func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, p.Month)
}
