package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Contract describes one tradeable MCX crude-oil option contract.
type Contract struct {
	Symbol  string
	Side    OptionSide
	Strike  float64
	Expiry  time.Time
	LotSize int
}

// TimeToExpiry returns the remaining lifetime in years at the given time.
func (c Contract) TimeToExpiry(now time.Time) float64 {
	return c.Expiry.Sub(now).Seconds() / (365 * 24 * 3600)
}

var symbolRe = regexp.MustCompile(`^CRUDEOIL(\d{2})([A-Z]{3})(\d{2})(\d{5})(CE|PE)$`)

var monthsByName = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ParseContract parses an MCX crude-oil option symbol such as
// CRUDEOIL19DEC2465000CE into a Contract.
func ParseContract(symbol string, loc *time.Location) (Contract, error) {
	m := symbolRe.FindStringSubmatch(symbol)
	if m == nil {
		return Contract{}, fmt.Errorf("unrecognized option symbol %q", symbol)
	}
	day, _ := strconv.Atoi(m[1])
	month, ok := monthsByName[m[2]]
	if !ok {
		return Contract{}, fmt.Errorf("unrecognized expiry month in %q", symbol)
	}
	year, _ := strconv.Atoi(m[3])
	strike, _ := strconv.Atoi(m[4])
	if loc == nil {
		loc = time.UTC
	}
	return Contract{
		Symbol: symbol,
		Side:   OptionSide(m[5]),
		Strike: float64(strike),
		Expiry: time.Date(2000+year, month, day, 0, 0, 0, 0, loc),
	}, nil
}
