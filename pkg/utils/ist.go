package utils

import "time"

// IndiaLocation is the timezone MCX trades in.
var IndiaLocation *time.Location

func init() {
	var err error
	IndiaLocation, err = time.LoadLocation("Asia/Kolkata")
	if err != nil {
		// Fallback to UTC+5:30
		IndiaLocation = time.FixedZone("IST", 5*60*60+30*60)
	}
}

// ExchangeTime converts a timestamp to exchange-local time.
func ExchangeTime(t time.Time) time.Time {
	return t.In(IndiaLocation)
}
