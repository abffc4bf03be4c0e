package query

import (
	"go.mongodb.org/mongo-driver/bson"
)

const (
	Daily   = "daily"
	Weekly  = "weekly"
	Monthly = "monthly"
	Yearly  = "yearly"
)

// ParseTimeframe reports whether s names a known trend timeframe. An empty string is accepted as monthly.
func ParseTimeframe(s string) (string, bool) {
	switch s {
	case Daily, Weekly, Monthly, Yearly:
		return s, true
	case "":
		return Monthly, true
	}
	return Monthly, false
}

// TrendGroupKey returns the $group _id expression bucketing sales by timeframe, along with the timeframe actually
// used. Unrecognized timeframes fall back to monthly.
func TrendGroupKey(timeframe string) (any, string) {
	timeframe, _ = ParseTimeframe(timeframe)

	switch timeframe {
	case Daily:
		return dateToString("%Y-%m-%d"), Daily
	case Weekly:
		return dateToString("%G-W%V"), Weekly
	case Yearly:
		return bson.D{{Key: "$year", Value: "$date"}}, Yearly
	default:
		return dateToString("%Y-%m"), Monthly
	}
}

// TrendLabel is the JSON key carrying the bucket value for a timeframe.
func TrendLabel(timeframe string) string {
	switch timeframe {
	case Daily:
		return "date"
	case Weekly:
		return "week"
	case Yearly:
		return "year"
	default:
		return "month"
	}
}

func dateToString(format string) bson.D {
	return bson.D{{Key: "$dateToString", Value: bson.D{
		{Key: "format", Value: format},
		{Key: "date", Value: "$date"},
	}}}
}
