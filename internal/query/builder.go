package query

import (
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"retail-service/internal/entity"
)

const (
	SortDate         = "date"
	SortQuantity     = "quantity"
	SortCustomerName = "customerName"
)

// Build turns a filter spec into a sales query. An empty spec yields an empty document, which matches everything.
func Build(f entity.FilterSpec) bson.D {
	q := bson.D{}

	if f.Search != "" {
		pattern := primitive.Regex{Pattern: regexp.QuoteMeta(f.Search), Options: "i"}
		q = append(q, bson.E{Key: "$or", Value: bson.A{
			bson.D{{Key: "customerName", Value: pattern}},
			bson.D{{Key: "phoneNumber", Value: pattern}},
		}})
	}

	q = appendIn(q, "customerRegion", f.Regions)
	q = appendIn(q, "gender", f.Genders)
	q = appendIn(q, "productCategory", f.Categories)
	q = appendIn(q, "tags", f.Tags)
	q = appendIn(q, "paymentMethod", f.PaymentMethods)

	if f.AgeMin != nil || f.AgeMax != nil {
		age := bson.D{}
		if f.AgeMin != nil {
			age = append(age, bson.E{Key: "$gte", Value: *f.AgeMin})
		}
		if f.AgeMax != nil {
			age = append(age, bson.E{Key: "$lte", Value: *f.AgeMax})
		}
		q = append(q, bson.E{Key: "age", Value: age})
	}

	if f.DateFrom != nil || f.DateTo != nil {
		date := bson.D{}
		if f.DateFrom != nil {
			date = append(date, bson.E{Key: "$gte", Value: StartOfDay(*f.DateFrom)})
		}
		if f.DateTo != nil {
			date = append(date, bson.E{Key: "$lte", Value: EndOfDay(*f.DateTo)})
		}
		q = append(q, bson.E{Key: "date", Value: date})
	}

	return q
}

func appendIn(q bson.D, field string, values []string) bson.D {
	if len(values) == 0 {
		return q
	}
	return append(q, bson.E{Key: field, Value: bson.D{{Key: "$in", Value: values}}})
}

// Sort returns the sort document for a listing. Unknown fields fall back to date, and anything but "asc" sorts
// descending. _id breaks ties so skip/limit pages never overlap.
func Sort(sortBy, sortOrder string) bson.D {
	field := SortDate
	switch sortBy {
	case SortQuantity, SortCustomerName:
		field = sortBy
	}

	direction := -1
	if sortOrder == "asc" {
		direction = 1
	}

	return bson.D{{Key: field, Value: direction}, {Key: "_id", Value: direction}}
}

func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// EndOfDay is the last millisecond of t's day.
func EndOfDay(t time.Time) time.Time {
	return StartOfDay(t).Add(24*time.Hour - time.Millisecond)
}
