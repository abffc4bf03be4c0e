package entity

import "time"

// FilterSpec is the request-scoped set of constraints applied to a sales query.
type FilterSpec struct {
	Search         string
	Regions        []string
	Genders        []string
	Categories     []string
	Tags           []string
	PaymentMethods []string
	AgeMin         *int
	AgeMax         *int
	DateFrom       *time.Time
	DateTo         *time.Time
	SortBy         string
	SortOrder      string
}
