package api

import (
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"retail-service/internal/entity"
	"retail-service/internal/ingest"
)

// parseFilters reads the sales filter query parameters. List parameters may be comma separated, repeated, or both.
func parseFilters(c echo.Context) (entity.FilterSpec, error) {
	f := entity.FilterSpec{
		Search:         strings.TrimSpace(c.QueryParam("search")),
		Regions:        listParam(c, "regions"),
		Genders:        listParam(c, "genders"),
		Categories:     listParam(c, "categories"),
		Tags:           listParam(c, "tags"),
		PaymentMethods: listParam(c, "paymentMethods"),
		SortBy:         c.QueryParam("sortBy"),
		SortOrder:      c.QueryParam("sortOrder"),
	}

	var err error
	if f.AgeMin, err = optionalInt(c, "ageMin"); err != nil {
		return f, err
	}
	if f.AgeMax, err = optionalInt(c, "ageMax"); err != nil {
		return f, err
	}
	if f.DateFrom, err = optionalDate(c, "dateFrom"); err != nil {
		return f, err
	}
	if f.DateTo, err = optionalDate(c, "dateTo"); err != nil {
		return f, err
	}
	return f, nil
}

func listParam(c echo.Context, name string) []string {
	var out []string
	for _, raw := range c.QueryParams()[name] {
		out = append(out, splitList(raw)...)
	}
	return out
}

func splitList(s string) []string {
	var out []string
	for _, v := range strings.Split(s, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func optionalInt(c echo.Context, name string) (*int, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return nil, entity.Invalid("Invalid %s %q", name, raw)
	}
	return &v, nil
}

func optionalDate(c echo.Context, name string) (*time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return nil, nil
	}
	t, ok := ingest.ParseDate(raw)
	if !ok {
		return nil, entity.Invalid("Invalid %s %q", name, raw)
	}
	return &t, nil
}

// intParam returns the named query parameter, or def when it is absent.
func intParam(c echo.Context, name string, def int) (int, error) {
	v, err := optionalInt(c, name)
	if err != nil || v == nil {
		return def, err
	}
	return *v, nil
}
