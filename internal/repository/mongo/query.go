package mongo

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
)

// Reserved query parameters that never become document filters.
var reservedParams = map[string]struct{}{
	"keyword": {},
	"page":    {},
	"limit":   {},
	"sort":    {},
}

// Comparison operator suffixes accepted in bracketed parameters,
// e.g. price[gte]=4999.
var comparisonOps = map[string]string{
	"gt":  "$gt",
	"gte": "$gte",
	"lt":  "$lt",
	"lte": "$lte",
}

// BuildCatalogFilter translates catalog listing query parameters into a
// MongoDB filter document.
//
//	keyword=phone        -> case-insensitive substring match on name
//	category=Laptop      -> equality match
//	stock=5              -> {"stock": 5} (numeric when parseable)
//	price[gte]=4999      -> {"price": {"$gte": 4999}}
//
// Operator values must be numeric; non-numeric ones are dropped. Keys
// containing '$' or '.' are dropped so client input can never smuggle in
// query operators.
func BuildCatalogFilter(params url.Values) bson.M {
	filter := bson.M{}

	if keyword := params.Get("keyword"); keyword != "" {
		filter["name"] = bson.M{
			"$regex":   regexp.QuoteMeta(keyword),
			"$options": "i",
		}
	}

	for key, values := range params {
		if _, ok := reservedParams[key]; ok {
			continue
		}
		if len(values) == 0 || values[0] == "" {
			continue
		}

		field, op, ok := splitComparison(key)
		if strings.ContainsAny(field, "$.") {
			continue
		}

		if !ok {
			// Stored numeric fields only match numeric values, so parse
			// before falling back to a string equality.
			if num, err := strconv.ParseFloat(values[0], 64); err == nil {
				filter[field] = num
			} else {
				filter[field] = values[0]
			}
			continue
		}

		num, err := strconv.ParseFloat(values[0], 64)
		if err != nil {
			continue
		}
		cond, _ := filter[field].(bson.M)
		if cond == nil {
			cond = bson.M{}
		}
		cond[op] = num
		filter[field] = cond
	}

	return filter
}

// splitComparison splits "price[gte]" into ("price", "$gte", true). Keys
// without a recognized bracketed operator are returned as-is.
func splitComparison(key string) (field, op string, ok bool) {
	open := strings.IndexByte(key, '[')
	if open <= 0 || !strings.HasSuffix(key, "]") {
		return key, "", false
	}
	mongoOp, known := comparisonOps[key[open+1:len(key)-1]]
	if !known {
		return key, "", false
	}
	return key[:open], mongoOp, true
}

// BuildCatalogSort translates the sort parameter into a sort document.
// A leading '-' sorts descending; the default is newest first.
func BuildCatalogSort(params url.Values) bson.D {
	field := params.Get("sort")
	if field == "" {
		return bson.D{{Key: "created_at", Value: -1}}
	}

	direction := 1
	if strings.HasPrefix(field, "-") {
		direction = -1
		field = field[1:]
	}
	if field == "" || strings.ContainsAny(field, "$.") {
		return bson.D{{Key: "created_at", Value: -1}}
	}
	return bson.D{{Key: field, Value: direction}}
}

// Pagination resolves the 1-based page and page size from query parameters.
// Out-of-range values fall back to page 1 and the default size; the size is
// capped at 100.
func Pagination(params url.Values, defaultPageSize int) (page, pageSize int64) {
	page = 1
	if raw := params.Get("page"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
			page = n
		}
	}

	pageSize = int64(defaultPageSize)
	if raw := params.Get("limit"); raw != "" {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 && n <= 100 {
			pageSize = n
		}
	}

	return page, pageSize
}
