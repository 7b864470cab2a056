package security

import (
	"regexp"
	"strings"
)

var (
	identifierStrip = regexp.MustCompile(`[^A-Za-z0-9_.]`)
	leadingDigits   = regexp.MustCompile(`^[0-9]+`)
)

// SanitizeIdentifier strips a bare identifier (table or column name) down to
// the safe character set [A-Za-z0-9_.]. Leading digits are dropped and
// replaced with a single underscore so the result never starts with a digit.
// The function is pure and total: it never fails, only returns a possibly
// empty string. Callers must treat an empty result as invalid input before
// embedding it in query text.
func SanitizeIdentifier(name string) string {
	sanitized := identifierStrip.ReplaceAllString(name, "")

	if sanitized != "" && sanitized[0] >= '0' && sanitized[0] <= '9' {
		sanitized = "_" + leadingDigits.ReplaceAllString(sanitized, "")
	}

	return sanitized
}

// QueryType classifies a query by its leading statement keyword.
type QueryType string

const (
	QueryTypeSelect QueryType = "SELECT"
	QueryTypeInsert QueryType = "INSERT"
	QueryTypeUpdate QueryType = "UPDATE"
	QueryTypeDelete QueryType = "DELETE"
	QueryTypeDDL    QueryType = "DDL"
	QueryTypeOther  QueryType = "OTHER"
)

// ClassifyQuery determines the type of a query from its first keyword.
func ClassifyQuery(query string) QueryType {
	stripped := strings.ToUpper(strings.TrimSpace(query))

	switch {
	case strings.HasPrefix(stripped, "SELECT"):
		return QueryTypeSelect
	case strings.HasPrefix(stripped, "INSERT"):
		return QueryTypeInsert
	case strings.HasPrefix(stripped, "UPDATE"):
		return QueryTypeUpdate
	case strings.HasPrefix(stripped, "DELETE"):
		return QueryTypeDelete
	}

	for _, ddl := range []string{"CREATE", "ALTER", "DROP", "TRUNCATE"} {
		if strings.HasPrefix(stripped, ddl) {
			return QueryTypeDDL
		}
	}

	return QueryTypeOther
}
