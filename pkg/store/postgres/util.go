package postgres

import "strconv"

// limitPlaceholder returns the positional placeholder "$n" for a query
// built by appending optional WHERE clauses before the LIMIT argument.
func limitPlaceholder(n int) string {
	return "$" + strconv.Itoa(n)
}
