package store

import (
	"strconv"
	"strings"
)

// Dialect adapts queries written with '?' placeholders to the target driver.
type Dialect string

const (
	DialectPostgres Dialect = "postgres"
	DialectSQLite   Dialect = "sqlite"
)

// Rebind rewrites '?' placeholders into the driver's positional form.
// Postgres expects $1..$n; sqlite takes the query unchanged.
func (d Dialect) Rebind(query string) string {
	if d == DialectSQLite {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] != '?' {
			b.WriteByte(query[i])
			continue
		}
		n++
		b.WriteByte('$')
		b.WriteString(strconv.Itoa(n))
	}
	return b.String()
}
