package core

import "strings"

// DBTransactor is the part of a transaction repositories roll back on failure.
type DBTransactor interface {
	Commit() error
	Rollback() error
}

// DBOrdering sorts query results on Field. Repositories ignore the fields they do not know.
type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	if ord.Ascending {
		return ord.Field + " ASC"
	}
	return ord.Field + " DESC"
}

// ParseOrdering parses a comma separated list of fields, each prefixed with "-" for a descending order.
// eg: "-created_at,full_name"
func ParseOrdering(s string) []DBOrdering {
	var ordering []DBOrdering
	for _, field := range strings.Split(s, ",") {
		field = strings.TrimSpace(field)
		desc := strings.HasPrefix(field, "-")
		field = strings.TrimPrefix(field, "-")
		if field == "" {
			continue
		}
		ordering = append(ordering, DBOrdering{Field: field, Ascending: !desc})
	}
	return ordering
}
