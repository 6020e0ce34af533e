package gateway

// Filter is an equality condition on one column.
type Filter struct {
	Column string
	Value  any
}

// Order sorts a Select by one column.
type Order struct {
	Column    string
	Ascending bool
}

// Query modifies a Select. The zero value selects every row in storage order.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int // 0 means no limit
	Count   bool
}

// Eq returns a copy of q with an added equality filter.
func (q Query) Eq(column string, value any) Query {
	q.Filters = append(append([]Filter(nil), q.Filters...), Filter{Column: column, Value: value})
	return q
}

// OrderBy returns a copy of q sorted by column.
func (q Query) OrderBy(column string, ascending bool) Query {
	q.Order = &Order{Column: column, Ascending: ascending}
	return q
}

// WithLimit returns a copy of q returning at most n rows.
func (q Query) WithLimit(n int) Query {
	q.Limit = n
	return q
}

// WithCount returns a copy of q that also reports the total number of matching rows.
func (q Query) WithCount() Query {
	q.Count = true
	return q
}
