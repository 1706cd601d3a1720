package query

import "strconv"

// Placeholder renders the n'th (1-based) bind parameter for a SQL dialect.
type Placeholder func(n int) string

// Dollar is the postgres placeholder style.
func Dollar(n int) string {
	return "$" + strconv.Itoa(n)
}

// Question is the sqlite placeholder style.
func Question(int) string {
	return "?"
}

// Paginate appends id based paging to a query of the form
// "SELECT ... WHERE (...)". The brackets around the where clause are
// required, since a cursor condition is ANDed onto it.
//
//	SELECT ... WHERE (...) AND id > $3 ORDER BY id ASC LIMIT $4
func Paginate(stmt string, args []interface{}, cursor Cursor, limit uint64, direction Ordering, placeholder Placeholder) (string, []interface{}) {
	if len(cursor) > 0 {
		args = append(args, int64(cursor.ToUint64()))
		if direction == Ascending {
			stmt += " AND id > " + placeholder(len(args))
		} else {
			stmt += " AND id < " + placeholder(len(args))
		}
	}

	if direction == Ascending {
		stmt += " ORDER BY id ASC"
	} else {
		stmt += " ORDER BY id DESC"
	}

	if limit > 0 {
		args = append(args, int64(limit))
		stmt += " LIMIT " + placeholder(len(args))
	}

	return stmt, args
}
