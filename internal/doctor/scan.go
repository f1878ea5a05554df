package doctor

import "database/sql"

// scanIDsInto calls fn for every id in a single-column *sql.Rows result,
// closing rows when done.
func scanIDsInto(rows *sql.Rows, fn func(id int64)) error {
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return err
		}
		fn(id)
	}
	return rows.Err()
}

// collectIDs gathers every id in a single-column *sql.Rows result.
func collectIDs(rows *sql.Rows) ([]int64, error) {
	defer func() { _ = rows.Close() }()
	var out []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
