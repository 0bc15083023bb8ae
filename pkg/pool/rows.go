package pool

import (
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/devkit-go/pgtk/pkg/pgtk"
)

// queryArgs appends a result-format hint as pgx's special QueryResultFormats
// argument, forcing every returned column to use the requested wire format.
func queryArgs(params []any, format pgtk.ResultFormat) []any {
	args := make([]any, 0, len(params)+1)
	args = append(args, params...)
	args = append(args, pgx.QueryResultFormats{int16(format)})
	return args
}

// collectRows materializes a pgx.Rows result set eagerly, matching
// exec's "return all rows eagerly" contract. In BinaryFormat, column
// values are returned as pgx decoded them; in TextFormat (the default),
// every value is coerced to its string representation.
func collectRows(rows pgx.Rows, format pgtk.ResultFormat) (pgtk.Rows, error) {
	defer rows.Close()

	fields := rows.FieldDescriptions()
	var out pgtk.Rows
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, err
		}
		row := make(pgtk.Row, len(values))
		for i, v := range values {
			name := fields[i].Name
			row[name] = columnValue(v, format)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func columnValue(v any, format pgtk.ResultFormat) any {
	if v == nil || format == pgtk.BinaryFormat {
		return v
	}
	switch t := v.(type) {
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}
