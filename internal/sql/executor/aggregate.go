/*
 * Copyright (c) 2026 Firefly Software Solutions Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package executor

import (
	"strings"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/sql"
)

// group is one GROUP BY bucket: the rows that share a key, in arrival order.
type group struct {
	key  string
	rows []Row
}

// groupRows partitions rows into GROUP BY buckets. With no GROUP BY
// clause but at least one aggregate item, every row falls into a single
// implicit group.
func groupRows(rows []Row, groupBy []string) ([]*group, error) {
	if len(groupBy) == 0 {
		return []*group{{rows: rows}}, nil
	}
	index := make(map[string]*group)
	var order []*group
	for _, r := range rows {
		var keyParts []string
		for _, col := range groupBy {
			v, err := r.get(col, false)
			if err != nil {
				return nil, err
			}
			keyParts = append(keyParts, v.String())
		}
		key := strings.Join(keyParts, "\x1f")
		g, ok := index[key]
		if !ok {
			g = &group{key: key}
			index[key] = g
			order = append(order, g)
		}
		g.rows = append(g.rows, r)
	}
	return order, nil
}

// projectGroup computes one output row for a group against the
// SELECT-list items, evaluating aggregates over the group's member rows
// and taking plain columns from its first row. A non-aggregated column
// outside the GROUP BY list is not an error; it resolves to the first
// row's value.
func projectGroup(g *group, items []sql.SelectItem) ([]Value, error) {
	out := make([]Value, len(items))
	for i, item := range items {
		switch {
		case item.Aggregate != nil:
			v, err := computeAggregate(item.Aggregate, g.rows)
			if err != nil {
				return nil, err
			}
			out[i] = v
		case item.Column != nil:
			if len(g.rows) == 0 {
				out[i] = NullValue("")
				continue
			}
			v, err := g.rows[0].get(item.Column.Qualified(), false)
			if err != nil {
				return nil, err
			}
			out[i] = v
		default:
			return nil, flyerrors.NewSyntaxError("empty select item")
		}
	}
	return out, nil
}

func computeAggregate(agg *sql.AggregateExpr, rows []Row) (Value, error) {
	switch agg.Function {
	case "COUNT":
		if agg.Star {
			return NewInt(int64(len(rows))), nil
		}
		var n int64
		for _, r := range rows {
			v, err := r.get(agg.Column, false)
			if err != nil {
				return Value{}, err
			}
			if !v.Null {
				n++
			}
		}
		return NewInt(n), nil
	case "SUM", "AVG", "MIN", "MAX":
		return computeNumericAggregate(agg, rows)
	default:
		return Value{}, flyerrors.NewSyntaxError("unknown aggregate function: " + agg.Function)
	}
}

func computeNumericAggregate(agg *sql.AggregateExpr, rows []Row) (Value, error) {
	var (
		sum            float64
		count          int64
		minVal, maxVal float64
		minSet         bool
		resultType     = ""
	)
	for _, r := range rows {
		v, err := r.get(agg.Column, false)
		if err != nil {
			return Value{}, err
		}
		if v.Null {
			continue
		}
		f, ok := v.numeric()
		if !ok {
			return Value{}, flyerrors.TypeMismatch(agg.Column, "numeric", v.String())
		}
		if resultType == "" {
			resultType = string(v.Type)
		}
		sum += f
		count++
		if !minSet || f < minVal {
			minVal = f
			minSet = true
		}
		if f > maxVal || count == 1 {
			maxVal = f
		}
	}
	if count == 0 {
		return NullValue(""), nil
	}
	switch agg.Function {
	case "SUM":
		return numericResult(resultType, sum), nil
	case "AVG":
		return NewFloat(sum / float64(count)), nil
	case "MIN":
		return numericResult(resultType, minVal), nil
	case "MAX":
		return numericResult(resultType, maxVal), nil
	default:
		return Value{}, flyerrors.NewSyntaxError("unknown aggregate function: " + agg.Function)
	}
}

// numericResult renders f back into the column's declared type, so
// SUM/MIN/MAX over an INT column stay INT while AVG is always FLOAT.
func numericResult(declaredType string, f float64) Value {
	if declaredType == "INT" {
		return NewInt(int64(f))
	}
	return NewFloat(f)
}
