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
	"fmt"
	"strings"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/sql"
)

// evalValue resolves a literal or column-reference expression against
// row to a typed Value. preferLeft is forwarded to Row.get and is true
// only while evaluating a JOIN's ON clause.
func evalValue(e sql.Expr, row Row, preferLeft bool) (Value, error) {
	switch t := e.(type) {
	case sql.LiteralExpr:
		switch v := t.Value.(type) {
		case int64:
			return NewInt(v), nil
		case float64:
			return NewFloat(v), nil
		case string:
			return NewText(v), nil
		default:
			return Value{}, fmt.Errorf("unsupported literal type %T", v)
		}
	case sql.ColumnRef:
		return row.get(t.Qualified(), preferLeft)
	default:
		return Value{}, fmt.Errorf("expression %T is not a value", e)
	}
}

// evalBool evaluates a WHERE/ON predicate tree to a boolean, with
// short-circuit AND/OR above the comparison operators.
func evalBool(e sql.Expr, row Row, preferLeft bool) (bool, error) {
	bin, ok := e.(sql.BinaryExpr)
	if !ok {
		return false, fmt.Errorf("expression %T is not a predicate", e)
	}
	switch bin.Op {
	case "AND":
		l, err := evalBool(bin.Left, row, preferLeft)
		if err != nil || !l {
			return false, err
		}
		return evalBool(bin.Right, row, preferLeft)
	case "OR":
		l, err := evalBool(bin.Left, row, preferLeft)
		if err != nil {
			return false, err
		}
		if l {
			return true, nil
		}
		return evalBool(bin.Right, row, preferLeft)
	default:
		lv, err := evalValue(bin.Left, row, preferLeft)
		if err != nil {
			return false, err
		}
		rv, err := evalValue(bin.Right, row, preferLeft)
		if err != nil {
			return false, err
		}
		return compare(lv, rv, bin.Op)
	}
}

// compare applies a comparison operator: numeric comparison when both
// sides are numeric (or numeric-looking TEXT), lexicographic comparison
// on the rendered string form otherwise. A null operand is handled by
// compareNull: two nulls are equal, and ordering operators are false.
func compare(l, r Value, op string) (bool, error) {
	if l.Null || r.Null {
		return compareNull(l, r, op), nil
	}

	var cmp int
	lf, lok := l.numeric()
	rf, rok := r.numeric()
	if lok && rok {
		switch {
		case lf < rf:
			cmp = -1
		case lf > rf:
			cmp = 1
		default:
			cmp = 0
		}
	} else {
		cmp = strings.Compare(l.String(), r.String())
	}

	switch op {
	case "=":
		return cmp == 0, nil
	case "!=":
		return cmp != 0, nil
	case ">":
		return cmp > 0, nil
	case ">=":
		return cmp >= 0, nil
	case "<":
		return cmp < 0, nil
	case "<=":
		return cmp <= 0, nil
	default:
		return false, flyerrors.NewSyntaxError("unknown comparison operator: " + op)
	}
}

// compareNull defines null comparison semantics: two nulls are equal to
// each other, a null is unequal to any non-null, and every ordering
// operator against a null is false.
func compareNull(l, r Value, op string) bool {
	switch op {
	case "=":
		return l.Null && r.Null
	case "!=":
		return l.Null != r.Null
	default:
		return false
	}
}
