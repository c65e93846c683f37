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
	"strconv"
	"strings"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/catalog"
)

// nullText is the on-disk sentinel for a null value. This conflates
// absence with a genuine TEXT value of "None" - a known limitation of
// the serialization format.
const nullText = "None"

// Value is one typed, possibly-null row field.
type Value struct {
	Type  catalog.ColumnType
	Int   int64
	Float float64
	Text  string
	Null  bool
}

func NewInt(v int64) Value     { return Value{Type: catalog.TypeInt, Int: v} }
func NewFloat(v float64) Value { return Value{Type: catalog.TypeFloat, Float: v} }
func NewText(v string) Value   { return Value{Type: catalog.TypeText, Text: v} }
func NullValue(t catalog.ColumnType) Value { return Value{Type: t, Null: true} }

// String renders v in its on-disk textual form.
func (v Value) String() string {
	if v.Null {
		return nullText
	}
	switch v.Type {
	case catalog.TypeInt:
		return strconv.FormatInt(v.Int, 10)
	case catalog.TypeFloat:
		return strconv.FormatFloat(v.Float, 'g', -1, 64)
	default:
		return v.Text
	}
}

// numeric reports whether v can participate in a numeric comparison,
// returning its float64 value. A TEXT value that parses cleanly as a
// number counts too, so a numeric string compares numerically against
// a numeric column.
func (v Value) numeric() (float64, bool) {
	if v.Null {
		return 0, false
	}
	switch v.Type {
	case catalog.TypeInt:
		return float64(v.Int), true
	case catalog.TypeFloat:
		return v.Float, true
	default:
		f, err := strconv.ParseFloat(v.Text, 64)
		return f, err == nil
	}
}

// parseStoredValue decodes one pipe-delimited field into a typed Value
// per its declared column type.
func parseStoredValue(raw string, t catalog.ColumnType) (Value, error) {
	if raw == nullText {
		return NullValue(t), nil
	}
	switch t {
	case catalog.TypeInt:
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return Value{}, flyerrors.CorruptionError("malformed INT field: " + raw)
		}
		return NewInt(n), nil
	case catalog.TypeFloat:
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Value{}, flyerrors.CorruptionError("malformed FLOAT field: " + raw)
		}
		return NewFloat(f), nil
	default:
		return NewText(raw), nil
	}
}

// coerceLiteral converts a parsed literal (int64, float64, or string)
// into a Value of the declared column type: INT via integer parse,
// FLOAT via float parse, TEXT by string rendering.
func coerceLiteral(column string, lit any, t catalog.ColumnType) (Value, error) {
	text := literalText(lit)
	switch t {
	case catalog.TypeInt:
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return Value{}, flyerrors.TypeMismatch(column, string(catalog.TypeInt), text)
		}
		return NewInt(n), nil
	case catalog.TypeFloat:
		f, err := strconv.ParseFloat(text, 64)
		if err != nil {
			return Value{}, flyerrors.TypeMismatch(column, string(catalog.TypeFloat), text)
		}
		return NewFloat(f), nil
	default:
		return NewText(text), nil
	}
}

func literalText(lit any) string {
	switch v := lit.(type) {
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	case string:
		return v
	default:
		return ""
	}
}

// serializeRow joins values with the reserved pipe delimiter.
func serializeRow(values []Value) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = v.String()
	}
	return strings.Join(parts, "|")
}
