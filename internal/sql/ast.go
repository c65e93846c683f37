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

// Package sql holds the statement and expression trees shared by the
// parser, planner, and executor: the logical representation a SQL text
// string is compiled into before it touches the storage engine.
package sql

// Statement is any top-level SQL statement the parser can produce.
type Statement interface {
	statementNode()
}

// ColumnDef names one column of a CREATE TABLE / ALTER TABLE ADD COLUMN.
type ColumnDef struct {
	Name string
	Type string // INT | TEXT | FLOAT, validated by the catalog
}

// CreateTableStmt is `CREATE TABLE name (col type, ...)`.
type CreateTableStmt struct {
	TableName string
	Columns   []ColumnDef
}

func (CreateTableStmt) statementNode() {}

// DropTableStmt is `DROP TABLE name`.
type DropTableStmt struct {
	TableName string
}

func (DropTableStmt) statementNode() {}

// AlterTableAddColumnStmt is `ALTER TABLE name ADD COLUMN col type`.
type AlterTableAddColumnStmt struct {
	TableName string
	Column    ColumnDef
}

func (AlterTableAddColumnStmt) statementNode() {}

// CreateIndexStmt is `CREATE INDEX name ON table (column)`.
type CreateIndexStmt struct {
	IndexName  string
	TableName  string
	ColumnName string
}

func (CreateIndexStmt) statementNode() {}

// DropIndexStmt is `DROP INDEX name`.
type DropIndexStmt struct {
	IndexName string
}

func (DropIndexStmt) statementNode() {}

// InsertStmt is `INSERT INTO table VALUES (v1, v2, ...)`.
type InsertStmt struct {
	TableName string
	Values    []Expr // literals only, per the grammar
}

func (InsertStmt) statementNode() {}

// Assignment is one `col = expr` pair in an UPDATE's SET list.
type Assignment struct {
	Column string
	Value  Expr
}

// UpdateStmt is `UPDATE table SET col=expr, ... [WHERE expr]`.
type UpdateStmt struct {
	TableName string
	Set       []Assignment
	Where     Expr // nil if absent
}

func (UpdateStmt) statementNode() {}

// DeleteStmt is `DELETE FROM table [WHERE expr]`.
type DeleteStmt struct {
	TableName string
	Where     Expr
}

func (DeleteStmt) statementNode() {}

// TableRef is one entry in the FROM/JOIN clause: a table name with an
// optional alias (`FROM users u` or `FROM users AS u`).
type TableRef struct {
	Name  string
	Alias string // equals Name if no alias was given
}

// JoinClause is one `INNER JOIN table ON expr`.
type JoinClause struct {
	Table TableRef
	On    Expr
}

// SelectItem is one entry in the SELECT list: either a qualified column
// reference or an aggregate function call. Aggregates are only legal in
// SELECT-list position.
type SelectItem struct {
	Column    *ColumnRef     // set when this item is a plain column
	Aggregate *AggregateExpr // set when this item is an aggregate call
}

// SelectStmt is a full SELECT, including its JOIN/WHERE/GROUP BY/ORDER
// BY/LIMIT clauses.
type SelectStmt struct {
	Star    bool // true for `SELECT *`
	Items   []SelectItem
	From    TableRef
	Joins   []JoinClause
	Where   Expr
	GroupBy []string
	OrderBy string // column name; "" if absent
	Limit   int
	HasLimit bool
}

func (SelectStmt) statementNode() {}

// ExplainStmt is `EXPLAIN select`.
type ExplainStmt struct {
	Select *SelectStmt
}

func (ExplainStmt) statementNode() {}

// Expr is any node in a WHERE/ON/SET expression tree.
type Expr interface {
	exprNode()
}

// LiteralExpr is an integer, float, or string literal.
type LiteralExpr struct {
	// Value holds int64, float64, or string.
	Value any
}

func (LiteralExpr) exprNode() {}

// ColumnRef is a (possibly table-qualified) column reference.
type ColumnRef struct {
	Table  string // "" if unqualified
	Column string
}

func (ColumnRef) exprNode() {}

// Qualified reports the dotted "table.column" form, or bare "column" if
// unqualified.
func (c ColumnRef) Qualified() string {
	if c.Table == "" {
		return c.Column
	}
	return c.Table + "." + c.Column
}

// BinaryExpr is a comparison (`=`,`!=`,`>`,`>=`,`<`,`<=`) or logical
// (`AND`,`OR`) operator applied to two subexpressions.
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (BinaryExpr) exprNode() {}

// AggregateExpr is `COUNT(*)`, `COUNT(col)`, `SUM(col)`, `AVG(col)`,
// `MIN(col)`, or `MAX(col)`.
type AggregateExpr struct {
	Function string // COUNT | SUM | AVG | MIN | MAX
	Column   string // "" when Star is true
	Star     bool
}

func (AggregateExpr) exprNode() {}
