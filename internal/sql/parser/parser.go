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

// Package parser is a recursive-descent parser with one-token lookahead
// that turns a lexer.Lexer's token stream into a sql.Statement tree.
package parser

import (
	"strconv"
	"strings"

	flyerrors "github.com/firefly-oss/flydb/internal/errors"
	"github.com/firefly-oss/flydb/internal/sql"
	"github.com/firefly-oss/flydb/internal/sql/lexer"
)

// Parser holds one token of lookahead over a lexer.Lexer.
type Parser struct {
	lex *lexer.Lexer
	cur lexer.Token
}

// Parse tokenizes and parses a single SQL statement out of src.
func Parse(src string) (sql.Statement, error) {
	p := &Parser{lex: lexer.NewLexer(src)}
	p.advance()
	return p.parseStatement()
}

func (p *Parser) advance() {
	p.cur = p.lex.NextToken()
}

func tokenDesc(t lexer.Token) string {
	if t.Type == lexer.TokenEOF {
		return "end of input"
	}
	return strconv.Quote(t.Value)
}

func (p *Parser) errorf(expected string) error {
	return flyerrors.UnexpectedToken(expected, tokenDesc(p.cur), p.cur.Pos)
}

func (p *Parser) isKeyword(word string) bool {
	return p.cur.Type == lexer.TokenKeyword && p.cur.Value == word
}

func (p *Parser) expectKeyword(word string) error {
	if !p.isKeyword(word) {
		return p.errorf(word)
	}
	p.advance()
	return nil
}

func (p *Parser) expectIdent() (string, error) {
	if p.cur.Type != lexer.TokenIdent {
		return "", p.errorf("identifier")
	}
	v := p.cur.Value
	p.advance()
	return v, nil
}

func (p *Parser) expect(t lexer.TokenType, desc string) error {
	if p.cur.Type != t {
		return p.errorf(desc)
	}
	p.advance()
	return nil
}

func (p *Parser) parseStatement() (sql.Statement, error) {
	switch {
	case p.isKeyword("CREATE"):
		return p.parseCreate()
	case p.isKeyword("DROP"):
		return p.parseDrop()
	case p.isKeyword("ALTER"):
		return p.parseAlterTable()
	case p.isKeyword("INSERT"):
		return p.parseInsert()
	case p.isKeyword("SELECT"):
		return p.parseSelect()
	case p.isKeyword("UPDATE"):
		return p.parseUpdate()
	case p.isKeyword("DELETE"):
		return p.parseDelete()
	case p.isKeyword("EXPLAIN"):
		return p.parseExplain()
	default:
		return nil, p.errorf("a statement (CREATE, DROP, ALTER, INSERT, SELECT, UPDATE, DELETE, EXPLAIN)")
	}
}

func (p *Parser) parseCreate() (sql.Statement, error) {
	p.advance() // CREATE
	switch {
	case p.isKeyword("TABLE"):
		return p.parseCreateTable()
	case p.isKeyword("INDEX"):
		return p.parseCreateIndex()
	default:
		return nil, p.errorf("TABLE or INDEX")
	}
}

func (p *Parser) parseDrop() (sql.Statement, error) {
	p.advance() // DROP
	switch {
	case p.isKeyword("TABLE"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return sql.DropTableStmt{TableName: name}, nil
	case p.isKeyword("INDEX"):
		p.advance()
		name, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		return sql.DropIndexStmt{IndexName: name}, nil
	default:
		return nil, p.errorf("TABLE or INDEX")
	}
}

func (p *Parser) parseCreateTable() (sql.Statement, error) {
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	name, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenLParen, "("); err != nil {
		return nil, err
	}

	var cols []sql.ColumnDef
	for {
		col, err := p.parseColumnDef()
		if err != nil {
			return nil, err
		}
		cols = append(cols, col)
		if p.cur.Type == lexer.TokenComma {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(lexer.TokenRParen, ")"); err != nil {
		return nil, err
	}
	return sql.CreateTableStmt{TableName: name, Columns: cols}, nil
}

func (p *Parser) parseColumnDef() (sql.ColumnDef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return sql.ColumnDef{}, err
	}
	typ, err := p.parseColumnType()
	if err != nil {
		return sql.ColumnDef{}, err
	}
	return sql.ColumnDef{Name: name, Type: typ}, nil
}

func (p *Parser) parseColumnType() (string, error) {
	switch {
	case p.isKeyword("INT"), p.isKeyword("TEXT"), p.isKeyword("FLOAT"):
		t := p.cur.Value
		p.advance()
		return t, nil
	default:
		return "", p.errorf("a column type (INT, TEXT, FLOAT)")
	}
}

func (p *Parser) parseAlterTable() (sql.Statement, error) {
	p.advance() // ALTER
	if err := p.expectKeyword("TABLE"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ADD"); err != nil {
		return nil, err
	}
	if err := p.expectKeyword("COLUMN"); err != nil {
		return nil, err
	}
	col, err := p.parseColumnDef()
	if err != nil {
		return nil, err
	}
	return sql.AlterTableAddColumnStmt{TableName: table, Column: col}, nil
}

func (p *Parser) parseCreateIndex() (sql.Statement, error) {
	p.advance() // INDEX
	indexName, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("ON"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenLParen, "("); err != nil {
		return nil, err
	}
	col, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenRParen, ")"); err != nil {
		return nil, err
	}
	return sql.CreateIndexStmt{IndexName: indexName, TableName: table, ColumnName: col}, nil
}

func (p *Parser) parseInsert() (sql.Statement, error) {
	p.advance() // INSERT
	if err := p.expectKeyword("INTO"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("VALUES"); err != nil {
		return nil, err
	}
	if err := p.expect(lexer.TokenLParen, "("); err != nil {
		return nil, err
	}

	var values []sql.Expr
	for {
		lit, err := p.parseLiteral()
		if err != nil {
			return nil, err
		}
		values = append(values, lit)
		if p.cur.Type == lexer.TokenComma {
			p.advance()
			continue
		}
		break
	}
	if err := p.expect(lexer.TokenRParen, ")"); err != nil {
		return nil, err
	}
	return sql.InsertStmt{TableName: table, Values: values}, nil
}

func (p *Parser) parseLiteral() (sql.Expr, error) {
	switch p.cur.Type {
	case lexer.TokenNumber:
		text := p.cur.Value
		p.advance()
		if strings.Contains(text, ".") {
			f, err := strconv.ParseFloat(text, 64)
			if err != nil {
				return nil, flyerrors.NewSyntaxError("malformed float literal: " + text)
			}
			return sql.LiteralExpr{Value: f}, nil
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return nil, flyerrors.NewSyntaxError("malformed integer literal: " + text)
		}
		return sql.LiteralExpr{Value: n}, nil
	case lexer.TokenString:
		v := p.cur.Value
		p.advance()
		return sql.LiteralExpr{Value: v}, nil
	default:
		return nil, p.errorf("a literal value")
	}
}

func (p *Parser) parseUpdate() (sql.Statement, error) {
	p.advance() // UPDATE
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	if err := p.expectKeyword("SET"); err != nil {
		return nil, err
	}

	var assigns []sql.Assignment
	for {
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenEqual, "="); err != nil {
			return nil, err
		}
		val, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, sql.Assignment{Column: col, Value: val})
		if p.cur.Type == lexer.TokenComma {
			p.advance()
			continue
		}
		break
	}

	var where sql.Expr
	if p.isKeyword("WHERE") {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return sql.UpdateStmt{TableName: table, Set: assigns, Where: where}, nil
}

func (p *Parser) parseDelete() (sql.Statement, error) {
	p.advance() // DELETE
	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	table, err := p.expectIdent()
	if err != nil {
		return nil, err
	}
	var where sql.Expr
	if p.isKeyword("WHERE") {
		p.advance()
		where, err = p.parseExpr()
		if err != nil {
			return nil, err
		}
	}
	return sql.DeleteStmt{TableName: table, Where: where}, nil
}

func (p *Parser) parseExplain() (sql.Statement, error) {
	p.advance() // EXPLAIN
	stmt, err := p.parseSelect()
	if err != nil {
		return nil, err
	}
	sel := stmt.(sql.SelectStmt)
	return sql.ExplainStmt{Select: &sel}, nil
}

func (p *Parser) parseSelect() (sql.Statement, error) {
	p.advance() // SELECT
	stmt := sql.SelectStmt{}

	if p.cur.Type == lexer.TokenStar {
		stmt.Star = true
		p.advance()
	} else {
		items, err := p.parseSelectList()
		if err != nil {
			return nil, err
		}
		stmt.Items = items
	}

	if err := p.expectKeyword("FROM"); err != nil {
		return nil, err
	}
	from, err := p.parseTableRef()
	if err != nil {
		return nil, err
	}
	stmt.From = from

	for p.isKeyword("INNER") {
		p.advance()
		if err := p.expectKeyword("JOIN"); err != nil {
			return nil, err
		}
		table, err := p.parseTableRef()
		if err != nil {
			return nil, err
		}
		if err := p.expectKeyword("ON"); err != nil {
			return nil, err
		}
		on, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Joins = append(stmt.Joins, sql.JoinClause{Table: table, On: on})
	}

	if p.isKeyword("WHERE") {
		p.advance()
		where, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		stmt.Where = where
	}

	if p.isKeyword("GROUP") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		for {
			col, err := p.expectIdent()
			if err != nil {
				return nil, err
			}
			stmt.GroupBy = append(stmt.GroupBy, col)
			if p.cur.Type == lexer.TokenComma {
				p.advance()
				continue
			}
			break
		}
	}

	if p.isKeyword("ORDER") {
		p.advance()
		if err := p.expectKeyword("BY"); err != nil {
			return nil, err
		}
		col, err := p.expectIdent()
		if err != nil {
			return nil, err
		}
		stmt.OrderBy = col
	}

	if p.isKeyword("LIMIT") {
		p.advance()
		if p.cur.Type != lexer.TokenNumber {
			return nil, p.errorf("an integer")
		}
		n, err := strconv.Atoi(p.cur.Value)
		if err != nil {
			return nil, flyerrors.NewSyntaxError("malformed LIMIT value: " + p.cur.Value)
		}
		p.advance()
		stmt.Limit = n
		stmt.HasLimit = true
	}

	return stmt, nil
}

func (p *Parser) parseSelectList() ([]sql.SelectItem, error) {
	var items []sql.SelectItem
	for {
		item, err := p.parseSelectItem()
		if err != nil {
			return nil, err
		}
		items = append(items, item)
		if p.cur.Type == lexer.TokenComma {
			p.advance()
			continue
		}
		break
	}
	return items, nil
}

var aggregateFuncs = map[string]bool{"COUNT": true, "SUM": true, "AVG": true, "MIN": true, "MAX": true}

func (p *Parser) parseSelectItem() (sql.SelectItem, error) {
	if p.cur.Type == lexer.TokenKeyword && aggregateFuncs[p.cur.Value] {
		fn := p.cur.Value
		p.advance()
		if err := p.expect(lexer.TokenLParen, "("); err != nil {
			return sql.SelectItem{}, err
		}
		var agg sql.AggregateExpr
		agg.Function = fn
		if p.cur.Type == lexer.TokenStar {
			agg.Star = true
			p.advance()
		} else {
			col, err := p.parseQualifiedIdent()
			if err != nil {
				return sql.SelectItem{}, err
			}
			agg.Column = col.Qualified()
		}
		if err := p.expect(lexer.TokenRParen, ")"); err != nil {
			return sql.SelectItem{}, err
		}
		return sql.SelectItem{Aggregate: &agg}, nil
	}

	col, err := p.parseQualifiedIdent()
	if err != nil {
		return sql.SelectItem{}, err
	}
	return sql.SelectItem{Column: &col}, nil
}

func (p *Parser) parseQualifiedIdent() (sql.ColumnRef, error) {
	ident, err := p.expectIdent()
	if err != nil {
		return sql.ColumnRef{}, err
	}
	if dot := strings.IndexByte(ident, '.'); dot >= 0 {
		return sql.ColumnRef{Table: ident[:dot], Column: ident[dot+1:]}, nil
	}
	return sql.ColumnRef{Column: ident}, nil
}

func (p *Parser) parseTableRef() (sql.TableRef, error) {
	name, err := p.expectIdent()
	if err != nil {
		return sql.TableRef{}, err
	}
	ref := sql.TableRef{Name: name, Alias: name}
	if p.isKeyword("AS") {
		p.advance()
		alias, err := p.expectIdent()
		if err != nil {
			return sql.TableRef{}, err
		}
		ref.Alias = alias
		return ref, nil
	}
	if p.cur.Type == lexer.TokenIdent {
		ref.Alias = p.cur.Value
		p.advance()
	}
	return ref, nil
}

// parseExpr := and_expr ('OR' and_expr)*
func (p *Parser) parseExpr() (sql.Expr, error) {
	left, err := p.parseAndExpr()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("OR") {
		p.advance()
		right, err := p.parseAndExpr()
		if err != nil {
			return nil, err
		}
		left = sql.BinaryExpr{Op: "OR", Left: left, Right: right}
	}
	return left, nil
}

// parseAndExpr := cmp ('AND' cmp)*
func (p *Parser) parseAndExpr() (sql.Expr, error) {
	left, err := p.parseComparison()
	if err != nil {
		return nil, err
	}
	for p.isKeyword("AND") {
		p.advance()
		right, err := p.parseComparison()
		if err != nil {
			return nil, err
		}
		left = sql.BinaryExpr{Op: "AND", Left: left, Right: right}
	}
	return left, nil
}

var comparisonOps = map[lexer.TokenType]string{
	lexer.TokenEqual:        "=",
	lexer.TokenNotEqual:     "!=",
	lexer.TokenGreater:      ">",
	lexer.TokenGreaterEqual: ">=",
	lexer.TokenLess:         "<",
	lexer.TokenLessEqual:    "<=",
}

// parseComparison := atom ( ('='|'!='|'>'|'>='|'<'|'<=') atom )?
func (p *Parser) parseComparison() (sql.Expr, error) {
	left, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	if op, ok := comparisonOps[p.cur.Type]; ok {
		p.advance()
		right, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		return sql.BinaryExpr{Op: op, Left: left, Right: right}, nil
	}
	return left, nil
}

// parseAtom := literal | qualified_ident | '(' expr ')'
func (p *Parser) parseAtom() (sql.Expr, error) {
	switch p.cur.Type {
	case lexer.TokenLParen:
		p.advance()
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		if err := p.expect(lexer.TokenRParen, ")"); err != nil {
			return nil, err
		}
		return inner, nil
	case lexer.TokenNumber, lexer.TokenString:
		return p.parseLiteral()
	case lexer.TokenIdent:
		col, err := p.parseQualifiedIdent()
		if err != nil {
			return nil, err
		}
		return col, nil
	default:
		return nil, p.errorf("a literal, column reference, or '('")
	}
}
