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

// Package planner turns a parsed SELECT into a physical plan tree,
// choosing between a full table scan and an indexed seek using a fixed
// cost model, and renders that tree as EXPLAIN text. flydb tracks only
// index metadata, so an IndexScan node is an accounting fiction: the
// row data is still fetched by scanning the table's B+-tree range, but
// cost estimation and EXPLAIN output behave as if a real index existed.
package planner

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/firefly-oss/flydb/internal/catalog"
	"github.com/firefly-oss/flydb/internal/sql"
)

// Cost weights, in arbitrary comparable units.
const (
	tableScanCostPerRow  = 1.0
	indexSeekBaseCost    = 10.0
	indexSeekCostPerRow  = 0.5
	filterCostPerRow     = 0.1
	sortCostPerRow       = 2.0
)

// Selectivity heuristics per predicate operator.
const (
	selectivityEquality   = 0.01
	selectivityInequality = 0.99
	selectivityRange      = 0.33
)

// NodeKind names one physical plan operator.
type NodeKind string

const (
	NodeScan      NodeKind = "Scan"
	NodeIndexScan NodeKind = "IndexScan"
	NodeFilter    NodeKind = "Filter"
	NodeSort      NodeKind = "Sort"
	NodeLimit     NodeKind = "Limit"
	NodeProject   NodeKind = "Project"
	NodeJoin      NodeKind = "Join"
)

// Node is one operator in the physical plan tree.
type Node struct {
	Kind      NodeKind
	Table     string
	Alias     string
	IndexName string
	Detail    string // short human-readable annotation, e.g. sort key or limit count
	Cost      float64
	Rows      float64
	Children  []*Node
}

// Plan is the root of a physical plan tree for one SELECT.
type Plan struct {
	Root *Node
}

// Planner chooses access methods using table and index metadata from cat.
type Planner struct {
	cat *catalog.Catalog
}

func New(cat *catalog.Catalog) *Planner {
	return &Planner{cat: cat}
}

// Plan builds the physical plan for sel.
func (p *Planner) Plan(sel *sql.SelectStmt) (*Plan, error) {
	root, err := p.planFrom(sel.From, sel.Where)
	if err != nil {
		return nil, err
	}

	for _, j := range sel.Joins {
		right, err := p.planFrom(j.Table, nil)
		if err != nil {
			return nil, err
		}
		joinRows := root.Rows * right.Rows * selectivityEquality
		root = &Node{
			Kind:     NodeJoin,
			Detail:   fmt.Sprintf("%s ON %s", j.Table.Alias, exprText(j.On)),
			Cost:     root.Cost + right.Cost + root.Rows*right.Rows*filterCostPerRow,
			Rows:     joinRows,
			Children: []*Node{root, right},
		}
	}

	if sel.Where != nil && len(sel.Joins) > 0 {
		// Base-table predicates were already folded into the scan cost;
		// a join still needs a residual filter node over the combined row.
		root = &Node{
			Kind:     NodeFilter,
			Detail:   exprText(sel.Where),
			Cost:     root.Cost + root.Rows*filterCostPerRow,
			Rows:     root.Rows * selectivity(sel.Where),
			Children: []*Node{root},
		}
	}

	if sel.OrderBy != "" {
		root = &Node{
			Kind:     NodeSort,
			Detail:   sel.OrderBy,
			Cost:     root.Cost + root.Rows*sortCostPerRow,
			Rows:     root.Rows,
			Children: []*Node{root},
		}
	}

	if sel.HasLimit {
		root = &Node{
			Kind:     NodeLimit,
			Detail:   strconv.Itoa(sel.Limit),
			Cost:     root.Cost,
			Rows:     math.Min(root.Rows, float64(sel.Limit)),
			Children: []*Node{root},
		}
	}

	root = &Node{
		Kind:     NodeProject,
		Cost:     root.Cost,
		Rows:     root.Rows,
		Children: []*Node{root},
	}

	return &Plan{Root: root}, nil
}

// planFrom builds the base access node for one FROM/JOIN table, choosing
// between a full scan and the cheapest matching index seek.
func (p *Planner) planFrom(ref sql.TableRef, where sql.Expr) (*Node, error) {
	rows, err := p.cat.Stats(ref.Name)
	if err != nil {
		return nil, err
	}
	rowsF := float64(rows)

	scan := &Node{
		Kind:  NodeScan,
		Table: ref.Name,
		Alias: ref.Alias,
		Cost:  rowsF * tableScanCostPerRow,
		Rows:  rowsF,
	}
	best := scan
	covered := false

	if where != nil {
		indexes, err := p.cat.IndexesOn(ref.Name)
		if err != nil {
			return nil, err
		}
		for _, idx := range indexes {
			pred, ok := findIndexablePredicate(where, ref.Name, ref.Alias, idx.Column)
			if !ok {
				continue
			}
			matched := math.Ceil(rowsF * selectivity(pred))
			cost := indexSeekBaseCost + indexSeekCostPerRow*matched
			if cost < best.Cost {
				best = &Node{
					Kind:      NodeIndexScan,
					Table:     ref.Name,
					Alias:     ref.Alias,
					IndexName: idx.Name,
					Detail:    exprText(pred),
					Cost:      cost,
					Rows:      matched,
				}
				covered = exprText(pred) == exprText(where)
			}
		}
	}

	if where != nil && !covered {
		// Non-indexed (or residual) filtering, applied after the access node.
		filtered := &Node{
			Kind:     NodeFilter,
			Detail:   exprText(where),
			Cost:     best.Cost + best.Rows*filterCostPerRow,
			Rows:     best.Rows * selectivity(where),
			Children: []*Node{best},
		}
		return filtered, nil
	}
	return best, nil
}

// findIndexablePredicate looks for a top-level AND-conjunct comparing
// the named column (qualified to table/alias, or bare) to a literal.
func findIndexablePredicate(e sql.Expr, table, alias, column string) (sql.Expr, bool) {
	bin, ok := e.(sql.BinaryExpr)
	if !ok {
		return nil, false
	}
	if bin.Op == "AND" {
		if pred, ok := findIndexablePredicate(bin.Left, table, alias, column); ok {
			return pred, true
		}
		return findIndexablePredicate(bin.Right, table, alias, column)
	}
	if isComparisonOp(bin.Op) && refersToColumn(bin.Left, table, alias, column) {
		if _, ok := bin.Right.(sql.LiteralExpr); ok {
			return bin, true
		}
	}
	return nil, false
}

func refersToColumn(e sql.Expr, table, alias, column string) bool {
	ref, ok := e.(sql.ColumnRef)
	if !ok || ref.Column != column {
		return false
	}
	return ref.Table == "" || ref.Table == table || ref.Table == alias
}

func isComparisonOp(op string) bool {
	switch op {
	case "=", "!=", ">", ">=", "<", "<=":
		return true
	default:
		return false
	}
}

// selectivity estimates the fraction of rows a predicate tree passes:
// AND multiplies child selectivities, OR sums them clamped to 1.0.
func selectivity(e sql.Expr) float64 {
	bin, ok := e.(sql.BinaryExpr)
	if !ok {
		return 1.0
	}
	switch bin.Op {
	case "AND":
		return selectivity(bin.Left) * selectivity(bin.Right)
	case "OR":
		return math.Min(1.0, selectivity(bin.Left)+selectivity(bin.Right))
	case "=":
		return selectivityEquality
	case "!=":
		return selectivityInequality
	default:
		return selectivityRange
	}
}

func exprText(e sql.Expr) string {
	switch t := e.(type) {
	case sql.BinaryExpr:
		return exprText(t.Left) + " " + t.Op + " " + exprText(t.Right)
	case sql.ColumnRef:
		return t.Qualified()
	case sql.LiteralExpr:
		return fmt.Sprintf("%v", t.Value)
	default:
		return ""
	}
}

// Explain renders the plan tree as indented text, one operator per line
// annotated with its estimated cost and row count.
func (pl *Plan) Explain() string {
	var b strings.Builder
	explainNode(&b, pl.Root, 0)
	return b.String()
}

func explainNode(b *strings.Builder, n *Node, depth int) {
	b.WriteString(strings.Repeat("  ", depth))
	b.WriteString(string(n.Kind))
	switch n.Kind {
	case NodeScan:
		fmt.Fprintf(b, " table=%s", n.Table)
	case NodeIndexScan:
		fmt.Fprintf(b, " table=%s index=%s (%s)", n.Table, n.IndexName, n.Detail)
	case NodeFilter:
		fmt.Fprintf(b, " (%s)", n.Detail)
	case NodeSort:
		fmt.Fprintf(b, " key=%s", n.Detail)
	case NodeLimit:
		fmt.Fprintf(b, " n=%s", n.Detail)
	case NodeJoin:
		fmt.Fprintf(b, " %s", n.Detail)
	}
	fmt.Fprintf(b, " cost=%.2f rows=%.0f\n", n.Cost, n.Rows)
	for _, c := range n.Children {
		explainNode(b, c, depth+1)
	}
}
