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

// Command flydb is the interactive REPL: a thin driver that wires the
// transactional engine, catalog, and SQL executor to a readline prompt.
// It holds no engine logic of its own beyond statement dispatch and
// result rendering.
package main

import (
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/firefly-oss/flydb/internal/catalog"
	"github.com/firefly-oss/flydb/internal/config"
	"github.com/firefly-oss/flydb/internal/engine"
	"github.com/firefly-oss/flydb/internal/logging"
	"github.com/firefly-oss/flydb/internal/sql/executor"
	"github.com/firefly-oss/flydb/internal/sql/parser"
	"github.com/firefly-oss/flydb/pkg/cli"
)

var (
	dataDir    = flag.String("data-dir", "", "database directory (overrides config/env)")
	configFile = flag.String("config", "", "path to a flydb config file")
	format     = flag.String("format", "table", "result output format: table, json, or plain")
)

func main() {
	flag.Parse()

	mgr := config.NewManager()
	if *configFile != "" {
		if err := mgr.LoadFromFile(*configFile); err != nil {
			cli.ErrConfigNotFound(*configFile).Exit()
		}
	}
	mgr.LoadFromEnv()
	cfg := mgr.Get()
	if *dataDir != "" {
		cfg.DataDir = *dataDir
	}
	if err := cfg.Validate(); err != nil {
		cli.NewCLIError("Invalid configuration").WithDetail(err.Error()).Exit()
	}

	logging.SetJSONMode(cfg.LogJSON)
	logging.SetGlobalLevel(logging.ParseLevel(cfg.LogLevel))

	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		cli.ErrDatabaseOpenFailed(cfg.DataDir, err).Exit()
	}
	dbPath := filepath.Join(cfg.DataDir, "flydb.db")

	eng, err := engine.Open(dbPath, cfg.BufferPoolPages)
	if err != nil {
		cli.ErrDatabaseOpenFailed(dbPath, err).Exit()
	}
	defer eng.Close()

	cat := catalog.New(eng)
	ex := executor.New(eng, cat)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "flydb> ",
		HistoryFile:     filepath.Join(cfg.DataDir, ".flydb_history"),
		InterruptPrompt: "^C",
		EOFPrompt:       "\\q",
	})
	if err != nil {
		cli.NewCLIError("Failed to start readline").WithDetail(err.Error()).Exit()
	}
	defer rl.Close()

	outFormat := cli.ParseOutputFormat(*format)
	repl := &repl{rl: rl, ex: ex, cat: cat, eng: eng, outFormat: outFormat}
	repl.run()
}

// repl drives the read-eval-print loop: accumulating input across lines
// until a statement terminator, dispatching meta-commands, and
// otherwise handing text to the parser and executor.
type repl struct {
	rl        *readline.Instance
	ex        *executor.Executor
	cat       *catalog.Catalog
	eng       *engine.Engine
	outFormat cli.OutputFormat
	txnID     uint64 // 0 (engine.AutoTxnID) when no explicit transaction is open
	buf       strings.Builder
}

func (r *repl) run() {
	cli.PrintInfo("flydb - type \\h for help, \\q to quit")
	for {
		prompt := "flydb> "
		if r.buf.Len() > 0 {
			prompt = "   ...> "
		} else if r.txnID != engine.AutoTxnID {
			prompt = "flydb*> "
		}
		r.rl.SetPrompt(prompt)

		line, err := r.rl.Readline()
		if err == readline.ErrInterrupt {
			r.buf.Reset()
			continue
		}
		if err == io.EOF {
			return
		}
		if err != nil {
			cli.PrintError("%v", err)
			return
		}

		trimmed := strings.TrimSpace(line)
		if r.buf.Len() == 0 && strings.HasPrefix(trimmed, "\\") {
			if r.handleMeta(trimmed) {
				return
			}
			continue
		}
		if trimmed == "" {
			continue
		}

		r.buf.WriteString(line)
		r.buf.WriteByte(' ')
		if !strings.HasSuffix(trimmed, ";") {
			continue
		}

		stmtText := strings.TrimSuffix(strings.TrimSpace(r.buf.String()), ";")
		r.buf.Reset()
		r.runStatement(stmtText)
	}
}

// handleMeta processes a backslash meta-command; it returns true when
// the REPL should exit.
func (r *repl) handleMeta(cmd string) bool {
	switch {
	case cmd == "\\q" || cmd == "\\quit":
		return true
	case cmd == "\\h" || cmd == "\\help":
		helpScreen().Print()
	case cmd == "\\dt":
		r.listTables()
	default:
		cli.ErrInvalidCommand(cmd).Print()
	}
	return false
}

func (r *repl) listTables() {
	names, err := r.cat.ListTables()
	if err != nil {
		cli.PrintError("%v", err)
		return
	}
	table := cli.NewTable("table")
	table.SetFormat(r.outFormat)
	for _, n := range names {
		table.AddRow(n)
	}
	table.Print()
}

// runStatement dispatches one complete statement: a BEGIN/COMMIT/
// ROLLBACK/CHECKPOINT meta-operation layered over the engine's
// transaction API, or a parsed SQL statement run through the executor.
func (r *repl) runStatement(text string) {
	switch strings.ToUpper(strings.TrimSpace(text)) {
	case "BEGIN":
		r.beginTxn()
		return
	case "COMMIT":
		r.commitTxn()
		return
	case "ROLLBACK":
		r.rollbackTxn()
		return
	case "CHECKPOINT":
		r.checkpoint()
		return
	}

	stmt, err := parser.Parse(text)
	if err != nil {
		cli.PrintError("%v", err)
		return
	}
	res, err := r.ex.Execute(stmt, r.txnID)
	if err != nil {
		cli.PrintError("%v", err)
		return
	}
	r.printResult(res)
}

func (r *repl) beginTxn() {
	if r.txnID != engine.AutoTxnID {
		cli.PrintWarning("a transaction is already open")
		return
	}
	id, err := r.eng.Begin()
	if err != nil {
		cli.PrintError("%v", err)
		return
	}
	r.txnID = id
	cli.PrintSuccess("transaction %d started", id)
}

func (r *repl) commitTxn() {
	if r.txnID == engine.AutoTxnID {
		cli.PrintWarning("no transaction is open")
		return
	}
	if err := r.eng.Commit(r.txnID); err != nil {
		cli.PrintError("%v", err)
		return
	}
	cli.PrintSuccess("transaction %d committed", r.txnID)
	r.txnID = engine.AutoTxnID
}

func (r *repl) rollbackTxn() {
	if r.txnID == engine.AutoTxnID {
		cli.PrintWarning("no transaction is open")
		return
	}
	if err := r.eng.Abort(r.txnID); err != nil {
		cli.PrintError("%v", err)
		return
	}
	cli.PrintSuccess("transaction %d rolled back", r.txnID)
	r.txnID = engine.AutoTxnID
}

func (r *repl) checkpoint() {
	if err := r.eng.Checkpoint(); err != nil {
		cli.PrintError("%v", err)
		return
	}
	cli.PrintSuccess("checkpoint complete")
}

func (r *repl) printResult(res *executor.Result) {
	if !res.IsQuery {
		cli.PrintSuccess("%s", res.Message)
		return
	}
	table := cli.NewTable(res.Columns...)
	table.SetFormat(r.outFormat)
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = v.String()
		}
		table.AddRow(cells...)
	}
	table.Print()
}

// helpScreen builds the \h command reference.
func helpScreen() *cli.HelpScreen {
	return cli.NewHelpScreen("flydb", "1.0").
		Section("Meta-commands",
			cli.HelpTopic{Name: "\\dt", Summary: "list tables"},
			cli.HelpTopic{Name: "\\h, \\help", Summary: "show this help"},
			cli.HelpTopic{Name: "\\q, \\quit", Summary: "exit flydb"},
		).
		Section("Transaction control",
			cli.HelpTopic{Name: "BEGIN;", Summary: "open an explicit transaction"},
			cli.HelpTopic{Name: "COMMIT;", Summary: "make the open transaction durable"},
			cli.HelpTopic{Name: "ROLLBACK;", Summary: "abort the open transaction"},
			cli.HelpTopic{Name: "CHECKPOINT;", Summary: "flush dirty pages and truncate the log"},
		).
		Section("SQL",
			cli.HelpTopic{
				Name:    "DDL",
				Summary: "CREATE/DROP TABLE, ALTER TABLE ADD COLUMN, CREATE/DROP INDEX",
				Example: "CREATE TABLE users (id INT, name TEXT);",
			},
			cli.HelpTopic{
				Name:    "DML",
				Summary: "INSERT, UPDATE, DELETE",
				Example: "INSERT INTO users VALUES (1, 'Alice');",
			},
			cli.HelpTopic{
				Name:    "Queries",
				Summary: "SELECT with WHERE, INNER JOIN, GROUP BY, ORDER BY, LIMIT; EXPLAIN",
				Example: "SELECT name, product FROM u INNER JOIN o ON u.id = o.user_id;",
			},
		)
}
