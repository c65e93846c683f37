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

// Command flydb-dump exports every live row of a database to a single
// compressed snapshot file, and restores one back. It never reads or
// writes the page/WAL wire formats directly - it goes through the same
// engine and catalog packages the REPL uses, so a restore replays as
// ordinary inserts.
package main

import (
	"bufio"
	"bytes"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/firefly-oss/flydb/internal/catalog"
	"github.com/firefly-oss/flydb/internal/compression"
	"github.com/firefly-oss/flydb/internal/engine"
	"github.com/firefly-oss/flydb/pkg/cli"
)

var (
	dataDir = flag.String("data-dir", "flydb_data", "source/destination database directory")
	out     = flag.String("out", "", "snapshot output file (dump mode)")
	in      = flag.String("in", "", "snapshot input file (restore mode)")
	algo    = flag.String("algo", "snappy", "compression algorithm: none, gzip, snappy, lz4")
	force   = flag.Bool("force", false, "skip the confirmation prompt when restoring over an existing database")
)

// recordSep separates the table-qualified key from its value on each
// dumped line; a '|' separator would collide with the row values, which
// are themselves pipe-joined, so the dump format keeps the raw key/value
// pair as the engine stored it, one per line.
const recordSep = '\t'

func main() {
	flag.Parse()

	algorithm, err := compression.ParseAlgorithm(*algo)
	if err != nil {
		cli.NewCLIError("Invalid compression algorithm").WithDetail(err.Error()).Exit()
	}

	switch {
	case *out != "":
		if err := dump(*dataDir, *out, algorithm); err != nil {
			cli.NewCLIError("Dump failed").WithDetail(err.Error()).Exit()
		}
	case *in != "":
		if err := restore(*dataDir, *in, algorithm); err != nil {
			cli.NewCLIError("Restore failed").WithDetail(err.Error()).Exit()
		}
	default:
		cli.ErrMissingArgument("-out or -in", "flydb-dump -data-dir DIR -out snapshot.bin").Exit()
	}
}

func dump(dataDir, outPath string, algorithm compression.Algorithm) error {
	eng, err := engine.Open(dataDir+"/flydb.db", 0)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer eng.Close()

	cat := catalog.New(eng)
	tables, err := cat.ListTables()
	if err != nil {
		return fmt.Errorf("list tables: %w", err)
	}

	var buf bytes.Buffer
	var rowCount int

	// Schema first: catalog entries restore before the rows they
	// describe, so a restored database is queryable immediately.
	catalogRows, err := eng.RangeScan([]byte("__catalog__"), append([]byte("__catalog__"), 0xFF))
	if err != nil {
		return fmt.Errorf("scan catalog: %w", err)
	}
	for _, kv := range catalogRows {
		buf.Write(kv.Key)
		buf.WriteByte(recordSep)
		buf.Write(kv.Value)
		buf.WriteByte('\n')
	}

	bar := cli.NewProgressBar(len(tables), "scanning tables")
	for i, table := range tables {
		start := []byte(table + ":")
		end := append([]byte(table+":"), 0xFF)
		rows, err := eng.RangeScan(start, end)
		if err != nil {
			return fmt.Errorf("scan table %s: %w", table, err)
		}
		for _, kv := range rows {
			// Soft-deleted rows carry the DELETED marker and are not live.
			if string(kv.Value) == "DELETED" {
				continue
			}
			buf.Write(kv.Key)
			buf.WriteByte(recordSep)
			buf.Write(kv.Value)
			buf.WriteByte('\n')
			rowCount++
		}
		bar.Update(i + 1)
	}
	if len(tables) > 0 {
		bar.Complete()
	}

	compressed, err := compression.NewCompressor(algorithm).Compress(buf.Bytes())
	if err != nil {
		return fmt.Errorf("compress snapshot: %w", err)
	}
	if err := os.WriteFile(outPath, compressed, 0o644); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}

	cli.PrintSuccess("dumped %d rows from %d table(s) to %s (%s, %s)",
		rowCount, len(tables), outPath, algorithm, formatFileSize(int64(len(compressed))))
	return nil
}

func restore(dataDir, inPath string, algorithm compression.Algorithm) error {
	if _, err := os.Stat(filepath.Join(dataDir, "flydb.db")); err == nil && !*force {
		if !cli.ConfirmDestructive(
			fmt.Sprintf("This will merge rows from %s into the existing database at %s.", inPath, dataDir),
			"RESTORE",
		) {
			return fmt.Errorf("restore aborted")
		}
	}

	raw, err := os.ReadFile(inPath)
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}
	data, err := compression.NewCompressor(algorithm).Decompress(raw)
	if err != nil {
		return fmt.Errorf("decompress snapshot: %w", err)
	}

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	eng, err := engine.Open(dataDir+"/flydb.db", 0)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer eng.Close()

	spinner := cli.NewSpinner("restoring rows")
	spinner.Start()

	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var restored int
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		idx := strings.IndexByte(line, recordSep)
		if idx < 0 {
			spinner.StopWithError("malformed snapshot line")
			return fmt.Errorf("malformed snapshot line: %q", line)
		}
		key, value := line[:idx], line[idx+1:]
		if err := eng.Insert([]byte(key), []byte(value)); err != nil {
			spinner.StopWithError("restore failed")
			return fmt.Errorf("restore key %q: %w", key, err)
		}
		restored++
		if restored%1000 == 0 {
			spinner.UpdateMessage(fmt.Sprintf("restoring rows (%d so far)", restored))
		}
	}
	if err := scanner.Err(); err != nil {
		spinner.StopWithError("read failure")
		return fmt.Errorf("read snapshot body: %w", err)
	}

	spinner.StopWithSuccess(fmt.Sprintf("restored %d row(s) into %s", restored, dataDir))
	return nil
}

// formatFileSize renders a byte count in human-readable units.
func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d bytes", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	units := []string{"KB", "MB", "GB", "TB"}
	return fmt.Sprintf("%.2f %s", float64(size)/float64(div), units[exp])
}
