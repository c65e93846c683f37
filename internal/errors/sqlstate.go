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

package errors

// SQLSTATE is a 5-character ISO/IEC 9075 status code, carried as metadata
// only - nothing in the engine branches on it.
type SQLSTATE string

const (
	SQLStateSuccess         SQLSTATE = "00000"
	SQLStateNoData          SQLSTATE = "02000"
	SQLStateIOError         SQLSTATE = "58030"
	SQLStateDataException   SQLSTATE = "22000"
	SQLStateSyntaxError     SQLSTATE = "42000"
	SQLStateUndefinedTable  SQLSTATE = "42S02"
	SQLStateUndefinedColumn SQLSTATE = "42S22"
	SQLStateDuplicateTable  SQLSTATE = "42S01"
	SQLStateAmbiguousColumn SQLSTATE = "42702"
	SQLStateInvalidTxnState SQLSTATE = "25000"
)
