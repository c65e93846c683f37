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

import (
	"errors"
	"strings"
	"testing"
)

func TestTableNotFoundCategory(t *testing.T) {
	err := TableNotFound("users")
	if err.Category != CategoryExecution {
		t.Errorf("expected CategoryExecution, got %s", err.Category)
	}
	if !strings.Contains(err.Error(), "users") {
		t.Errorf("expected error message to mention table name, got: %s", err.Error())
	}
}

func TestWrapAndUnwrap(t *testing.T) {
	cause := errors.New("disk full")
	err := IOError(7, cause).WithHint("check free space")
	if err.Unwrap() != cause {
		t.Error("expected Unwrap to return the original cause")
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
}

func TestUserMessageIncludesHint(t *testing.T) {
	err := TransactionStateError(3, "aborted").WithHint("begin a new transaction")
	msg := err.UserMessage()
	if !strings.Contains(msg, "HINT") {
		t.Errorf("expected HINT section in user message, got: %s", msg)
	}
}

func TestGetCodeOnPlainError(t *testing.T) {
	if GetCode(errors.New("plain")) != 0 {
		t.Error("expected GetCode to return 0 for a non-FlyDBError")
	}
}
