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

package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// readLine reads one line from stdin, trimmed; EOF yields "".
func readLine() string {
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return ""
	}
	return strings.TrimSpace(line)
}

// Confirm asks a yes/no question, defaulting to no on anything but an
// explicit yes.
func Confirm(question string) bool {
	fmt.Printf("%s [y/N]: ", question)
	switch strings.ToLower(readLine()) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

// ConfirmDestructive guards an irreversible operation, such as
// restoring a snapshot over a database that already exists: the user
// must type the confirmation word back exactly. EOF (a non-interactive
// stdin without -force) aborts.
func ConfirmDestructive(warning, confirmWord string) bool {
	fmt.Println(Warning(warning))
	fmt.Printf("Type %s to continue, anything else to abort: ", Highlight(confirmWord))
	return readLine() == confirmWord
}
