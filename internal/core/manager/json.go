package manager

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
)

var lineSplit = regexp.MustCompile(`\r?\n`)

// ExtractJSON decodes the JSON payload of package manager output. Tools
// print warnings before or after their JSON, so the payload is searched for:
//
//   - no non-blank lines: fallback is returned;
//   - the first non-blank line is tried on its own, which is where tools
//     invoked with --json put a single-line payload;
//   - otherwise all lines are joined and the text between the first opening
//     delimiter and the last matching closing one is decoded. The opening
//     delimiter is "{" or "[", whichever the joined text starts with, or
//     else "{" when it occurs before the literal "[]" and "[" otherwise.
//     A delimiter that does not occur at all gives way to the other one.
//
// The last step picks the wrong span when noise before the payload contains
// brackets or braces; the decode error is returned in that case.
func ExtractJSON[T any](output string, fallback T) (T, error) {
	var lines []string
	for _, l := range lineSplit.Split(output, -1) {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) == 0 {
		return fallback, nil
	}

	var v T
	if err := json.Unmarshal([]byte(lines[0]), &v); err == nil {
		return v, nil
	}

	payload := strings.Join(lines, "")
	start := payload[:1]
	if start != "{" && start != "[" {
		// A missing "[]" indexes as -1 and so selects "[".
		if strings.Index(payload, "{") < strings.Index(payload, "[]") {
			start = "{"
		} else {
			start = "["
		}
		if !strings.Contains(payload, start) {
			if start == "{" {
				start = "["
			} else {
				start = "{"
			}
		}
	}
	end := "]"
	if start == "{" {
		end = "}"
	}
	if i := strings.Index(payload, start); i > 0 {
		payload = payload[i:]
	}
	payload = payload[:strings.LastIndex(payload, end)+1]

	var slow T
	if err := json.Unmarshal([]byte(payload), &slow); err != nil {
		return fallback, fmt.Errorf("parsing JSON output: %w", err)
	}
	return slow, nil
}
