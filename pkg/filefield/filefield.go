// Package filefield encodes upload limits into a field help text that the
// frontend parses, and checks uploads against that same text.
package filefield

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

const (
	anyType = "Any"
	noLimit = "None"
	bytesMB = 1024 * 1024
)

var bracketed = regexp.MustCompile(`\[(.*?)\]`)

// Result reports which limits an upload satisfies.
type Result struct {
	IsValidType bool `json:"is_valid_type"`
	IsValidSize bool `json:"is_valid_size"`
}

// Valid reports whether both limits hold.
func (r Result) Valid() bool {
	return r.IsValidType && r.IsValidSize
}

// BuildHelpText renders the limits, e.g.
// `Allowed file types: ['.jpg', '.png'] | Max file size in MB: [2]`.
// An empty type list means any extension; a zero size means no limit.
func BuildHelpText(types []string, maxSizeMB int) string {
	fileTypes := "[" + anyType + "]"
	if len(types) > 0 {
		quoted := make([]string, len(types))
		for i, t := range types {
			quoted[i] = "'" + t + "'"
		}
		fileTypes = "[" + strings.Join(quoted, ", ") + "]"
	}
	fileSize := noLimit
	if maxSizeMB > 0 {
		fileSize = strconv.Itoa(maxSizeMB)
	}
	return fmt.Sprintf("Allowed file types: %s | Max file size in MB: [%s]", fileTypes, fileSize)
}

// Validate checks a file name and size in bytes against a help text built by BuildHelpText.
// A blank help text accepts everything.
func Validate(helpText, name string, size int64) Result {
	if strings.TrimSpace(helpText) == "" {
		return Result{IsValidType: true, IsValidSize: true}
	}
	typePhrase, sizePhrase, found := strings.Cut(helpText, "|")
	if !found {
		return Result{}
	}

	var result Result
	if match := bracketed.FindStringSubmatch(typePhrase); match != nil {
		allowed := parseTypes(match[1])
		if len(allowed) > 0 && allowed[0] == anyType {
			result.IsValidType = true
		} else {
			ext := strings.ToLower(filepath.Ext(name))
			for _, t := range allowed {
				if ext != "" && strings.ToLower(t) == ext {
					result.IsValidType = true
					break
				}
			}
		}
	}

	if match := bracketed.FindStringSubmatch(sizePhrase); match != nil {
		limit := strings.TrimSpace(match[1])
		if strings.EqualFold(limit, noLimit) {
			result.IsValidSize = true
		} else if mb, err := strconv.Atoi(limit); err == nil {
			result.IsValidSize = float64(size)/bytesMB <= float64(mb)
		}
	}
	return result
}

func parseTypes(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.ReplaceAll(strings.TrimSpace(part), "'", "")
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
