// Package interpolation extracts the variable references of Jinja2 "{{ }}"
// blocks. It understands a bare variable, a default() filter naming another
// variable, and lookup('first_found', ...); any other expression is reported
// by its text and left for the caller to keep verbatim.
package interpolation

import (
	"regexp"
	"strings"
)

// Block is one "{{ ... }}" occurrence in a template string
type Block struct {
	// Original is the exact block text including the braces
	Original string
	// Name is the primary variable name
	Name string
	// Default is the variable named by a default() filter, if any
	Default string
}

// Extractor finds variable blocks in template strings
type Extractor struct {
	// Cached regex patterns
	blockRegex   *regexp.Regexp
	literalRegex *regexp.Regexp
}

// NewExtractor creates a new extractor
func NewExtractor() *Extractor {
	return &Extractor{
		blockRegex:   regexp.MustCompile(`\{\{[^}]+\}\}`),
		literalRegex: regexp.MustCompile(`^(-?[0-9]|["'\[{])`),
	}
}

// HasTemplate reports whether s contains at least one variable block
func (e *Extractor) HasTemplate(s string) bool {
	return e.blockRegex.MatchString(s)
}

// Extract returns the blocks of s in order of appearance. Blocks without a
// variable name are skipped.
func (e *Extractor) Extract(s string) []Block {
	found := e.blockRegex.FindAllString(s, -1)
	if len(found) == 0 {
		return nil
	}

	blocks := make([]Block, 0, len(found))
	for _, original := range found {
		parts := strings.Split(original, "|")

		name := stripBlock(parts[0])
		if strings.Contains(name, "lookup(") && strings.Contains(name, "first_found") {
			args := strings.Split(name, ",")
			name = strings.ReplaceAll(args[len(args)-1], ")", "")
		}
		if name == "" {
			continue
		}

		b := Block{Original: original, Name: name}
		for _, filter := range parts[1:] {
			if !strings.Contains(filter, "default(") || !strings.Contains(filter, ")") {
				continue
			}
			arg := stripBlock(filter)
			arg = strings.ReplaceAll(arg, "default(", "")
			arg = strings.ReplaceAll(arg, ")", "")
			if e.isVariableName(arg) {
				b.Default = arg
			}
		}
		blocks = append(blocks, b)
	}
	return blocks
}

// isVariableName rejects quoted, numeric, list, dict and boolean literals
func (e *Extractor) isVariableName(arg string) bool {
	if arg == "" || e.literalRegex.MatchString(arg) {
		return false
	}
	switch strings.ToLower(arg) {
	case "true", "false", "none":
		return false
	}
	return true
}

// stripBlock removes the braces and every space of a block fragment
func stripBlock(s string) string {
	s = strings.ReplaceAll(s, "{{", "")
	s = strings.ReplaceAll(s, "}}", "")
	return strings.ReplaceAll(s, " ", "")
}
