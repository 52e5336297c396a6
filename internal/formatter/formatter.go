// Package formatter runs generated source through gofmt and groups its
// imports.
package formatter

import (
	"go/format"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mcncl/serdegen/internal/errors"
)

var importBlock = regexp.MustCompile(`(?s)import\s*\((.*?)\)`)

// Formatter is responsible for formatting Go code according to standard conventions
type Formatter struct{}

// NewFormatter creates a new Formatter instance
func NewFormatter() *Formatter {
	return &Formatter{}
}

// Format takes Go code as a string and returns properly formatted Go code
func (f *Formatter) Format(code string) (string, error) {
	if strings.TrimSpace(code) == "" {
		return "", nil
	}

	formatted, err := format.Source([]byte(code))
	if err != nil {
		return "", errors.NewFormatError("failed to parse Go code", err)
	}
	return f.formatImports(string(formatted)), nil
}

type importLine struct {
	text string
	path string
}

// formatImports organizes the first import block with standard library
// imports first, followed by third-party imports with a blank line in between
func (f *Formatter) formatImports(code string) string {
	loc := importBlock.FindStringSubmatchIndex(code)
	if loc == nil {
		// No import block found or it's a single-line import
		return code
	}

	var stdLib, thirdParty []importLine
	for _, line := range strings.Split(code[loc[2]:loc[3]], "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") {
			continue
		}
		fields := strings.Fields(line)
		path, err := strconv.Unquote(fields[len(fields)-1])
		if err != nil {
			// Not something we understand; leave the block alone.
			return code
		}
		imp := importLine{text: line, path: path}
		// Standard library imports don't have dots in their first element
		if strings.Contains(strings.SplitN(path, "/", 2)[0], ".") {
			thirdParty = append(thirdParty, imp)
		} else {
			stdLib = append(stdLib, imp)
		}
	}

	byPath := func(imps []importLine) func(i, j int) bool {
		return func(i, j int) bool { return imps[i].path < imps[j].path }
	}
	sort.SliceStable(stdLib, byPath(stdLib))
	sort.SliceStable(thirdParty, byPath(thirdParty))

	var b strings.Builder
	b.WriteString("import (\n")
	for _, imp := range stdLib {
		b.WriteString("\t" + imp.text + "\n")
	}
	if len(stdLib) > 0 && len(thirdParty) > 0 {
		b.WriteString("\n")
	}
	for _, imp := range thirdParty {
		b.WriteString("\t" + imp.text + "\n")
	}
	b.WriteString(")")

	return code[:loc[0]] + b.String() + code[loc[1]:]
}
