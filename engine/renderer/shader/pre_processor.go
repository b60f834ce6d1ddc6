package shader

import (
	"bufio"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// ErrUnbalancedBlock is returned when a conditional block is opened without a matching
// "// #endif" or closed without an opening "// #if".
var ErrUnbalancedBlock = errors.New("shader: unbalanced conditional block")

// ErrUndefinedSubstitution is returned when an active line references ${NAME} and NAME has no value.
var ErrUndefinedSubstitution = errors.New("shader: undefined substitution")

var substitutionPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// preProcessor is the implementation of the PreProcessor interface.
type preProcessor struct{}

// PreProcessor resolves shader variant directives in WGSL source.
//
// Directives are written as WGSL line comments so the unprocessed source stays valid WGSL:
//
//	// #if NAME       keep the following lines when NAME is defined
//	// #ifnot NAME    keep the following lines when NAME is not defined
//	// #else          invert the innermost block
//	// #endif         close the innermost block
//
// Inside kept lines every ${NAME} is replaced with the value of NAME.
type PreProcessor interface {
	// Process resolves all directives against the define set.
	//
	// Parameters:
	//   - source: the WGSL source containing directives
	//   - defines: define names mapped to their substitution values ("1" for flag defines)
	//
	// Returns:
	//   - string: the resolved source
	//   - error: ErrUnbalancedBlock or ErrUndefinedSubstitution wrapped with the offending line number
	Process(source string, defines map[string]string) (string, error)
}

var _ PreProcessor = &preProcessor{}

// NewPreProcessor creates a new PreProcessor.
//
// Returns:
//   - PreProcessor: a stateless directive processor
func NewPreProcessor() PreProcessor {
	return &preProcessor{}
}

type block struct {
	active     bool
	parentKeep bool
	sawElse    bool
}

func (p *preProcessor) Process(source string, defines map[string]string) (string, error) {
	var out strings.Builder
	var stack []block
	keep := true

	scanner := bufio.NewScanner(strings.NewReader(source))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		directive, arg, ok := parseDirective(line)
		if ok {
			switch directive {
			case "if", "ifnot":
				if arg == "" {
					return "", fmt.Errorf("line %d: #%s without a name: %w", lineNo, directive, ErrUnbalancedBlock)
				}
				_, defined := defines[arg]
				active := defined
				if directive == "ifnot" {
					active = !defined
				}
				stack = append(stack, block{active: active, parentKeep: keep})
				keep = keep && active
			case "else":
				if len(stack) == 0 {
					return "", fmt.Errorf("line %d: #else outside a block: %w", lineNo, ErrUnbalancedBlock)
				}
				top := &stack[len(stack)-1]
				if top.sawElse {
					return "", fmt.Errorf("line %d: duplicate #else: %w", lineNo, ErrUnbalancedBlock)
				}
				top.sawElse = true
				top.active = !top.active
				keep = top.parentKeep && top.active
			case "endif":
				if len(stack) == 0 {
					return "", fmt.Errorf("line %d: #endif outside a block: %w", lineNo, ErrUnbalancedBlock)
				}
				keep = stack[len(stack)-1].parentKeep
				stack = stack[:len(stack)-1]
			}
			continue
		}
		if !keep {
			continue
		}

		var subErr error
		line = substitutionPattern.ReplaceAllStringFunc(line, func(m string) string {
			name := m[2 : len(m)-1]
			value, found := defines[name]
			if !found && subErr == nil {
				subErr = fmt.Errorf("line %d: ${%s}: %w", lineNo, name, ErrUndefinedSubstitution)
			}
			return value
		})
		if subErr != nil {
			return "", subErr
		}
		out.WriteString(line)
		out.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read shader source: %w", err)
	}
	if len(stack) > 0 {
		return "", fmt.Errorf("%d block(s) left open: %w", len(stack), ErrUnbalancedBlock)
	}
	return out.String(), nil
}

// parseDirective recognises "// #name arg" lines.
func parseDirective(line string) (string, string, bool) {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, "//") {
		return "", "", false
	}
	trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "//"))
	if !strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	fields := strings.Fields(trimmed[1:])
	if len(fields) == 0 {
		return "", "", false
	}
	switch fields[0] {
	case "if", "ifnot", "else", "endif":
	default:
		return "", "", false
	}
	arg := ""
	if len(fields) > 1 {
		arg = fields[1]
	}
	return fields[0], arg, true
}

// ParseDefines converts "NAME" and "NAME=VALUE" entries into a define map.
// Flag defines without a value map to "1".
//
// Parameters:
//   - defines: the define entries
//
// Returns:
//   - map[string]string: the define map
func ParseDefines(defines []string) map[string]string {
	out := make(map[string]string, len(defines))
	for _, d := range defines {
		d = strings.TrimSpace(d)
		if d == "" {
			continue
		}
		name, value, found := strings.Cut(d, "=")
		if !found {
			value = "1"
		}
		out[strings.TrimSpace(name)] = strings.TrimSpace(value)
	}
	return out
}

// CanonicalDefines returns the define entries de-duplicated and sorted by name,
// with later entries overriding earlier ones.
//
// Parameters:
//   - defines: the define entries
//
// Returns:
//   - []string: canonical "NAME" / "NAME=VALUE" entries
func CanonicalDefines(defines []string) []string {
	m := ParseDefines(defines)
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		if m[name] == "1" {
			out = append(out, name)
		} else {
			out = append(out, name+"="+m[name])
		}
	}
	return out
}
