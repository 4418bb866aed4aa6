package glprog

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// Param is one typed parameter of a catalog [Function].
type Param struct {
	Name string
	Type Type
}

// Function is one immutable entry of the shader function catalog: a named
// target-language function fragment with typed in and out parameters.
// Entries are read-only after the catalog is built.
type Function struct {
	Name string
	// Ins holds in and inout parameters in declaration order.
	Ins []Param
	// Outs holds out parameters in declaration order.
	Outs []Param
	// Source is the complete function definition text.
	Source string
}

var funcHeadRE = regexp.MustCompile(
	`void\s+([a-zA-Z]\w*)\s*\(([^)]*)\)`,
)

// ParseFunction parses a single `void name(params) { body }` definition.
// Parameters qualified out are output parameters; in, inout and
// unqualified parameters are inputs.
func ParseFunction(src string) (*Function, error) {
	src = strings.TrimSpace(src)
	loc := funcHeadRE.FindStringSubmatchIndex(src)
	if loc == nil {
		return nil, errors.New("no function head found")
	}
	fn := &Function{
		Name:   src[loc[2]:loc[3]],
		Source: src,
	}
	params := strings.TrimSpace(src[loc[4]:loc[5]])
	if params != "" {
		for _, param := range strings.Split(params, ",") {
			tokens := strings.Fields(param)
			if len(tokens) < 2 {
				return nil, fmt.Errorf("%s: malformed parameter %q", fn.Name, param)
			}
			out := false
			switch tokens[0] {
			case "out":
				out = true
				tokens = tokens[1:]
			case "in", "inout":
				tokens = tokens[1:]
			}
			if len(tokens) != 2 {
				return nil, fmt.Errorf("%s: malformed parameter %q", fn.Name, param)
			}
			typ := TypeFromGLSL(tokens[0])
			if typ == TypeInvalid {
				return nil, fmt.Errorf("%s: unknown parameter type %q", fn.Name, tokens[0])
			}
			p := Param{Name: tokens[1], Type: typ}
			if out {
				fn.Outs = append(fn.Outs, p)
			} else {
				fn.Ins = append(fn.Ins, p)
			}
		}
	}
	return fn, nil
}

// ParseFunctions splits src into its `void name(...) {...}` definitions
// and parses each. Text outside function definitions is ignored so the
// source files may carry comments between entries.
func ParseFunctions(src string) ([]*Function, error) {
	var fns []*Function
	for off := 0; off < len(src); {
		loc := funcHeadRE.FindStringIndex(src[off:])
		if loc == nil {
			break
		}
		start := off + loc[0]
		open := strings.IndexByte(src[start:], '{')
		if open < 0 {
			return nil, fmt.Errorf("function at offset %d has no body", start)
		}
		depth := 0
		end := -1
		for i := start + open; i < len(src); i++ {
			switch src[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i + 1
				}
			}
			if end > 0 {
				break
			}
		}
		if end < 0 {
			return nil, fmt.Errorf("function at offset %d has unbalanced braces", start)
		}
		fn, err := ParseFunction(src[start:end])
		if err != nil {
			return nil, err
		}
		fns = append(fns, fn)
		off = end
	}
	if len(fns) == 0 {
		return nil, errors.New("no function definitions in source")
	}
	return fns, nil
}
