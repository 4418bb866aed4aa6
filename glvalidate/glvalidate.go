// Package glvalidate checks generated shader programs for structural
// defects before they reach an engine, and optionally compiles the
// shared function catalog on real GPU hardware when built with cgo.
package glvalidate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/gshade/gshade/glprog"
)

var knownRenderModes = map[string]bool{
	"blend_mix":            true,
	"blend_add":            true,
	"blend_sub":            true,
	"blend_mul":            true,
	"depth_draw_always":    true,
	"depth_draw_opaque":    true,
	"depth_draw_never":     true,
	"cull_back":            true,
	"cull_front":           true,
	"cull_disabled":        true,
	"diffuse_burley":       true,
	"diffuse_lambert":      true,
	"diffuse_oren_nayar":   true,
	"specular_schlick_ggx": true,
	"specular_blinn":       true,
	"specular_phong":       true,
	"unshaded":             true,
}

// Program renders p and runs every structural check on the result.
func Program(p *glprog.Program) error {
	for _, mode := range p.RenderModes {
		if !knownRenderModes[mode] {
			return fmt.Errorf("unknown render mode %q", mode)
		}
	}
	seen := make(map[string]bool)
	for _, u := range p.Uniforms() {
		if seen[u.Name] {
			return fmt.Errorf("duplicate uniform %q", u.Name)
		}
		seen[u.Name] = true
	}
	return Text(p.Append(nil))
}

// Text performs structural checks on rendered shader text: the type
// header, balanced delimiters and statement termination. It cannot
// prove the program valid, only reject text no engine would accept.
func Text(src []byte) error {
	if len(bytes.TrimSpace(src)) == 0 {
		return errors.New("empty shader source")
	}
	first := firstCodeLine(src)
	if !bytes.HasPrefix(first, []byte("shader_type ")) {
		return fmt.Errorf("first statement is %q, want shader_type declaration", first)
	}
	if err := checkBalance(src); err != nil {
		return err
	}
	return checkTermination(src)
}

func firstCodeLine(src []byte) []byte {
	for _, line := range bytes.Split(src, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 || bytes.HasPrefix(line, []byte("//")) {
			continue
		}
		return line
	}
	return nil
}

func checkBalance(src []byte) error {
	var braces, parens int
	line := 1
	for _, c := range src {
		switch c {
		case '\n':
			line++
		case '{':
			braces++
		case '}':
			braces--
		case '(':
			parens++
		case ')':
			parens--
		}
		if braces < 0 {
			return fmt.Errorf("line %d: unmatched closing brace", line)
		}
		if parens < 0 {
			return fmt.Errorf("line %d: unmatched closing parenthesis", line)
		}
	}
	if braces != 0 {
		return fmt.Errorf("%d unclosed braces", braces)
	}
	if parens != 0 {
		return fmt.Errorf("%d unclosed parentheses", parens)
	}
	return nil
}

// checkTermination flags generated statements that end in neither a
// semicolon nor a block delimiter. Only the vertex and fragment bodies
// are generated statement by statement; library function sources wrap
// freely and are skipped. Wrapped statements indent their continuation
// lines with a second tab, only the last physical line must terminate.
func checkTermination(src []byte) error {
	lines := bytes.Split(src, []byte("\n"))
	depth := 0
	for i, raw := range lines {
		line := bytes.TrimSpace(raw)
		inStage := depth > 0
		if bytes.HasPrefix(line, []byte("void vertex ")) ||
			bytes.HasPrefix(line, []byte("void fragment ")) {
			depth = 1
			continue
		}
		if depth > 0 {
			depth += bytes.Count(raw, []byte("{")) - bytes.Count(raw, []byte("}"))
		}
		if !inStage || depth == 0 {
			continue
		}
		if len(line) == 0 || bytes.HasPrefix(line, []byte("//")) {
			continue
		}
		if i+1 < len(lines) && bytes.HasPrefix(lines[i+1], []byte("\t\t")) {
			continue // statement continues on the next line
		}
		switch line[len(line)-1] {
		case ';', '{', '}':
		default:
			return fmt.Errorf("line %d: statement %q not terminated", i+1, line)
		}
	}
	return nil
}
