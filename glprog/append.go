package glprog

import (
	"bytes"
	"strconv"
)

const decimalDigits = 6

// AppendFloat formats v in fixed notation with trailing zeroes trimmed,
// always keeping at least one decimal so the target language reads it as
// a float and not an int.
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if idx < 0 {
		return append(b, ".0"...)
	}
	end := len(b)
	for i := len(b) - 1; i > start+idx+1 && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

// AppendFloats appends the argument floats separated by sep.
func AppendFloats(b []byte, sep string, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, v)
		if i != len(s)-1 {
			b = append(b, sep...)
		}
	}
	return b
}

// maxLineWidth is the column limit beyond which rendered statements are
// wrapped. Purely cosmetic, matches the width of the generated script.
const maxLineWidth = 80

// appendWrapped appends line indented with one tab, breaking it at spaces
// so no physical line exceeds maxLineWidth. Continuation lines get two
// tabs. Wrapping is textual and never splits a token.
func appendWrapped(b []byte, line string) []byte {
	indent := "\t"
	for len(line) > maxLineWidth {
		cut := -1
		for i := maxLineWidth; i > 0; i-- {
			if line[i] == ' ' {
				cut = i
				break
			}
		}
		if cut <= 0 {
			break // Unbreakable token run, emit as-is.
		}
		b = append(b, indent...)
		b = append(b, line[:cut]...)
		b = append(b, '\n')
		line = line[cut+1:]
		indent = "\t\t"
	}
	b = append(b, indent...)
	b = append(b, line...)
	b = append(b, '\n')
	return b
}
