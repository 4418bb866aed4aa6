package glprog

import (
	"github.com/soypat/geometry/ms3"
)

// Type enumerates the value types a socket or shader function parameter
// can take. Float, Vec3 and Color form the implicit-conversion lattice;
// Closure values have no representation in the target language and are
// carried as a [ClosureValue] bundle of numeric channels instead.
type Type uint8

const (
	TypeInvalid Type = iota
	Float
	Vec2
	Vec3
	// Color is a vec4 in the target language. Alpha rides in the fourth
	// component.
	Color
	Mat4
	Sampler2D
	Closure
)

func (t Type) String() string {
	switch t {
	case Float:
		return "float"
	case Vec2:
		return "vec2"
	case Vec3:
		return "vec3"
	case Color:
		return "vec4"
	case Mat4:
		return "mat4"
	case Sampler2D:
		return "sampler2D"
	case Closure:
		return "closure"
	}
	return "invalid"
}

// TypeFromGLSL maps a GLSL type keyword to its Type. Returns TypeInvalid
// for unknown keywords.
func TypeFromGLSL(kw string) Type {
	switch kw {
	case "float":
		return Float
	case "vec2":
		return Vec2
	case "vec3":
		return Vec3
	case "vec4":
		return Color
	case "mat4":
		return Mat4
	case "sampler2D":
		return Sampler2D
	}
	return TypeInvalid
}

// Coercible reports whether a value of type from may be implicitly
// converted to type to when two sockets are linked. Closure never
// participates in coercion.
func Coercible(from, to Type) bool {
	if from == to {
		return from != TypeInvalid
	}
	switch from {
	case Float, Vec3, Color:
	default:
		return false
	}
	switch to {
	case Float, Vec3, Color:
	default:
		return false
	}
	return true
}

// Compiled is the result of compiling one output socket: either a [Value]
// or a [ClosureValue].
type Compiled interface {
	isCompiled()
}

// Value is a compiled non-closure result: a named variable bound once in
// the generated program, or a constant expression. Values are immutable
// once produced.
type Value struct {
	typ      Type
	expr     string
	variable bool
	num      float32
	isNum    bool
}

func (Value) isCompiled() {}

// Var returns a Value referring to the named variable.
func Var(t Type, name string) Value {
	return Value{typ: t, expr: name, variable: true}
}

// Lit returns a constant-expression Value.
func Lit(t Type, expr string) Value {
	return Value{typ: t, expr: expr}
}

func (v Value) Type() Type     { return v.typ }
func (v Value) String() string { return v.expr }
func (v Value) IsVar() bool    { return v.variable }
func (v Value) IsZero() bool   { return v.typ == TypeInvalid && v.expr == "" }

// Float returns the numeric payload of a Value built with [FloatLit].
// Variables and non-scalar literals report false.
func (v Value) Float() (float32, bool) { return v.num, v.isNum }

// FloatLit formats a float32 as a Float literal Value. The number is
// retained and recoverable through [Value.Float].
func FloatLit(f float32) Value {
	v := Lit(Float, string(AppendFloat(nil, f)))
	v.num = f
	v.isNum = true
	return v
}

// Vec3Lit formats v as a vec3 constructor literal.
func Vec3Lit(v ms3.Vec) Value {
	return Lit(Vec3, string(appendVecCtor(nil, "vec3", v.X, v.Y, v.Z)))
}

// ColorLit formats an RGB vector and alpha as a vec4 constructor literal.
func ColorLit(rgb ms3.Vec, alpha float32) Value {
	return Lit(Color, string(appendVecCtor(nil, "vec4", rgb.X, rgb.Y, rgb.Z, alpha)))
}

// Mat4Lit formats a column-major 16 element array as a mat4 constructor.
func Mat4Lit(m [16]float32) Value {
	b := append([]byte{}, "mat4("...)
	for col := 0; col < 4; col++ {
		b = appendVecCtor(b, "vec4", m[col*4], m[col*4+1], m[col*4+2], m[col*4+3])
		if col != 3 {
			b = append(b, ", "...)
		}
	}
	b = append(b, ')')
	return Lit(Mat4, string(b))
}

func appendVecCtor(b []byte, ctor string, vals ...float32) []byte {
	b = append(b, ctor...)
	b = append(b, '(')
	b = AppendFloats(b, ", ", vals...)
	b = append(b, ')')
	return b
}
