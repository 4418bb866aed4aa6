//go:build !tinygo && cgo

package glvalidate

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/soypat/glgl/v4.1-core/glgl"

	"github.com/gshade/gshade/glprog"
	"github.com/gshade/gshade/glprog/shaderlib"
)

// Init1x1GLFW starts a 1x1 sized GLFW window so the GPU checks can run
// headless. Call the returned function when done.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "validate",
		Version: [2]int{4, 1},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// GPUVersion reports the version string of the current GL context.
func GPUVersion() string {
	return gl.GoStr(gl.GetString(gl.VERSION))
}

// CatalogGPU compiles every function in the shared catalog on the GPU
// and joins the per-function compile errors. Requires a current GL
// context, see [Init1x1GLFW].
func CatalogGPU() error {
	var errs []error
	for _, fn := range shaderlib.Functions() {
		if err := CompileGPU(fn); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", fn.Name, err))
		}
	}
	return errors.Join(errs...)
}

// CompileGPU wraps fn in a minimal vertex+fragment pair and compiles it
// with the running driver. Driver front ends reject constructs the
// textual checks cannot see, mismatched types and missing overloads
// among them.
func CompileGPU(fn *glprog.Function) error {
	var buf bytes.Buffer
	buf.WriteString("#shader vertex\n#version 410\n")
	buf.WriteString("void main() {\n\tgl_Position = vec4(0.0);\n}\n")
	buf.WriteString("#shader fragment\n#version 410\n")
	buf.WriteString(fn.Source)
	buf.WriteString("\nout vec4 frag_color;\nvoid main() {\n\tfrag_color = vec4(0.0);\n}\n")

	source, err := glgl.ParseCombined(&buf)
	if err != nil {
		return err
	}
	prog, err := glgl.CompileProgram(source)
	if err != nil {
		return err
	}
	prog.Delete()
	return nil
}
