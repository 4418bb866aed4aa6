//go:build tinygo || !cgo

package glvalidate

import (
	"errors"

	"github.com/gshade/gshade/glprog"
)

var errNoCGO = errors.New("GPU validation requires CGo and is not supported on TinyGo")

func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

func GPUVersion() string { return "" }

func CatalogGPU() error { return errNoCGO }

func CompileGPU(fn *glprog.Function) error { return errNoCGO }
