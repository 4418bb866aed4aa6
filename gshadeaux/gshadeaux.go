// Package gshadeaux bundles the steps of a typical material export,
// compile, validate, write the shader and stage its textures, behind a
// single call. Applications with special needs should drive gshade,
// glprog and glvalidate directly.
package gshadeaux

import (
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/gshade/gshade"
	"github.com/gshade/gshade/glprog"
	"github.com/gshade/gshade/glvalidate"
)

// ExportConfig controls [Export].
type ExportConfig struct {
	// ShaderOutput receives the rendered shader text. Required.
	ShaderOutput io.Writer
	// TextureDir, when set together with Resolve, is the directory the
	// referenced texture images are copied into.
	TextureDir string
	// Resolve opens the image data behind a texture handle. Handles that
	// fail to resolve are reported but do not abort the export.
	Resolve func(img glprog.ImageHandle) (io.ReadCloser, error)
	// Validate runs structural checks on the result before writing it.
	Validate bool
	Silent   bool
}

// Export compiles the graph and writes the program, returning the
// texture bindings the caller must wire up on the material.
func Export(g *gshade.Graph, cfg ExportConfig) ([]glprog.TextureBinding, error) {
	if cfg.ShaderOutput == nil {
		return nil, errors.New("Export requires ShaderOutput in config")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	watch := stopwatch()
	prog, err := gshade.Compile(g)
	if err != nil {
		return nil, fmt.Errorf("compiling material: %w", err)
	}
	for _, w := range prog.Warnings {
		log("warning:", w)
	}
	log("compiling material took", watch())

	if cfg.Validate {
		if err := glvalidate.Program(prog); err != nil {
			return nil, fmt.Errorf("validating program: %w", err)
		}
	}
	if _, err := prog.WriteTo(cfg.ShaderOutput); err != nil {
		return nil, fmt.Errorf("writing shader: %w", err)
	}
	if fp, ok := cfg.ShaderOutput.(*os.File); ok {
		log("wrote shader to", fp.Name())
	}

	textures := prog.Textures()
	if cfg.Resolve != nil && cfg.TextureDir != "" {
		for _, tex := range textures {
			if err := stageTexture(tex, cfg.TextureDir, cfg.Resolve, log); err != nil {
				log("warning: texture", string(tex.Image)+":", err)
			}
		}
	}
	return textures, nil
}

// stageTexture copies one referenced image into dir, probing its header
// so unreadable or unsupported files are caught at export time rather
// than in the engine.
func stageTexture(tex glprog.TextureBinding, dir string, resolve func(glprog.ImageHandle) (io.ReadCloser, error), log func(...any)) error {
	rc, err := resolve(tex.Image)
	if err != nil {
		return err
	}
	defer rc.Close()

	dst := filepath.Join(dir, filepath.Base(string(tex.Image)))
	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := io.Copy(f, rc); err != nil {
		return err
	}
	probe, err := os.Open(dst)
	if err != nil {
		return err
	}
	defer probe.Close()
	conf, format, err := image.DecodeConfig(probe)
	if err != nil {
		return fmt.Errorf("decoding image header: %w", err)
	}
	log("staged", tex.Uniform, "->", dst,
		fmt.Sprintf("(%s %dx%d)", format, conf.Width, conf.Height))
	return nil
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
