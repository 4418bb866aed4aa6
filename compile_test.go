package gshade

import (
	"errors"
	"strings"
	"testing"

	"github.com/gshade/gshade/glprog"
	"github.com/soypat/geometry/ms3"
)

func compileText(t *testing.T, g *Graph) string {
	t.Helper()
	prog, err := Compile(g)
	if err != nil {
		t.Fatalf("compile failed: %s", err)
	}
	return string(prog.Append(nil))
}

// lineWith returns the first line of src containing substr.
func lineWith(t *testing.T, src, substr string) string {
	t.Helper()
	for _, line := range strings.Split(src, "\n") {
		if strings.Contains(line, substr) {
			return line
		}
	}
	t.Fatalf("no line contains %q:\n%s", substr, src)
	return ""
}

func TestCompileMinimalSurface(t *testing.T) {
	g := New()
	bsdf := g.NewDiffuseBSDF("White Diffuse")
	g.Link(bsdf.Out("BSDF"), g.Surface())
	src := compileText(t, g)

	for _, want := range []string{
		"shader_type spatial;",
		"render_mode blend_mix",
		"void fragment () {",
		"void node_bsdf_diffuse(",
		"ALBEDO = ",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("output misses %q:\n%s", want, src)
		}
	}
	if strings.Contains(src, "sampler2D") {
		t.Error("no texture in graph, got sampler uniform")
	}
}

func TestNodeCompilesOncePerRoot(t *testing.T) {
	g := New()
	v := g.NewValue("Shared", 0.25)
	m := g.NewMath("Sum", MathAdd, false, 0, 0)
	g.Link(v.Output(), m.In("Value"))
	g.Link(v.Output(), m.In("Value2"))
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(m.Output(), bsdf.In("Roughness"))
	g.Link(bsdf.Out("BSDF"), g.Surface())
	src := compileText(t, g)

	if n := strings.Count(src, "// node: Shared"); n != 1 {
		t.Errorf("shared node compiled %d times within one root, want 1", n)
	}
}

func TestNodeCompilesPerSession(t *testing.T) {
	// A node feeding both the surface and the displacement root compiles
	// once in each root's session.
	g := New()
	v := g.NewValue("Shared", 0.25)
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(v.Output(), bsdf.In("Roughness"))
	g.Link(bsdf.Out("BSDF"), g.Surface())
	g.Link(v.Output(), g.Displacement())
	src := compileText(t, g)

	if n := strings.Count(src, "// node: Shared"); n != 2 {
		t.Errorf("shared node compiled %d times across two roots, want 2", n)
	}
}

func TestCycleDetection(t *testing.T) {
	g := New()
	a := g.NewMath("A", MathAdd, false, 0, 0)
	b := g.NewMath("B", MathAdd, false, 0, 0)
	g.Link(a.Output(), b.In("Value"))
	g.Link(b.Output(), a.In("Value"))
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(a.Output(), bsdf.In("Roughness"))
	g.Link(bsdf.Out("BSDF"), g.Surface())

	prog, err := Compile(g)
	if !errors.Is(err, ErrGraphCycle) {
		t.Fatalf("got error %v, want graph cycle", err)
	}
	if prog != nil {
		t.Error("cyclic graph produced a program")
	}
}

func TestIncompatibleLink(t *testing.T) {
	g := New()
	v := g.NewValue("Scalar", 1)
	g.Link(v.Output(), g.Surface()) // float into closure
	if err := g.Err(); !errors.Is(err, ErrIncompatibleSockets) {
		t.Fatalf("got error %v, want incompatible sockets", err)
	}
	if _, err := Compile(g); err == nil {
		t.Error("compile succeeded on malformed graph")
	}
}

func TestCoercionTable(t *testing.T) {
	v := glprog.Var(glprog.Color, "c")
	tests := []struct {
		from glprog.Value
		to   glprog.Type
		want string
	}{
		{glprog.Var(glprog.Vec3, "v"), glprog.Float, "dot(v, vec3(0.333333, 0.333333, 0.333333))"},
		{v, glprog.Float, "dot(c.rgb, vec3(0.2126, 0.7152, 0.0722))"},
		{glprog.Var(glprog.Float, "f"), glprog.Vec3, "vec3(f, f, f)"},
		{v, glprog.Vec3, "c.rgb"},
		{glprog.Var(glprog.Float, "f"), glprog.Color, "vec4(f, f, f, f)"},
		{glprog.Var(glprog.Vec3, "v"), glprog.Color, "vec4(v, 1.0)"},
	}
	for _, tt := range tests {
		got := coerce(tt.from, tt.to)
		if got.String() != tt.want {
			t.Errorf("coerce %s to %s: got %q, want %q", tt.from.Type(), tt.to, got, tt.want)
		}
		if got.Type() != tt.to {
			t.Errorf("coerce %s to %s: result typed %s", tt.from.Type(), tt.to, got.Type())
		}
	}
}

func TestCoercionRoundTrip(t *testing.T) {
	c := glprog.Var(glprog.Color, "c")
	rt := coerce(coerce(c, glprog.Vec3), glprog.Color)
	if want := "vec4(c.rgb, 1.0)"; rt.String() != want {
		t.Errorf("round trip got %q, want %q", rt, want)
	}
}

func TestAddShaderAlphaComplement(t *testing.T) {
	// Adding a shader without an alpha channel treats that side as
	// opaque, so the transparent side's alpha survives unchanged through
	// the complement formula.
	g := New()
	clear := g.NewTransparentBSDF("Clear")
	solid := g.NewDiffuseBSDF("Solid")
	add := g.NewAddShader("Combine")
	g.Link(clear.Out("BSDF"), add.In("Shader"))
	g.Link(solid.Out("BSDF"), add.In("Shader2"))
	g.Link(add.Out("Shader"), g.Surface())
	src := compileText(t, g)

	if !strings.Contains(src, "1.0 - clamp(2.0 - ") {
		t.Errorf("missing alpha complement combine:\n%s", src)
	}
	if !strings.Contains(src, " - 1.0, 0.0, 1.0)") {
		t.Errorf("missing side without alpha did not default to opaque:\n%s", src)
	}
}

func TestAddShaderAlbedoUnclamped(t *testing.T) {
	g := New()
	d1 := g.NewDiffuseBSDF("A")
	d2 := g.NewGlossyBSDF("B")
	add := g.NewAddShader("Combine")
	g.Link(d1.Out("BSDF"), add.In("Shader"))
	g.Link(d2.Out("BSDF"), add.In("Shader2"))
	g.Link(add.Out("Shader"), g.Surface())
	src := compileText(t, g)

	sum := lineWith(t, src, "_output_albedo + ")
	if strings.Contains(sum, "clamp(") || strings.Contains(sum, "mix(") {
		t.Errorf("albedo sum must stay unclamped and unscaled: %q", sum)
	}
}

func TestMixShaderFactorFolding(t *testing.T) {
	build := func(fac float32) string {
		g := New()
		a := g.NewDiffuseBSDF("SideA")
		b := g.NewGlossyBSDF("SideB")
		mix := g.NewMixShader("Blend", fac)
		g.Link(a.Out("BSDF"), mix.In("Shader"))
		g.Link(b.Out("BSDF"), mix.In("Shader2"))
		g.Link(mix.Out("Shader"), g.Surface())
		return compileText(t, g)
	}

	atZero := build(0)
	albedo := lineWith(t, atZero, "ALBEDO = ")
	if !strings.Contains(albedo, "SideA_output_albedo") || strings.Contains(albedo, "mix(") {
		t.Errorf("factor 0: albedo does not come straight from first shader: %q", albedo)
	}

	atOne := build(1)
	albedo = lineWith(t, atOne, "ALBEDO = ")
	if !strings.Contains(albedo, "SideB_output_albedo") || strings.Contains(albedo, "mix(") {
		t.Errorf("factor 1: albedo does not come straight from second shader: %q", albedo)
	}

	mid := build(0.3)
	if !strings.Contains(mid, ", 0.3)") {
		t.Errorf("factor 0.3 missing from mix:\n%s", mid)
	}
}

func TestMixShaderFactorSocketOverride(t *testing.T) {
	build := func(fac float32) string {
		g := New()
		a := g.NewDiffuseBSDF("SideA")
		b := g.NewGlossyBSDF("SideB")
		mix := g.NewMixShader("Blend", 0.3)
		mix.In("Fac").SetFloat(fac)
		g.Link(a.Out("BSDF"), mix.In("Shader"))
		g.Link(b.Out("BSDF"), mix.In("Shader2"))
		g.Link(mix.Out("Shader"), g.Surface())
		return compileText(t, g)
	}

	mid := build(0.9)
	if strings.Contains(mid, ", 0.3)") {
		t.Errorf("constructor factor survived the socket override:\n%s", mid)
	}
	if !strings.Contains(mid, ", 0.9)") {
		t.Errorf("overridden factor 0.9 missing from mix:\n%s", mid)
	}

	atOne := build(1)
	albedo := lineWith(t, atOne, "ALBEDO = ")
	if !strings.Contains(albedo, "SideB_output_albedo") || strings.Contains(albedo, "mix(") {
		t.Errorf("overridden factor 1 did not fold to second shader: %q", albedo)
	}
}

func TestFunctionDeduplication(t *testing.T) {
	g := New()
	m1 := g.NewMath("First", MathAdd, false, 1, 2)
	m2 := g.NewMath("Second", MathAdd, false, 3, 4)
	sum := g.NewMath("Total", MathAdd, false, 0, 0)
	g.Link(m1.Output(), sum.In("Value"))
	g.Link(m2.Output(), sum.In("Value2"))
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(sum.Output(), bsdf.In("Roughness"))
	g.Link(bsdf.Out("BSDF"), g.Surface())
	src := compileText(t, g)

	if n := strings.Count(src, "void node_math_add_no_clamp("); n != 1 {
		t.Errorf("function body emitted %d times, want 1", n)
	}
	if n := strings.Count(src, "node_math_add_no_clamp("); n != 4 {
		t.Errorf("got %d references to add function, want 1 definition and 3 calls", n)
	}
}

func TestTextureMixIntegration(t *testing.T) {
	// Texture into a diffuse shader, mixed against a glossy shader at a
	// constant factor. One sampler uniform, one texture call, one diffuse
	// call, and the factor in the mix.
	g := New()
	tex := g.NewImageTexture("Wood", "textures/wood.png")
	diffuse := g.NewDiffuseBSDF("Wood Surface")
	g.Link(tex.Out("Color"), diffuse.In("Color"))
	gloss := g.NewGlossyBSDF("Coat")
	mix := g.NewMixShader("Blend", 0.3)
	g.Link(diffuse.Out("BSDF"), mix.In("Shader"))
	g.Link(gloss.Out("BSDF"), mix.In("Shader2"))
	g.Link(mix.Out("Shader"), g.Surface())

	prog, err := Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	src := string(prog.Append(nil))

	if n := strings.Count(src, "uniform sampler2D"); n != 1 {
		t.Errorf("got %d sampler uniforms, want 1", n)
	}
	if n := strings.Count(src, "node_tex_image("); n != 2 {
		t.Errorf("got %d references to texture function, want definition and one call", n)
	}
	if n := strings.Count(src, "node_bsdf_diffuse("); n != 2 {
		t.Errorf("got %d references to diffuse function, want definition and one call", n)
	}
	if !strings.Contains(src, ", 0.3)") {
		t.Errorf("constant mix factor missing:\n%s", src)
	}
	texs := prog.Textures()
	if len(texs) != 1 || texs[0].Image != "textures/wood.png" {
		t.Errorf("texture bindings %v, want the wood image", texs)
	}
}

func TestSamplerDeduplicatedAcrossNodes(t *testing.T) {
	g := New()
	t1 := g.NewImageTexture("Tex A", "img/shared.png")
	t2 := g.NewImageTexture("Tex B", "img/shared.png")
	mixc := g.NewMixRGB("Mix", MixBlendMix, false)
	g.Link(t1.Out("Color"), mixc.In("Color1"))
	g.Link(t2.Out("Color"), mixc.In("Color2"))
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(mixc.Output(), bsdf.In("Color"))
	g.Link(bsdf.Out("BSDF"), g.Surface())

	prog, err := Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	if n := len(prog.Textures()); n != 1 {
		t.Errorf("same image bound %d times, want 1", n)
	}
}

func TestNormalTextureHint(t *testing.T) {
	g := New()
	tex := g.NewImageTexture("Normals", "img/normal.png")
	nm := g.NewNormalMap("NM", NormalMapTangent, 1)
	g.Link(tex.Out("Color"), nm.In("Color"))
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(nm.Out("Normal"), bsdf.In("Normal"))
	g.Link(bsdf.Out("BSDF"), g.Surface())

	prog, err := Compile(g)
	if err != nil {
		t.Fatal(err)
	}
	texs := prog.Textures()
	if len(texs) != 1 {
		t.Fatalf("got %d textures, want 1", len(texs))
	}
	if !texs[0].HintNormal {
		t.Error("texture feeding normal map misses the normal hint")
	}
	if !strings.Contains(string(prog.Append(nil)), "hint_normal") {
		t.Error("rendered sampler uniform misses hint_normal")
	}
}

func TestUnsupportedBlendRecovers(t *testing.T) {
	g := New()
	mixc := g.NewMixRGB("Mix", MixBlendScreen, false)
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(mixc.Output(), bsdf.In("Color"))
	g.Link(bsdf.Out("BSDF"), g.Surface())

	prog, err := Compile(g)
	if err != nil {
		t.Fatalf("unsupported blend must not abort compile: %s", err)
	}
	if len(prog.Warnings) == 0 {
		t.Error("unsupported blend produced no warning")
	}
	src := string(prog.Append(nil))
	if !strings.Contains(src, "node_mix_rgb_mix(") {
		t.Errorf("no fallback to plain mix:\n%s", src)
	}
}

func TestMixRGBClamping(t *testing.T) {
	g := New()
	mixc := g.NewMixRGB("Mix", MixBlendAdd, true)
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(mixc.Output(), bsdf.In("Color"))
	g.Link(bsdf.Out("BSDF"), g.Surface())
	src := compileText(t, g)

	if !strings.Contains(src, "clamp(") {
		t.Error("use_clamp emitted no clamp")
	}
	if !strings.Contains(src, " = clamp(") {
		t.Errorf("clamp not applied in place:\n%s", src)
	}
}

func TestDisplacementEmitsBump(t *testing.T) {
	g := New()
	v := g.NewValue("Height", 0.5)
	g.Link(v.Output(), g.Displacement())
	src := compileText(t, g)

	if !strings.Contains(src, "node_bump(") {
		t.Errorf("displacement does not perturb the normal:\n%s", src)
	}
	if !strings.Contains(src, "NORMAL)") {
		t.Errorf("bump output not written to the normal:\n%s", src)
	}
}

func TestGlassSurfaceRefraction(t *testing.T) {
	g := New()
	glass := g.NewGlassBSDF("Pane")
	g.Link(glass.Out("BSDF"), g.Surface())
	src := compileText(t, g)

	for _, want := range []string{
		"refraction_fresnel(",
		"refraction_offset",
		"textureLod(SCREEN_TEXTURE",
		"ALPHA = 1.0",
	} {
		if !strings.Contains(src, want) {
			t.Errorf("glass surface misses %q:\n%s", want, src)
		}
	}
}

func TestDiffuseSurfaceHasNoRefraction(t *testing.T) {
	g := New()
	bsdf := g.NewDiffuseBSDF("Matte")
	g.Link(bsdf.Out("BSDF"), g.Surface())
	src := compileText(t, g)
	if strings.Contains(src, "refraction_fresnel(") {
		t.Error("opaque surface compiled the refraction path")
	}
}

func TestLazyInverseMatrixOnce(t *testing.T) {
	g := New()
	tex := g.NewImageTexture("T", "img/n.png")
	nm := g.NewNormalMap("NM1", NormalMapWorld, 1)
	nm2 := g.NewNormalMap("NM2", NormalMapWorld, 1)
	g.Link(tex.Out("Color"), nm.In("Color"))
	g.Link(tex.Out("Color"), nm2.In("Color"))
	add := g.NewVectorMath("Sum", VectorMathAdd)
	g.Link(nm.Out("Normal"), add.In("Vector"))
	g.Link(nm2.Out("Normal"), add.In("Vector2"))
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(add.Out("Vector"), bsdf.In("Normal"))
	g.Link(bsdf.Out("BSDF"), g.Surface())
	src := compileText(t, g)

	if n := strings.Count(src, "mat4 inverted_view_matrix"); n != 1 {
		t.Errorf("inverse view matrix declared %d times, want 1", n)
	}
}

func TestMappingNormalRenormalizes(t *testing.T) {
	g := New()
	m := g.NewMapping("Map", MappingOpts{
		Type:     MappingNormal,
		Rotation: ms3.Vec{Z: 1},
		Scale:    ms3.Vec{X: 1, Y: 1, Z: 1},
	})
	bsdf := g.NewDiffuseBSDF("Out")
	g.Link(m.Output(), bsdf.In("Normal"))
	g.Link(bsdf.Out("BSDF"), g.Surface())
	src := compileText(t, g)

	if !strings.Contains(src, " = normalize(") {
		t.Errorf("normal mapping skipped renormalization:\n%s", src)
	}
}

func TestLinkErrors(t *testing.T) {
	g := New()
	a := g.NewValue("A", 1)
	b := g.NewMath("B", MathAdd, false, 0, 0)

	g.Link(b.In("Value"), a.Output()) // reversed direction
	if g.Err() == nil {
		t.Error("reversed link accepted")
	}

	g2 := New()
	a2 := g2.NewValue("A", 1)
	c2 := g2.NewValue("C", 2)
	m2 := g2.NewMath("B", MathAdd, false, 0, 0)
	g2.Link(a2.Output(), m2.In("Value"))
	g2.Link(c2.Output(), m2.In("Value")) // input already linked
	if g2.Err() == nil {
		t.Error("double link into one input accepted")
	}
}

func TestPanicOnError(t *testing.T) {
	g := New()
	g.PanicOnError = true
	v := g.NewValue("V", 1)
	defer func() {
		if recover() == nil {
			t.Error("PanicOnError did not panic on bad link")
		}
	}()
	g.Link(v.Output(), g.Surface())
}
