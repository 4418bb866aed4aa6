package shaderlib

import (
	"strings"
	"testing"

	"github.com/gshade/gshade/glprog"
)

func TestCatalogComplete(t *testing.T) {
	// One entry per math operation in clamped and unclamped flavor.
	mathOps := []string{
		"add", "subtract", "multiply", "divide", "sine", "cosine", "tangent",
		"arcsine", "arccosine", "arctangent", "power", "logarithm", "minimum",
		"maximum", "round", "less_than", "greater_than", "modulo", "absolute",
		"arctan2", "floor", "ceil", "fract", "sqrt",
	}
	for _, op := range mathOps {
		for _, suffix := range []string{"_no_clamp", "_clamp"} {
			name := "node_math_" + op + suffix
			fn, ok := Lookup(name)
			if !ok {
				t.Errorf("catalog misses %s", name)
				continue
			}
			if len(fn.Ins) != 2 || len(fn.Outs) != 1 {
				t.Errorf("%s has %d ins / %d outs, want 2/1", name, len(fn.Ins), len(fn.Outs))
			}
		}
	}

	twoIn := []string{"add", "subtract", "average", "dot_product", "cross_product"}
	for _, op := range twoIn {
		name := "node_vector_math_" + op
		fn, ok := Lookup(name)
		if !ok {
			t.Errorf("catalog misses %s", name)
			continue
		}
		if len(fn.Ins) != 2 || len(fn.Outs) != 2 {
			t.Errorf("%s has %d ins / %d outs, want 2/2", name, len(fn.Ins), len(fn.Outs))
		}
	}
	if fn, ok := Lookup("node_vector_math_normalize"); !ok {
		t.Error("catalog misses node_vector_math_normalize")
	} else if len(fn.Ins) != 1 || len(fn.Outs) != 2 {
		t.Errorf("normalize has %d ins / %d outs, want 1/2", len(fn.Ins), len(fn.Outs))
	}

	blends := []string{"mix", "add", "subtract", "multiply", "divide",
		"difference", "darken", "lighten"}
	for _, blend := range blends {
		name := "node_mix_rgb_" + blend
		fn, ok := Lookup(name)
		if !ok {
			t.Errorf("catalog misses %s", name)
			continue
		}
		if len(fn.Ins) != 3 || len(fn.Outs) != 1 {
			t.Errorf("%s has %d ins / %d outs, want 3/1", name, len(fn.Ins), len(fn.Outs))
		}
	}

	misc := []string{
		"node_rgb_to_bw", "node_gamma", "node_separate_xyz",
		"node_separate_rgb", "node_combine_rgb", "node_tex_image",
		"node_mapping", "node_bump", "node_normal_map_tangent",
		"node_normal_map_world", "node_normal_map_object",
		"refraction_fresnel",
		"space_convert_zup_to_yup", "space_convert_yup_to_zup",
		"dir_space_convert_world_to_view", "point_space_convert_world_to_view",
		"dir_space_convert_view_to_world", "point_space_convert_view_to_world",
		"dir_space_convert_view_to_model", "point_space_convert_view_to_model",
		"dir_space_convert_model_to_view", "point_space_convert_model_to_view",
	}
	for _, name := range misc {
		if _, ok := Lookup(name); !ok {
			t.Errorf("catalog misses %s", name)
		}
	}
}

func TestLookupMiss(t *testing.T) {
	if _, ok := Lookup("node_does_not_exist"); ok {
		t.Error("Lookup found a function that does not exist")
	}
}

func TestIntrinsicPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Intrinsic did not panic on unknown name")
		}
	}()
	Intrinsic("node_does_not_exist")
}

func TestNamesSorted(t *testing.T) {
	names := Names()
	if len(names) == 0 {
		t.Fatal("empty catalog")
	}
	for i := 1; i < len(names); i++ {
		if names[i] <= names[i-1] {
			t.Fatalf("names not sorted strictly: %q before %q", names[i-1], names[i])
		}
	}
}

func TestBSDFBindings(t *testing.T) {
	funcs := []string{
		"node_bsdf_principled", "node_bsdf_diffuse", "node_bsdf_glossy",
		"node_emission", "node_bsdf_transparent", "node_bsdf_glass",
	}
	for _, name := range funcs {
		meta, ok := BSDFByFunc(name)
		if !ok {
			t.Errorf("no shading metadata for %s", name)
			continue
		}
		if meta.Func == nil || meta.Func.Name != name {
			t.Errorf("%s metadata bound to wrong function", name)
			continue
		}
		if len(meta.Sockets) != len(meta.Func.Ins) {
			t.Errorf("%s binds %d sockets to %d inputs", name, len(meta.Sockets), len(meta.Func.Ins))
		}
		if len(meta.Channels) != len(meta.Func.Outs) {
			t.Errorf("%s binds %d channels to %d outputs", name, len(meta.Channels), len(meta.Func.Outs))
		}
		for i, ch := range meta.Channels {
			if meta.Func.Outs[i].Type != ch.Type() {
				t.Errorf("%s output %d typed %s, channel %s wants %s",
					name, i, meta.Func.Outs[i].Type, ch, ch.Type())
			}
		}
	}

	principled, _ := BSDFByFunc("node_bsdf_principled")
	if len(principled.Sockets) != 11 {
		t.Errorf("principled binds %d sockets, want 11", len(principled.Sockets))
	}
	transparent, _ := BSDFByFunc("node_bsdf_transparent")
	if len(transparent.Channels) != 1 || transparent.Channels[0] != glprog.ChanAlpha {
		t.Errorf("transparent channels %v, want alpha only", transparent.Channels)
	}
}

func TestFunctionSourcesParseBack(t *testing.T) {
	// Every catalog entry's source must itself parse as exactly the
	// function it claims to be.
	for _, fn := range Functions() {
		parsed, err := glprog.ParseFunctions(fn.Source)
		if err != nil {
			t.Errorf("%s: %s", fn.Name, err)
			continue
		}
		if len(parsed) != 1 || parsed[0].Name != fn.Name {
			t.Errorf("%s source does not round trip", fn.Name)
		}
		if strings.Count(fn.Source, "{") != strings.Count(fn.Source, "}") {
			t.Errorf("%s source has unbalanced braces", fn.Name)
		}
	}
}
