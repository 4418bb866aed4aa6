package gshade

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
)

// mat4 is a column-major 4x4 matrix in the layout GLSL constructors
// expect.
type mat4 [16]float32

func identityMat4() mat4 {
	return mat4{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

func (a mat4) mul(b mat4) mat4 {
	var out mat4
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

func translationMat4(t ms3.Vec) mat4 {
	m := identityMat4()
	m[12] = t.X
	m[13] = t.Y
	m[14] = t.Z
	return m
}

func scalingMat4(s ms3.Vec) mat4 {
	m := identityMat4()
	m[0] = s.X
	m[5] = s.Y
	m[10] = s.Z
	return m
}

// eulerXYZMat4 builds the rotation for XYZ Euler angles in radians,
// applied X first.
func eulerXYZMat4(r ms3.Vec) mat4 {
	sx, cx := math32.Sincos(r.X)
	sy, cy := math32.Sincos(r.Y)
	sz, cz := math32.Sincos(r.Z)
	rx := mat4{
		1, 0, 0, 0,
		0, cx, sx, 0,
		0, -sx, cx, 0,
		0, 0, 0, 1,
	}
	ry := mat4{
		cy, 0, -sy, 0,
		0, 1, 0, 0,
		sy, 0, cy, 0,
		0, 0, 0, 1,
	}
	rz := mat4{
		cz, sz, 0, 0,
		-sz, cz, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
	return rz.mul(ry).mul(rx)
}

func (a mat4) transposed3() mat4 {
	out := a
	out[1], out[4] = a[4], a[1]
	out[2], out[8] = a[8], a[2]
	out[6], out[9] = a[9], a[6]
	out[3], out[7], out[11] = 0, 0, 0
	out[12], out[13], out[14] = 0, 0, 0
	out[15] = 1
	return out
}

const minScale = 1e-8

func safeInv(v float32) float32 {
	if math32.Abs(v) < minScale {
		return 0
	}
	return 1 / v
}

// mappingMatrix assembles the transform a mapping node bakes into its
// call. The texture type carries the inverse so coordinates map back
// into the texture's own frame; a degenerate scale inverts to zero
// rather than blowing up. A zero value Scale means unset and scales
// by one.
func mappingMatrix(opts MappingOpts) [16]float32 {
	if opts.Scale == (ms3.Vec{}) {
		opts.Scale = ms3.Vec{X: 1, Y: 1, Z: 1}
	}
	rot := eulerXYZMat4(opts.Rotation)
	sca := scalingMat4(opts.Scale)
	switch opts.Type {
	case MappingTexture:
		invS := scalingMat4(ms3.Vec{
			X: safeInv(opts.Scale.X),
			Y: safeInv(opts.Scale.Y),
			Z: safeInv(opts.Scale.Z),
		})
		invT := translationMat4(ms3.Scale(-1, opts.Translation))
		return invS.mul(rot.transposed3()).mul(invT)
	case MappingVector, MappingNormal:
		return rot.mul(sca)
	default:
		return translationMat4(opts.Translation).mul(rot).mul(sca)
	}
}
