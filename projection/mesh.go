// Package projection builds the 3-D surface the corrected panoramic texture
// is draped onto. Re-imaging a half-cylinder with a perspective camera
// reproduces rectilinear views of a ~180° capture: the dewarp programs remove
// lens distortion, and this surface removes the cylindrical-to-planar
// stretch, so straight lines stay straight while panning.
package projection

import (
	"math"

	"github.com/golang/geo/r2"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
)

// Radius of the viewing cylinder. The camera sits on its axis, so the
// absolute scale is arbitrary; everything else derives from it.
const Radius = 1.0

// Vertex is one tessellation point on the viewing surface.
type Vertex struct {
	Position r3.Vector
	Normal   r3.Vector
	UV       r2.Point
}

// Mesh is a triangulated surface with per-vertex texture coordinates and
// normals. Triangles index into the vertex slice.
type Mesh struct {
	vertices  []Vertex
	triangles [][3]int

	widthSegments  int
	heightSegments int
}

// Vertices returns the tessellation points in row-major order.
func (m *Mesh) Vertices() []Vertex {
	return m.vertices
}

// Triangles returns vertex index triples with consistent winding.
func (m *Mesh) Triangles() [][3]int {
	return m.triangles
}

// HalfCylinder tessellates the viewing surface for a frame with the given
// aspect ratio (height over width): a half-cylinder of radius Radius opening
// toward the viewer, with height aspectRatio·π·Radius so the draped texture
// keeps its proportions. The tessellation has (w+1)(h+1) vertices and 2wh
// triangles.
func HalfCylinder(aspectRatio float64, widthSegments, heightSegments int) (*Mesh, error) {
	if aspectRatio <= 0 {
		return nil, errors.Errorf("aspect ratio must be positive, got %v", aspectRatio)
	}
	if widthSegments < 1 || heightSegments < 1 {
		return nil, errors.Errorf("need at least one segment each way, got (%d, %d)", widthSegments, heightSegments)
	}
	height := aspectRatio * math.Pi * Radius
	mesh := &Mesh{
		vertices:       make([]Vertex, 0, (widthSegments+1)*(heightSegments+1)),
		triangles:      make([][3]int, 0, 2*widthSegments*heightSegments),
		widthSegments:  widthSegments,
		heightSegments: heightSegments,
	}
	for j := 0; j <= heightSegments; j++ {
		v := float64(j) / float64(heightSegments)
		y := (v - 0.5) * height
		for i := 0; i <= widthSegments; i++ {
			u := float64(i) / float64(widthSegments)
			theta := (0.5 - u) * math.Pi
			sin, cos := math.Sincos(theta)
			mesh.vertices = append(mesh.vertices, Vertex{
				Position: r3.Vector{X: Radius * sin, Y: y, Z: -Radius * cos},
				// surface is viewed from inside, so normals point at the axis
				Normal: r3.Vector{X: -sin, Y: 0, Z: cos},
				UV:     r2.Point{X: 1 - u, Y: v},
			})
		}
	}
	stride := widthSegments + 1
	for j := 0; j < heightSegments; j++ {
		for i := 0; i < widthSegments; i++ {
			a := j*stride + i
			b := a + 1
			c := a + stride
			d := c + 1
			mesh.triangles = append(mesh.triangles, [3]int{a, c, b}, [3]int{b, c, d})
		}
	}
	return mesh, nil
}
