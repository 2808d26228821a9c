package citybuf

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// degenerateNormalEps rejects boundaries whose Newell normal is too
// short to orient a projection plane.
const degenerateNormalEps = 1e-7

// newellNormal computes the face normal of a (possibly non-planar,
// possibly concave) ring by Newell's method. A 3-point cross product
// would break on collinear leading vertices; summing over every edge
// does not. Returns false for a degenerate ring.
func newellNormal(ring []mgl32.Vec3) (mgl32.Vec3, bool) {
	var nx, ny, nz float32
	for i := range ring {
		a := ring[i]
		b := ring[(i+1)%len(ring)]
		nx += (a.Y() - b.Y()) * (a.Z() + b.Z())
		ny += (a.Z() - b.Z()) * (a.X() + b.X())
		nz += (a.X() - b.X()) * (a.Y() + b.Y())
	}
	length := math32.Sqrt(nx*nx + ny*ny + nz*nz)
	if length < degenerateNormalEps {
		return mgl32.Vec3{}, false
	}
	return mgl32.Vec3{nx / length, ny / length, nz / length}, true
}

// projectTo2D drops the axis with the largest normal component,
// keeping cyclic axis order so triangle winding survives projection.
// Output is flat x,y pairs for the triangulator.
func projectTo2D(pts []mgl32.Vec3, normal mgl32.Vec3) []float64 {
	ax, ay, az := math32.Abs(normal.X()), math32.Abs(normal.Y()), math32.Abs(normal.Z())
	out := make([]float64, 0, len(pts)*2)
	switch {
	case ax >= ay && ax >= az:
		for _, p := range pts {
			out = append(out, float64(p.Y()), float64(p.Z()))
		}
	case ay >= az:
		for _, p := range pts {
			out = append(out, float64(p.Z()), float64(p.X()))
		}
	default:
		for _, p := range pts {
			out = append(out, float64(p.X()), float64(p.Y()))
		}
	}
	return out
}

// parseSurfaces triangulates every boundary of a surface-bearing
// geometry and appends one record per triangle corner.
func (s *sessionParser) parseSurfaces(objID string, objIdx, typeIdx, geomIdx, lodID int, g *Geometry, out *GeometryData) {
	for _, fs := range g.flatSurfaces() {
		s.parseBoundary(objID, objIdx, typeIdx, geomIdx, lodID, g, fs, out)
	}
}

func (s *sessionParser) parseBoundary(objID string, objIdx, typeIdx, geomIdx, lodID int, g *Geometry, fs flatSurface, out *GeometryData) {
	rings := fs.rings
	if len(rings) == 0 || len(rings[0]) < 3 {
		s.diags.warnf("degenerate-boundary", objID, "geometry %d boundary %d: outer ring has fewer than 3 vertices", geomIdx, fs.boundaryID)
		return
	}

	// Flatten outer ring + holes into one local vertex list, recording
	// where each hole begins.
	var flatIdx []int
	var holeOffsets []int
	for ri, ring := range rings {
		if ri > 0 {
			holeOffsets = append(holeOffsets, len(flatIdx))
		}
		flatIdx = append(flatIdx, ring...)
	}

	pts := make([]mgl32.Vec3, len(flatIdx))
	for i, vi := range flatIdx {
		p, ok := s.pos(vi)
		if !ok {
			s.diags.warnf("degenerate-boundary", objID, "geometry %d boundary %d: vertex index %d out of range", geomIdx, fs.boundaryID, vi)
			return
		}
		pts[i] = p
	}

	normal, ok := newellNormal(pts[:len(rings[0])])
	if !ok {
		s.diags.warnf("degenerate-boundary", objID, "geometry %d boundary %d: zero-length normal", geomIdx, fs.boundaryID)
		return
	}

	tris := earcut(projectTo2D(pts, normal), holeOffsets)
	if len(tris) == 0 {
		s.diags.warnf("degenerate-boundary", objID, "geometry %d boundary %d: triangulation produced no triangles", geomIdx, fs.boundaryID)
		return
	}

	semIdx := s.semanticIndex(objID, g, fs)
	mats := surfaceMaterials(fs, g.Material)

	texRings := make(map[string][][]*int, len(g.Texture))
	for theme := range g.Texture {
		texRings[theme] = surfaceTexture(fs.texture[theme])
	}

	for _, corner := range tris {
		rec := VertexRecord{
			VertexID:        flatIdx[corner],
			ObjectID:        objIdx,
			ObjectType:      typeIdx,
			SemanticSurface: semIdx,
			GeometryID:      geomIdx,
			BoundaryID:      fs.boundaryID,
			LodID:           lodID,
			Normal:          normal,
			Materials:       mats,
		}
		if len(texRings) > 0 {
			for theme, tex := range texRings {
				ref, ok := s.uv.Resolve(objID, theme, tex, corner, holeOffsets)
				if !ok {
					continue
				}
				if rec.Textures == nil {
					rec.Textures = make(map[string]TextureRef, len(texRings))
				}
				rec.Textures[theme] = ref
			}
		}
		out.Append(rec)
	}
}
