package citybuf

import (
	"github.com/go-gl/mathgl/mgl32"
)

// sessionParser carries the state shared by the geometry parsers for
// one parse session: the document, the interning registry, the
// diagnostics sink, the UV resolver, and the vertices appended for
// geometry template instances. Single-writer; owned by one
// ChunkedParser.
type sessionParser struct {
	doc      *Document
	registry *IndexRegistry
	diags    *Diagnostics
	uv       *UVResolver

	// extra extends the document position table with transformed
	// template vertices, one block per materialized instance.
	extra []mgl32.Vec3
}

func newSessionParser(doc *Document, registry *IndexRegistry, diags *Diagnostics) *sessionParser {
	return &sessionParser{
		doc:      doc,
		registry: registry,
		diags:    diags,
		uv:       newUVResolver(doc.Appearance, diags),
	}
}

// pos resolves a vertex index against the combined position table.
func (s *sessionParser) pos(i int) (mgl32.Vec3, bool) {
	if i >= 0 && i < len(s.doc.Positions) {
		return s.doc.Positions[i], true
	}
	j := i - len(s.doc.Positions)
	if j >= 0 && j < len(s.extra) {
		return s.extra[j], true
	}
	return mgl32.Vec3{}, false
}

// combinedPositions returns the document vertices followed by the
// appended instance vertices.
func (s *sessionParser) combinedPositions() []mgl32.Vec3 {
	if len(s.extra) == 0 {
		return s.doc.Positions
	}
	out := make([]mgl32.Vec3, 0, len(s.doc.Positions)+len(s.extra))
	out = append(out, s.doc.Positions...)
	out = append(out, s.extra...)
	return out
}

// parseObject runs every geometry of one city object through the
// parser matching its kind, appending to the primitive-specific
// accumulators.
func (s *sessionParser) parseObject(id string, tri, lin, pts *GeometryData) {
	obj := s.doc.Objects[id]
	if obj == nil {
		return
	}
	objIdx := s.registry.ObjectIndex(id)
	typeIdx := s.registry.TypeIndex(obj.Type)

	for gi, g := range obj.Geometry {
		if g == nil {
			continue
		}
		if g.decodeErr != nil {
			s.diags.warnf("boundaries", id, "geometry %d: malformed boundaries: %v", gi, g.decodeErr)
			continue
		}
		if g.Kind == KindGeometryInstance {
			g = s.materializeInstance(id, g)
			if g == nil {
				continue
			}
		}
		lodID := s.registry.LodIndex(g.Lod)

		switch g.Kind {
		case KindSolid, KindMultiSolid, KindCompositeSolid, KindMultiSurface, KindCompositeSurface:
			s.parseSurfaces(id, objIdx, typeIdx, gi, lodID, g, tri)
		case KindMultiLineString:
			s.parseLines(id, objIdx, typeIdx, gi, lodID, g, lin)
		case KindMultiPoint:
			s.parsePoints(id, objIdx, typeIdx, gi, lodID, g, pts)
		default:
			s.diags.warnf("geometry-type", id, "geometry %d has unsupported type", gi)
		}
	}
}

// materializeInstance turns a GeometryInstance into a concrete
// geometry: the template's vertices are transformed, translated to the
// anchor point, appended to the session position table, and the
// template boundaries are rebased onto them.
func (s *sessionParser) materializeInstance(objID string, g *Geometry) *Geometry {
	tpl := s.doc.Templates
	if tpl == nil || g.Template < 0 || g.Template >= len(tpl.Templates) {
		s.diags.warnf("template", objID, "instance references missing template %d", g.Template)
		return nil
	}
	template := tpl.Templates[g.Template]
	if template.Kind == KindGeometryInstance {
		s.diags.warnf("template", objID, "template %d is itself an instance", g.Template)
		return nil
	}
	if template.decodeErr != nil {
		s.diags.warnf("template", objID, "template %d has malformed boundaries: %v", g.Template, template.decodeErr)
		return nil
	}
	anchor, ok := s.pos(g.Anchor)
	if !ok {
		s.diags.warnf("template", objID, "instance anchor vertex %d out of range", g.Anchor)
		return nil
	}

	base := len(s.doc.Positions) + len(s.extra)
	for _, v := range tpl.Vertices {
		p := g.Transform.Mul4x1(v.Vec4(1)).Vec3().Add(anchor)
		s.extra = append(s.extra, p)
	}

	out := template.shiftIndices(base)
	if out.Lod == "" {
		out.Lod = g.Lod
	}
	return out
}

// semanticIndex resolves a flattened surface's semantic class to its
// surface-type bucket, or -1.
func (s *sessionParser) semanticIndex(objID string, g *Geometry, fs flatSurface) int {
	idx := rawInt(fs.semantic)
	if idx < 0 {
		return -1
	}
	if g.Semantics == nil || idx >= len(g.Semantics.Surfaces) {
		s.diags.warnf("semantics", objID, "boundary %d: semantic value %d out of range", fs.boundaryID, idx)
		return -1
	}
	return s.registry.SurfaceTypeIndex(g.Semantics.Surfaces[idx].Type)
}
