package citybuf

// parseLines emits consecutive-vertex-pair segment records for a
// MultiLineString. Lines carry no per-surface semantics, materials or
// textures; only the geometry-level identifiers apply.
func (s *sessionParser) parseLines(objID string, objIdx, typeIdx, geomIdx, lodID int, g *Geometry, out *GeometryData) {
	for li, line := range g.Lines {
		for i := 0; i+1 < len(line); i++ {
			a, b := line[i], line[i+1]
			if _, ok := s.pos(a); !ok {
				s.diags.warnf("degenerate-boundary", objID, "geometry %d line %d: vertex index %d out of range", geomIdx, li, a)
				continue
			}
			if _, ok := s.pos(b); !ok {
				s.diags.warnf("degenerate-boundary", objID, "geometry %d line %d: vertex index %d out of range", geomIdx, li, b)
				continue
			}
			for _, vi := range [2]int{a, b} {
				out.Append(VertexRecord{
					VertexID:        vi,
					ObjectID:        objIdx,
					ObjectType:      typeIdx,
					SemanticSurface: -1,
					GeometryID:      geomIdx,
					BoundaryID:      li,
					LodID:           lodID,
				})
			}
		}
	}
}
