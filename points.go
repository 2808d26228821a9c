package citybuf

// parsePoints emits one record per MultiPoint vertex. Points have no
// surfaces, so there is no boundary, semantics or appearance data to
// resolve.
func (s *sessionParser) parsePoints(objID string, objIdx, typeIdx, geomIdx, lodID int, g *Geometry, out *GeometryData) {
	for _, vi := range g.Points {
		if _, ok := s.pos(vi); !ok {
			s.diags.warnf("degenerate-boundary", objID, "geometry %d: point vertex index %d out of range", geomIdx, vi)
			continue
		}
		out.Append(VertexRecord{
			VertexID:        vi,
			ObjectID:        objIdx,
			ObjectType:      typeIdx,
			SemanticSurface: -1,
			GeometryID:      geomIdx,
			BoundaryID:      -1,
			LodID:           lodID,
		})
	}
}
