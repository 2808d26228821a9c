package citybuf

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const lineDoc = `{
	"type": "CityJSON",
	"version": "1.1",
	"CityObjects": {
		"r1": {
			"type": "Road",
			"geometry": [{
				"type": "MultiLineString",
				"lod": "1",
				"boundaries": [[0, 1, 2]]
			}]
		}
	},
	"vertices": [[0, 0, 0], [1, 0, 0], [2, 1, 0]]
}`

func TestParse_MultiLineStringSegments(t *testing.T) {
	doc, err := Decode([]byte(lineDoc))
	require.NoError(t, err)

	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)

	lin := result.Lines
	// 3 vertices form 2 segments of 2 endpoints each.
	require.Equal(t, 4, lin.Len())
	assert.Equal(t, []int{0, 1, 1, 2}, lin.VertexIDs)

	for i := 0; i < lin.Len(); i++ {
		assert.Equal(t, 0, lin.ObjectIDs[i])
		assert.Equal(t, 0, lin.GeometryIDs[i])
		assert.Equal(t, 0, lin.BoundaryIDs[i])
		assert.Equal(t, -1, lin.SemanticSurfaces[i])
		assert.Equal(t, 0, lin.LodIDs[i])
	}
	assert.Equal(t, 0, result.Triangles.Len())
	assert.Equal(t, 0, result.Points.Len())
}

func TestParse_MultiLineStringSeparateLines(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.1",
		"CityObjects": {
			"r1": {
				"type": "Road",
				"geometry": [{
					"type": "MultiLineString",
					"boundaries": [[0, 1], [1, 2]]
				}]
			}
		},
		"vertices": [[0, 0, 0], [1, 0, 0], [2, 0, 0]]
	}`))
	require.NoError(t, err)

	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)

	lin := result.Lines
	require.Equal(t, 4, lin.Len())
	// Each line string keeps its own boundary id.
	assert.Equal(t, []int{0, 0, 1, 1}, lin.BoundaryIDs)
}

const pointDoc = `{
	"type": "CityJSON",
	"version": "1.1",
	"CityObjects": {
		"t1": {
			"type": "SolitaryVegetationObject",
			"geometry": [{
				"type": "MultiPoint",
				"boundaries": [0, 2]
			}]
		}
	},
	"vertices": [[0, 0, 0], [1, 0, 0], [2, 1, 3]]
}`

func TestParse_MultiPoint(t *testing.T) {
	doc, err := Decode([]byte(pointDoc))
	require.NoError(t, err)

	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)

	pts := result.Points
	require.Equal(t, 2, pts.Len())
	assert.Equal(t, []int{0, 2}, pts.VertexIDs)
	for i := 0; i < pts.Len(); i++ {
		assert.Equal(t, 0, pts.ObjectIDs[i])
		assert.Equal(t, 0, pts.ObjectTypes[i])
		assert.Equal(t, -1, pts.BoundaryIDs[i])
		assert.Equal(t, -1, pts.SemanticSurfaces[i])
		assert.Equal(t, -1, pts.LodIDs[i], "no lod on the geometry maps to -1")
	}
}

func TestParse_OutOfRangeLineVertexSkipsSegment(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.1",
		"CityObjects": {
			"r1": {
				"type": "Road",
				"geometry": [{
					"type": "MultiLineString",
					"boundaries": [[0, 99, 1]]
				}]
			}
		},
		"vertices": [[0, 0, 0], [1, 0, 0]]
	}`))
	require.NoError(t, err)

	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)

	assert.Equal(t, 0, result.Lines.Len(), "both segments touch the bad vertex")
	assert.NotZero(t, result.Diagnostics.Len())
}
