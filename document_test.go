package citybuf

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_StructuralErrors(t *testing.T) {
	cases := []struct {
		name string
		data string
		want error
	}{
		{"not json", `{]`, ErrNotCityJSON},
		{"wrong type", `{"type": "GeoJSON", "CityObjects": {}, "vertices": []}`, ErrNotCityJSON},
		{"missing objects", `{"type": "CityJSON", "vertices": []}`, ErrMissingObjects},
		{"missing vertices", `{"type": "CityJSON", "CityObjects": {}}`, ErrMissingVertices},
		{"bad vertex", `{"type": "CityJSON", "CityObjects": {}, "vertices": [[1, 2]]}`, ErrMissingVertices},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Decode([]byte(c.data))
			if !errors.Is(err, c.want) {
				t.Errorf("Expected %v, got %v", c.want, err)
			}
		})
	}
}

func TestDecode_TransformApplied(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.1",
		"CityObjects": {},
		"vertices": [[100, 200, 300]],
		"transform": {
			"scale": [0.001, 0.001, 0.001],
			"translate": [10, 20, 30]
		}
	}`))
	require.NoError(t, err)

	require.Len(t, doc.Positions, 1)
	assert.Equal(t, mgl32.Vec3{10.1, 20.2, 30.3}, doc.Positions[0])
}

func TestDecode_ObjectOrderLexicographic(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.1",
		"CityObjects": {
			"b-zulu": {"type": "Building"},
			"b-alpha": {"type": "Building"},
			"b-mike": {"type": "Building"}
		},
		"vertices": []
	}`))
	require.NoError(t, err)

	assert.Equal(t, []string{"b-alpha", "b-mike", "b-zulu"}, doc.ObjectIDs())
}

func TestDecode_LodNormalization(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.0",
		"CityObjects": {
			"a": {"type": "Building", "geometry": [
				{"type": "MultiPoint", "lod": 2, "boundaries": [0]},
				{"type": "MultiPoint", "lod": "2", "boundaries": [0]}
			]}
		},
		"vertices": [[0, 0, 0]]
	}`))
	require.NoError(t, err)

	geoms := doc.Objects["a"].Geometry
	require.Len(t, geoms, 2)
	assert.Equal(t, "2", geoms[0].Lod, "numeric lod normalizes to its literal")
	assert.Equal(t, geoms[0].Lod, geoms[1].Lod, "1.0 and 1.1 lods intern identically")
}

func TestDecode_MalformedBoundariesIsNotFatal(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.1",
		"CityObjects": {
			"a": {"type": "Building", "geometry": [
				{"type": "MultiSurface", "boundaries": "garbage"}
			]}
		},
		"vertices": []
	}`))
	require.NoError(t, err, "per-geometry corruption must not fail decode")

	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Triangles.Len())
	assert.NotEmpty(t, result.Diagnostics.ByCode("boundaries"))
}

const instanceDoc = `{
	"type": "CityJSON",
	"version": "1.1",
	"CityObjects": {
		"tree1": {
			"type": "SolitaryVegetationObject",
			"geometry": [{
				"type": "GeometryInstance",
				"template": 0,
				"boundaries": [0],
				"transformationMatrix": [
					1, 0, 0, 0,
					0, 1, 0, 0,
					0, 0, 1, 0,
					0, 0, 0, 1
				]
			}]
		}
	},
	"vertices": [[10, 10, 0]],
	"geometry-templates": {
		"templates": [{
			"type": "MultiSurface",
			"lod": "1",
			"boundaries": [[[0, 1, 2]]]
		}],
		"vertices-templates": [[0, 0, 0], [1, 0, 0], [0, 1, 0]]
	}
}`

func TestParse_GeometryInstance(t *testing.T) {
	doc, err := Decode([]byte(instanceDoc))
	require.NoError(t, err)

	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)

	tri := result.Triangles
	require.Equal(t, 3, tri.Len())

	// Template vertices are appended after the document vertex.
	require.Len(t, result.Positions, 4)
	assert.Equal(t, mgl32.Vec3{10, 10, 0}, result.Positions[1], "anchor translation applied")
	assert.Equal(t, mgl32.Vec3{11, 10, 0}, result.Positions[2])
	assert.Equal(t, mgl32.Vec3{10, 11, 0}, result.Positions[3])

	for i := 0; i < tri.Len(); i++ {
		assert.GreaterOrEqual(t, tri.VertexIDs[i], 1, "instance corners index appended vertices")
		assert.Less(t, tri.VertexIDs[i], 4)
	}
	assert.Equal(t, []string{"1"}, result.Registry.Lods(), "instance uses the template lod")
}

func TestParse_DanglingTemplateSkipped(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.1",
		"CityObjects": {
			"tree1": {
				"type": "SolitaryVegetationObject",
				"geometry": [{
					"type": "GeometryInstance",
					"template": 9,
					"boundaries": [0]
				}]
			}
		},
		"vertices": [[0, 0, 0]]
	}`))
	require.NoError(t, err)

	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Triangles.Len())
	assert.NotEmpty(t, result.Diagnostics.ByCode("template"))
}

func TestDecode_AppearancePassthrough(t *testing.T) {
	doc, err := Decode([]byte(`{
		"type": "CityJSON",
		"version": "1.1",
		"CityObjects": {},
		"vertices": [],
		"appearance": {
			"textures": [{
				"type": "PNG",
				"image": "atlas.png",
				"wrapMode": "border",
				"textureType": "specific",
				"borderColor": [0, 0, 0, 1]
			}],
			"default-theme-texture": "summer"
		}
	}`))
	require.NoError(t, err)

	require.NotNil(t, doc.Appearance)
	require.Len(t, doc.Appearance.Textures, 1)
	tex := doc.Appearance.Textures[0]
	assert.Equal(t, "PNG", tex.Type)
	assert.Equal(t, "atlas.png", tex.Image)
	assert.Equal(t, "border", tex.WrapMode)
	assert.Equal(t, "specific", tex.TextureType)
	assert.Equal(t, []float64{0, 0, 0, 1}, tex.BorderColor)
	assert.Equal(t, "summer", doc.Appearance.DefaultThemeTexture)
}
