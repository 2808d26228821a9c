package citybuf

import (
	"fmt"
	"sort"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeFlatDoc builds a document of n single-triangle buildings without
// going through JSON.
func makeFlatDoc(n int) *Document {
	doc := &Document{
		Version:   "1.1",
		Objects:   make(map[string]*CityObject, n),
		Positions: []mgl32.Vec3{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	}
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("building-%05d", i)
		doc.Objects[id] = &CityObject{
			Type: "Building",
			Geometry: []*Geometry{{
				Kind:     KindMultiSurface,
				Lod:      "2",
				Surfaces: [][][]int{{{0, 1, 2}}},
			}},
		}
		doc.order = append(doc.order, id)
	}
	sort.Strings(doc.order)
	return doc
}

func TestChunkedParser_ChunkCount(t *testing.T) {
	doc := makeFlatDoc(5000)
	p, err := NewChunkedParser(doc, ParseOptions{ChunkSize: 2000})
	require.NoError(t, err)
	require.Equal(t, StateIdle, p.State())

	var chunks []*Chunk
	for {
		chunk, done, err := p.Next()
		require.NoError(t, err)
		if chunk != nil {
			chunks = append(chunks, chunk)
		}
		if done {
			break
		}
	}

	require.Len(t, chunks, 3)
	require.Equal(t, StateComplete, p.State())

	assert.Equal(t, 2000, chunks[0].ProcessedObjects)
	assert.Equal(t, 4000, chunks[1].ProcessedObjects)
	assert.Equal(t, 5000, chunks[2].ProcessedObjects)
	for i, c := range chunks {
		assert.Equal(t, i, c.Sequence)
		assert.Equal(t, 5000, c.TotalObjects)
		assert.Equal(t, p.Session(), c.Session)
	}
	assert.Equal(t, 2000*3, chunks[0].Triangles.Len())
	assert.Equal(t, 1000*3, chunks[2].Triangles.Len())
}

func TestChunkedParser_ConcatenationMatchesBlocking(t *testing.T) {
	doc := makeFlatDoc(5000)

	p, err := NewChunkedParser(doc, ParseOptions{ChunkSize: 2000, ColorSeed: 7})
	require.NoError(t, err)

	concat := NewGeometryData()
	for {
		chunk, done, err := p.Next()
		require.NoError(t, err)
		if chunk != nil {
			concat.Extend(chunk.Triangles)
		}
		if done {
			break
		}
	}

	blocking, err := Parse(doc, ParseOptions{ChunkSize: 2000, ColorSeed: 7})
	require.NoError(t, err)

	assert.Equal(t, blocking.Triangles.VertexIDs, concat.VertexIDs)
	assert.Equal(t, blocking.Triangles.ObjectIDs, concat.ObjectIDs)
	assert.Equal(t, blocking.Triangles.ObjectTypes, concat.ObjectTypes)
	assert.Equal(t, blocking.Triangles.SemanticSurfaces, concat.SemanticSurfaces)
	assert.Equal(t, blocking.Triangles.GeometryIDs, concat.GeometryIDs)
	assert.Equal(t, blocking.Triangles.BoundaryIDs, concat.BoundaryIDs)
	assert.Equal(t, blocking.Triangles.LodIDs, concat.LodIDs)
	assert.Equal(t, blocking.Triangles.Normals, concat.Normals)
}

func TestChunkedParser_ObjectOrderPreserved(t *testing.T) {
	doc := makeFlatDoc(10)
	result, err := Parse(doc, ParseOptions{ChunkSize: 3})
	require.NoError(t, err)

	// Records follow lexicographic object order; within one object they
	// stay contiguous.
	last := -1
	for _, objID := range result.Triangles.ObjectIDs {
		require.GreaterOrEqual(t, objID, last)
		last = objID
	}
	assert.Equal(t, 10, result.Registry.ObjectCount())
	assert.Equal(t, 10, result.ProcessedObjects)
	assert.Equal(t, 10, result.TotalObjects)
}

func TestChunkedParser_Cancel(t *testing.T) {
	doc := makeFlatDoc(100)
	p, err := NewChunkedParser(doc, ParseOptions{ChunkSize: 30})
	require.NoError(t, err)

	first, done, err := p.Next()
	require.NoError(t, err)
	require.False(t, done)
	require.Equal(t, StateYielding, p.State())
	require.Equal(t, 30*3, first.Triangles.Len())

	p.Cancel()

	chunk, done, err := p.Next()
	require.NoError(t, err)
	assert.True(t, done)
	assert.Nil(t, chunk)
	assert.Equal(t, StateComplete, p.State())

	// The already-emitted chunk stays usable.
	assert.Equal(t, 30*3, first.Triangles.Len())
	assert.Equal(t, 30, p.Result().ProcessedObjects)
}

func TestChunkedParser_InvalidChunkSize(t *testing.T) {
	_, err := NewChunkedParser(makeFlatDoc(1), ParseOptions{ChunkSize: -1})
	assert.ErrorIs(t, err, ErrInvalidChunkSize)

	_, err = NewChunkedParser(nil, ParseOptions{})
	assert.ErrorIs(t, err, ErrNilDocument)
}

func TestChunkedParser_NextAfterComplete(t *testing.T) {
	doc := makeFlatDoc(1)
	p, err := NewChunkedParser(doc, ParseOptions{})
	require.NoError(t, err)

	_, done, err := p.Next()
	require.NoError(t, err)
	require.True(t, done)

	_, _, err = p.Next()
	assert.ErrorIs(t, err, ErrParserFinished)
}

func TestChunkedParser_EmptyDocument(t *testing.T) {
	doc := &Document{Version: "1.1", Objects: map[string]*CityObject{}}
	result, err := Parse(doc, ParseOptions{})
	require.NoError(t, err)
	assert.Equal(t, 0, result.Triangles.Len())
	assert.Equal(t, 0, result.TotalObjects)
}

func TestChunkedParser_DefaultChunkSize(t *testing.T) {
	doc := makeFlatDoc(DefaultChunkSize + 1)
	p, err := NewChunkedParser(doc, ParseOptions{})
	require.NoError(t, err)

	chunks := 0
	for {
		chunk, done, err := p.Next()
		require.NoError(t, err)
		if chunk != nil {
			chunks++
		}
		if done {
			break
		}
	}
	assert.Equal(t, 2, chunks)
}

func TestChunkedParser_TwoSessionsIndependent(t *testing.T) {
	doc := makeFlatDoc(5)

	p1, err := NewChunkedParser(doc, ParseOptions{})
	require.NoError(t, err)
	p2, err := NewChunkedParser(doc, ParseOptions{})
	require.NoError(t, err)

	assert.NotEqual(t, p1.Session(), p2.Session())
	p1.Registry().TypeIndex("Road")
	_, ok := p2.Registry().TypeColor("Road")
	assert.False(t, ok, "registries must not be shared between sessions")
}
