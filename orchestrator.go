package citybuf

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const DefaultChunkSize = 2000

var (
	ErrInvalidChunkSize = errors.New("chunk size must be positive")
	ErrNilDocument      = errors.New("document is nil")
	ErrParserFinished   = errors.New("parser has already finished")
	ErrParserBusy       = errors.New("parser is already running")
)

// ParseState is the orchestrator lifecycle: Idle before the first
// batch, Running while a batch executes, Yielding between batches in
// cooperative mode, then Complete (or Failed on structural errors).
type ParseState int

const (
	StateIdle ParseState = iota
	StateRunning
	StateYielding
	StateComplete
	StateFailed
)

func (s ParseState) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateRunning:
		return "Running"
	case StateYielding:
		return "Yielding"
	case StateComplete:
		return "Complete"
	case StateFailed:
		return "Failed"
	}
	return "Unknown"
}

// ParseOptions configures one parse session. The zero value is usable.
type ParseOptions struct {
	// ChunkSize bounds how many objects one batch processes before the
	// cooperative parser yields. 0 means DefaultChunkSize; negative is
	// an error.
	ChunkSize int
	Logger    Logger
	Debug     bool
	// ColorSeed fixes the color-bucket sequence; 0 means run-local
	// pseudo-random colors.
	ColorSeed uint64
	// ObjectColors / SurfaceColors pre-seed type color buckets.
	ObjectColors  map[string]mgl32.Vec3
	SurfaceColors map[string]mgl32.Vec3
}

// Chunk is one batch worth of accumulated buffers, emitted by the
// cooperative parser after each yield point. Batch boundaries are
// object-aligned: one object's records are never split across chunks.
type Chunk struct {
	Session          uuid.UUID
	Sequence         int
	Triangles        *GeometryData
	Lines            *GeometryData
	Points           *GeometryData
	ProcessedObjects int
	TotalObjects     int
}

// ParseResult is the full-session output bundle: the accumulated
// buffers, the filled registry for color/legend lookups, the combined
// position table (document vertices plus appended instance vertices),
// and the diagnostics gathered along the way.
type ParseResult struct {
	Session          uuid.UUID
	Triangles        *GeometryData
	Lines            *GeometryData
	Points           *GeometryData
	Registry         *IndexRegistry
	Positions        []mgl32.Vec3
	Diagnostics      *Diagnostics
	TotalObjects     int
	ProcessedObjects int
}

// ChunkedParser drives the geometry parsers over the object collection
// in bounded batches. One parser owns one session; registries and
// accumulators are never shared between sessions.
type ChunkedParser struct {
	doc       *Document
	opts      ParseOptions
	session   uuid.UUID
	registry  *IndexRegistry
	diags     *Diagnostics
	logger    Logger
	parser    *sessionParser
	state     ParseState
	cursor    int
	sequence  int
	cancelled bool
}

func NewChunkedParser(doc *Document, opts ParseOptions) (*ChunkedParser, error) {
	if doc == nil {
		return nil, ErrNilDocument
	}
	if opts.ChunkSize < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, opts.ChunkSize)
	}
	if opts.ChunkSize == 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	logger := opts.Logger
	if logger == nil {
		logger = NewNopLogger()
	}
	if opts.Debug {
		logger.SetDebug(true)
	}

	registry := NewIndexRegistry(opts.ColorSeed)
	for name, color := range opts.ObjectColors {
		registry.SeedTypeColor(name, color)
	}
	for name, color := range opts.SurfaceColors {
		registry.SeedSurfaceColor(name, color)
	}

	diags := newDiagnostics(logger)
	return &ChunkedParser{
		doc:      doc,
		opts:     opts,
		session:  uuid.New(),
		registry: registry,
		diags:    diags,
		logger:   logger,
		parser:   newSessionParser(doc, registry, diags),
		state:    StateIdle,
	}, nil
}

func (p *ChunkedParser) State() ParseState { return p.state }

func (p *ChunkedParser) Session() uuid.UUID { return p.session }

func (p *ChunkedParser) Registry() *IndexRegistry { return p.registry }

func (p *ChunkedParser) Diagnostics() *Diagnostics { return p.diags }

// Positions returns the combined position table as of the last batch.
// Indices already emitted stay valid as the table only grows.
func (p *ChunkedParser) Positions() []mgl32.Vec3 {
	return p.parser.combinedPositions()
}

// Cancel requests a stop at the next batch boundary. Chunks already
// emitted remain valid.
func (p *ChunkedParser) Cancel() {
	p.cancelled = true
}

// Next processes one batch of objects and returns its chunk. done is
// true once the whole collection has been processed or the parser was
// cancelled; the final call returns (nil, true, nil).
func (p *ChunkedParser) Next() (chunk *Chunk, done bool, err error) {
	switch p.state {
	case StateComplete, StateFailed:
		return nil, true, ErrParserFinished
	case StateRunning:
		return nil, false, ErrParserBusy
	}

	if p.doc.Objects == nil {
		p.state = StateFailed
		return nil, true, ErrMissingObjects
	}

	ids := p.doc.ObjectIDs()
	if p.cancelled || p.cursor >= len(ids) {
		if p.cancelled {
			p.logger.Infof("parse session %s cancelled after %d/%d objects", p.session, p.cursor, len(ids))
		}
		p.state = StateComplete
		return nil, true, nil
	}

	p.state = StateRunning

	end := p.cursor + p.opts.ChunkSize
	if end > len(ids) {
		end = len(ids)
	}

	tri := NewGeometryData()
	lin := NewGeometryData()
	pts := NewGeometryData()
	for _, id := range ids[p.cursor:end] {
		p.parser.parseObject(id, tri, lin, pts)
	}
	p.cursor = end

	chunk = &Chunk{
		Session:          p.session,
		Sequence:         p.sequence,
		Triangles:        tri,
		Lines:            lin,
		Points:           pts,
		ProcessedObjects: p.cursor,
		TotalObjects:     len(ids),
	}
	p.sequence++

	p.logger.Debugf("chunk %d: %d/%d objects, %d triangle corners, %d line endpoints, %d points",
		chunk.Sequence, chunk.ProcessedObjects, chunk.TotalObjects, tri.Len(), lin.Len(), pts.Len())

	if p.cursor >= len(ids) {
		p.state = StateComplete
	} else {
		p.state = StateYielding
	}
	return chunk, p.state == StateComplete, nil
}

// Result assembles the full-session bundle. Valid once the parser has
// left the Idle state; the caller is expected to have concatenated
// chunk buffers itself in cooperative mode, so Result carries the
// registry, positions, diagnostics and counters only. Use Parse for
// the blocking single-pass bundle.
func (p *ChunkedParser) Result() *ParseResult {
	return &ParseResult{
		Session:          p.session,
		Registry:         p.registry,
		Positions:        p.parser.combinedPositions(),
		Diagnostics:      p.diags,
		TotalObjects:     len(p.doc.ObjectIDs()),
		ProcessedObjects: p.cursor,
	}
}

// Parse is the blocking single-pass mode: it drives a session to
// completion and returns one bundle holding every record.
func Parse(doc *Document, opts ParseOptions) (*ParseResult, error) {
	p, err := NewChunkedParser(doc, opts)
	if err != nil {
		return nil, err
	}

	tri := NewGeometryData()
	lin := NewGeometryData()
	pts := NewGeometryData()
	for {
		chunk, done, err := p.Next()
		if err != nil {
			return nil, err
		}
		if chunk != nil {
			tri.Extend(chunk.Triangles)
			lin.Extend(chunk.Lines)
			pts.Extend(chunk.Points)
		}
		if done {
			break
		}
	}

	result := p.Result()
	result.Triangles = tri
	result.Lines = lin
	result.Points = pts
	return result, nil
}
