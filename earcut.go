package citybuf

import "math"

// Ear-clipping triangulation of a 2D polygon with holes, operating on
// a doubly linked vertex list. Holes are first bridged into the outer
// ring, then ears are clipped; two repair passes (local intersection
// curing and diagonal splitting) handle mildly degenerate input so a
// malformed ring still yields triangles instead of an error.

type earNode struct {
	i       int // vertex index within the flattened boundary
	x, y    float64
	prev    *earNode
	next    *earNode
	steiner bool
}

// earcut triangulates the polygon given as flat x,y pairs. holeStarts
// lists the vertex index at which each hole ring begins. The result is
// triangle index triples into the flattened vertex list.
func earcut(data []float64, holeStarts []int) []int {
	hasHoles := len(holeStarts) > 0
	outerLen := len(data)
	if hasHoles {
		outerLen = holeStarts[0] * 2
	}

	outerNode := linkedRing(data, 0, outerLen, true)
	if outerNode == nil || outerNode.next == outerNode.prev {
		return nil
	}
	if hasHoles {
		outerNode = eliminateHoles(data, holeStarts, outerNode)
	}

	var triangles []int
	earcutLinked(outerNode, &triangles, 0)
	return triangles
}

// linkedRing builds a circular doubly linked list from a ring slice,
// oriented according to clockwise.
func linkedRing(data []float64, start, end int, clockwise bool) *earNode {
	var last *earNode
	if clockwise == (ringArea(data, start, end) > 0) {
		for i := start; i < end; i += 2 {
			last = insertNode(i/2, data[i], data[i+1], last)
		}
	} else {
		for i := end - 2; i >= start; i -= 2 {
			last = insertNode(i/2, data[i], data[i+1], last)
		}
	}
	if last != nil && nodesEqual(last, last.next) {
		removeNode(last)
		last = last.next
	}
	return last
}

func ringArea(data []float64, start, end int) float64 {
	sum := 0.0
	j := end - 2
	for i := start; i < end; i += 2 {
		sum += (data[j] - data[i]) * (data[i+1] + data[j+1])
		j = i
	}
	return sum
}

func insertNode(i int, x, y float64, last *earNode) *earNode {
	p := &earNode{i: i, x: x, y: y}
	if last == nil {
		p.prev = p
		p.next = p
	} else {
		p.next = last.next
		p.prev = last
		last.next.prev = p
		last.next = p
	}
	return p
}

func removeNode(p *earNode) {
	p.next.prev = p.prev
	p.prev.next = p.next
}

// filterPoints removes collinear and duplicate points.
func filterPoints(start, end *earNode) *earNode {
	if start == nil {
		return nil
	}
	if end == nil {
		end = start
	}
	p := start
	for {
		again := false
		if !p.steiner && (nodesEqual(p, p.next) || triArea(p.prev, p, p.next) == 0) {
			removeNode(p)
			p = p.prev
			end = p
			if p == p.next {
				break
			}
			again = true
		} else {
			p = p.next
		}
		if !again && p == end {
			break
		}
	}
	return end
}

func earcutLinked(ear *earNode, triangles *[]int, pass int) {
	if ear == nil {
		return
	}
	stop := ear
	for ear.prev != ear.next {
		prev := ear.prev
		next := ear.next

		if isEar(ear) {
			*triangles = append(*triangles, prev.i, ear.i, next.i)
			removeNode(ear)
			ear = next.next
			stop = next.next
			continue
		}

		ear = next
		if ear == stop {
			switch pass {
			case 0:
				earcutLinked(filterPoints(ear, nil), triangles, 1)
			case 1:
				ear = cureLocalIntersections(filterPoints(ear, nil), triangles)
				earcutLinked(ear, triangles, 2)
			case 2:
				splitEarcut(ear, triangles)
			}
			break
		}
	}
}

func isEar(ear *earNode) bool {
	a, b, c := ear.prev, ear, ear.next
	if triArea(a, b, c) >= 0 {
		return false // reflex corner
	}
	p := ear.next.next
	for p != ear.prev {
		if pointInTriangle(a.x, a.y, b.x, b.y, c.x, c.y, p.x, p.y) &&
			triArea(p.prev, p, p.next) >= 0 {
			return false
		}
		p = p.next
	}
	return true
}

// cureLocalIntersections fixes cases where adjacent edges intersect.
func cureLocalIntersections(start *earNode, triangles *[]int) *earNode {
	p := start
	for {
		a, b := p.prev, p.next.next
		if !nodesEqual(a, b) && segsIntersect(a, p, p.next, b) &&
			locallyInside(a, b) && locallyInside(b, a) {
			*triangles = append(*triangles, a.i, p.i, b.i)
			removeNode(p)
			removeNode(p.next)
			p = b
			start = b
		}
		p = p.next
		if p == start {
			break
		}
	}
	return filterPoints(p, nil)
}

// splitEarcut cuts the remaining polygon along a valid diagonal and
// triangulates the halves independently.
func splitEarcut(start *earNode, triangles *[]int) {
	a := start
	for {
		b := a.next.next
		for b != a.prev {
			if a.i != b.i && isValidDiagonal(a, b) {
				c := splitPolygon(a, b)
				a = filterPoints(a, a.next)
				c = filterPoints(c, c.next)
				earcutLinked(a, triangles, 0)
				earcutLinked(c, triangles, 0)
				return
			}
			b = b.next
		}
		a = a.next
		if a == start {
			break
		}
	}
}

func eliminateHoles(data []float64, holeStarts []int, outerNode *earNode) *earNode {
	var queue []*earNode
	for i, start := range holeStarts {
		end := len(data)
		if i < len(holeStarts)-1 {
			end = holeStarts[i+1] * 2
		}
		list := linkedRing(data, start*2, end, false)
		if list == nil {
			continue
		}
		if list == list.next {
			list.steiner = true
		}
		queue = append(queue, leftmost(list))
	}
	// Process holes left to right.
	for i := 1; i < len(queue); i++ {
		for j := i; j > 0 && compareX(queue[j], queue[j-1]) < 0; j-- {
			queue[j], queue[j-1] = queue[j-1], queue[j]
		}
	}
	for _, hole := range queue {
		outerNode = eliminateHole(hole, outerNode)
	}
	return outerNode
}

func compareX(a, b *earNode) float64 {
	return a.x - b.x
}

func eliminateHole(hole, outerNode *earNode) *earNode {
	bridge := findHoleBridge(hole, outerNode)
	if bridge == nil {
		return outerNode
	}
	bridgeReverse := splitPolygon(bridge, hole)
	filterPoints(bridgeReverse, bridgeReverse.next)
	return filterPoints(bridge, bridge.next)
}

// findHoleBridge finds the outer-ring vertex a bridge to the hole's
// leftmost vertex can be drawn to (David Eberly's visibility walk).
func findHoleBridge(hole, outerNode *earNode) *earNode {
	p := outerNode
	hx, hy := hole.x, hole.y
	qx := math.Inf(-1)
	var m *earNode

	for {
		if hy <= p.y && hy >= p.next.y && p.next.y != p.y {
			x := p.x + (hy-p.y)*(p.next.x-p.x)/(p.next.y-p.y)
			if x <= hx && x > qx {
				qx = x
				m = p
				if p.x >= p.next.x {
					m = p.next
				}
				if x == hx {
					return m
				}
			}
		}
		p = p.next
		if p == outerNode {
			break
		}
	}
	if m == nil {
		return nil
	}

	stop := m
	mx, my := m.x, m.y
	tanMin := math.Inf(1)
	p = m
	for {
		inTri := false
		if hy < my {
			inTri = pointInTriangle(hx, hy, mx, my, qx, hy, p.x, p.y)
		} else {
			inTri = pointInTriangle(qx, hy, mx, my, hx, hy, p.x, p.y)
		}
		if hx >= p.x && p.x >= mx && hx != p.x && inTri {
			tan := math.Abs(hy-p.y) / (hx - p.x)
			if locallyInside(p, hole) &&
				(tan < tanMin || (tan == tanMin && (p.x > m.x || (p.x == m.x && sectorContainsSector(m, p))))) {
				m = p
				tanMin = tan
			}
		}
		p = p.next
		if p == stop {
			break
		}
	}
	return m
}

func sectorContainsSector(m, p *earNode) bool {
	return triArea(m.prev, m, p.prev) < 0 && triArea(p.next, m, m.next) < 0
}

// splitPolygon links two polygon vertices with a bridge, splitting the
// ring into two; returns the new node on the second ring.
func splitPolygon(a, b *earNode) *earNode {
	a2 := &earNode{i: a.i, x: a.x, y: a.y}
	b2 := &earNode{i: b.i, x: b.x, y: b.y}
	an := a.next
	bp := b.prev

	a.next = b
	b.prev = a

	a2.next = an
	an.prev = a2

	b2.next = a2
	a2.prev = b2

	bp.next = b2
	b2.prev = bp

	return b2
}

func isValidDiagonal(a, b *earNode) bool {
	if a.next.i == b.i || a.prev.i == b.i || intersectsPolygon(a, b) {
		return false
	}
	if locallyInside(a, b) && locallyInside(b, a) && middleInside(a, b) &&
		(triArea(a.prev, a, b.prev) != 0 || triArea(a, b.prev, b) != 0) {
		return true
	}
	return nodesEqual(a, b) && triArea(a.prev, a, a.next) > 0 && triArea(b.prev, b, b.next) > 0
}

func triArea(p, q, r *earNode) float64 {
	return (q.y-p.y)*(r.x-q.x) - (q.x-p.x)*(r.y-q.y)
}

func nodesEqual(a, b *earNode) bool {
	return a.x == b.x && a.y == b.y
}

func segsIntersect(p1, q1, p2, q2 *earNode) bool {
	o1 := areaSign(triArea(p1, q1, p2))
	o2 := areaSign(triArea(p1, q1, q2))
	o3 := areaSign(triArea(p2, q2, p1))
	o4 := areaSign(triArea(p2, q2, q1))

	if o1 != o2 && o3 != o4 {
		return true
	}
	if o1 == 0 && onSegment(p1, p2, q1) {
		return true
	}
	if o2 == 0 && onSegment(p1, q2, q1) {
		return true
	}
	if o3 == 0 && onSegment(p2, p1, q2) {
		return true
	}
	if o4 == 0 && onSegment(p2, q1, q2) {
		return true
	}
	return false
}

func onSegment(p, q, r *earNode) bool {
	return q.x <= math.Max(p.x, r.x) && q.x >= math.Min(p.x, r.x) &&
		q.y <= math.Max(p.y, r.y) && q.y >= math.Min(p.y, r.y)
}

func areaSign(v float64) int {
	if v > 0 {
		return 1
	}
	if v < 0 {
		return -1
	}
	return 0
}

func intersectsPolygon(a, b *earNode) bool {
	p := a
	for {
		if p.i != a.i && p.next.i != a.i && p.i != b.i && p.next.i != b.i &&
			segsIntersect(p, p.next, a, b) {
			return true
		}
		p = p.next
		if p == a {
			break
		}
	}
	return false
}

func locallyInside(a, b *earNode) bool {
	if triArea(a.prev, a, a.next) < 0 {
		return triArea(a, b, a.next) >= 0 && triArea(a, a.prev, b) >= 0
	}
	return triArea(a, b, a.prev) < 0 || triArea(a, a.next, b) < 0
}

func middleInside(a, b *earNode) bool {
	p := a
	inside := false
	px := (a.x + b.x) / 2
	py := (a.y + b.y) / 2
	for {
		if ((p.y > py) != (p.next.y > py)) && p.next.y != p.y &&
			(px < (p.next.x-p.x)*(py-p.y)/(p.next.y-p.y)+p.x) {
			inside = !inside
		}
		p = p.next
		if p == a {
			break
		}
	}
	return inside
}

func pointInTriangle(ax, ay, bx, by, cx, cy, px, py float64) bool {
	return (cx-px)*(ay-py) >= (ax-px)*(cy-py) &&
		(ax-px)*(by-py) >= (bx-px)*(ay-py) &&
		(bx-px)*(cy-py) >= (cx-px)*(by-py)
}

func leftmost(start *earNode) *earNode {
	p := start
	best := start
	for {
		if p.x < best.x || (p.x == best.x && p.y < best.y) {
			best = p
		}
		p = p.next
		if p == start {
			break
		}
	}
	return best
}
