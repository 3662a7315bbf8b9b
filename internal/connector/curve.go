/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package connector

import (
	"math"

	"goconnector/internal/domain"
	"goconnector/internal/vector"
)

// segmentCubic returns the Bézier drawn between a and b.
func segmentCubic(a, b domain.PathPoint) vector.Cubic {
	return vector.Cubic{P0: a.Vec(), P1: a.AbsOut(), P2: b.AbsIn(), P3: b.Vec()}
}

// smoothInterior derives the controls of interior point i from the
// directions to its neighbours.
func smoothInterior(path []domain.PathPoint, i int) {
	p := path[i].Vec()
	toBefore := path[i-1].Vec().Sub(p)
	toAfter := path[i+1].Vec().Sub(p)
	dir := toBefore.Normalize().Sub(toAfter.Normalize()).Normalize()
	path[i].In = dir.Scale(toBefore.Len() / 3)
	path[i].Out = dir.Scale(-toAfter.Len() / 3)
	path[i].Tangent = path[i].Out.Normalize()
}

// smoothEnd sets the single control of end point i. Attached ends point
// along their tangent with the neighbour's control length, never shorter
// than minCtl; free ends take half the vector to the neighbour.
func smoothEnd(path []domain.PathPoint, i int, attached bool, minCtl float64) {
	n := len(path)
	first := i == 0
	j := 1
	if !first {
		j = n - 2
	}
	p, q := path[i], path[j]
	toNeighbour := q.Vec().Sub(p.Vec())

	var ctl vector.Vec2
	if attached && !p.Tangent.IsZero() {
		l := toNeighbour.Len() / 3
		if j > 0 && j < n-1 {
			// facing control of the interior neighbour
			l = q.Out.Len()
			if first {
				l = q.In.Len()
			}
		}
		ctl = p.Tangent.Normalize().Scale(math.Max(l, minCtl))
	} else {
		ctl = toNeighbour.Scale(0.5)
	}
	if first {
		path[i].In, path[i].Out = vector.Vec2{}, ctl
	} else {
		path[i].In, path[i].Out = ctl, vector.Vec2{}
	}
}

// smoothAll recomputes every control of the path in place.
func smoothAll(path []domain.PathPoint, srcAttached, dstAttached bool, minCtl float64) {
	n := len(path)
	for i := 1; i < n-1; i++ {
		smoothInterior(path, i)
	}
	smoothEnd(path, 0, srcAttached, minCtl)
	smoothEnd(path, n-1, dstAttached, minCtl)
}

// smoothAt recomputes the controls around index i. The window is the point
// and its direct neighbours; an end is included when its interior
// neighbour is in the window because its control length depends on it.
// Nothing cascades further.
func smoothAt(path []domain.PathPoint, i int, srcAttached, dstAttached bool, minCtl float64) {
	n := len(path)
	lo, hi := max(i-1, 0), min(i+1, n-1)
	for k := max(lo, 1); k <= min(hi, n-2); k++ {
		smoothInterior(path, k)
	}
	if lo <= 1 {
		smoothEnd(path, 0, srcAttached, minCtl)
	}
	if hi >= n-2 {
		smoothEnd(path, n-1, dstAttached, minCtl)
	}
}
