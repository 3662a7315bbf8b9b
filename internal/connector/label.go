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

const curveSamples = 32

// pointAlong returns the point at fraction t of the drawn path length.
func pointAlong(abs []domain.PathPoint, mode domain.Mode, t float64) vector.Vec2 {
	if len(abs) == 0 {
		return vector.Vec2{}
	}
	if len(abs) == 1 {
		return abs[0].Vec()
	}
	t = math.Max(0, math.Min(1, t))
	lengths := make([]float64, len(abs)-1)
	total := 0.0
	for i := range lengths {
		if mode == domain.ModeCurve {
			lengths[i] = segmentCubic(abs[i], abs[i+1]).Length(curveSamples)
		} else {
			lengths[i] = abs[i].Vec().Dist(abs[i+1].Vec())
		}
		total += lengths[i]
	}
	if total == 0 {
		return abs[0].Vec()
	}
	want := t * total
	for i, l := range lengths {
		if want > l && i < len(lengths)-1 {
			want -= l
			continue
		}
		local := 0.0
		if l > 0 {
			local = math.Min(want/l, 1)
		}
		if mode == domain.ModeCurve {
			return segmentCubic(abs[i], abs[i+1]).At(local)
		}
		return abs[i].Vec().Lerp(abs[i+1].Vec(), local)
	}
	return abs[len(abs)-1].Vec()
}

// Outline converts a connector into a drawable path in world space.
func Outline(c *domain.Connector) vector.Path {
	var p vector.Path
	abs := c.AbsolutePath()
	if len(abs) == 0 {
		return p
	}
	p.MoveTo(abs[0].X, abs[0].Y)
	for i := 1; i < len(abs); i++ {
		if c.Mode == domain.ModeCurve {
			cb := segmentCubic(abs[i-1], abs[i])
			p.CubicTo(cb.P1.X, cb.P1.Y, cb.P2.X, cb.P2.Y, cb.P3.X, cb.P3.Y)
			continue
		}
		p.LineTo(abs[i].X, abs[i].Y)
	}
	return p
}
