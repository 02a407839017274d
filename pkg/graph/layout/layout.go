// Package layout places knowledge graph nodes with a force-directed simulation:
// spring links, many-body repulsion, centering and collision, cooled over a fixed
// number of ticks.
package layout

import (
	"math"
	"math/rand/v2"
)

type Node struct {
	ID uint
	// X and Y are the starting position; nil places the node on the phyllotaxis spiral.
	X, Y *float64
	// Pinned nodes keep their starting position.
	Pinned bool
}

type Link struct {
	Source, Target uint
}

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Options struct {
	Width         float64
	Height        float64
	Ticks         int
	LinkDistance  float64
	Charge        float64
	CollideRadius float64
	VelocityDecay float64
	AlphaMin      float64
}

func DefaultOptions() Options {
	return Options{
		Width:         800,
		Height:        600,
		Ticks:         300,
		LinkDistance:  100,
		Charge:        -300,
		CollideRadius: 30,
		VelocityDecay: 0.4,
		AlphaMin:      0.001,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.Width <= 0 {
		o.Width = d.Width
	}
	if o.Height <= 0 {
		o.Height = d.Height
	}
	if o.Ticks <= 0 {
		o.Ticks = d.Ticks
	}
	if o.LinkDistance <= 0 {
		o.LinkDistance = d.LinkDistance
	}
	if o.Charge == 0 {
		o.Charge = d.Charge
	}
	if o.CollideRadius <= 0 {
		o.CollideRadius = d.CollideRadius
	}
	if o.VelocityDecay <= 0 || o.VelocityDecay >= 1 {
		o.VelocityDecay = d.VelocityDecay
	}
	if o.AlphaMin <= 0 || o.AlphaMin >= 1 {
		o.AlphaMin = d.AlphaMin
	}
	return o
}

type body struct {
	x, y, vx, vy float64
	fixed        bool
}

type spring struct {
	s, t     int
	strength float64
	bias     float64
}

const (
	initialRadius = 10.0
	jiggleScale   = 1e-6
)

var initialAngle = math.Pi * (3 - math.Sqrt(5))

// Run simulates the graph and returns the final position of every node. The
// result depends only on the inputs.
func Run(nodes []Node, links []Link, opt Options) map[uint]Point {
	opt = opt.withDefaults()
	out := make(map[uint]Point, len(nodes))
	if len(nodes) == 0 {
		return out
	}

	index := make(map[uint]int, len(nodes))
	bodies := make([]body, len(nodes))
	for i, n := range nodes {
		index[n.ID] = i
		b := &bodies[i]
		if n.X != nil && n.Y != nil {
			b.x, b.y = *n.X, *n.Y
			b.fixed = n.Pinned
		} else {
			r := initialRadius * math.Sqrt(0.5+float64(i))
			a := float64(i) * initialAngle
			b.x, b.y = r*math.Cos(a), r*math.Sin(a)
		}
	}

	springs := buildSprings(links, index)
	rng := rand.New(rand.NewPCG(1, 2))
	jiggle := func() float64 { return (rng.Float64() - 0.5) * jiggleScale }

	alpha := 1.0
	alphaDecay := 1 - math.Pow(opt.AlphaMin, 1/float64(opt.Ticks))
	for tick := 0; tick < opt.Ticks; tick++ {
		alpha += (0 - alpha) * alphaDecay

		applyLinks(bodies, springs, opt.LinkDistance, alpha, jiggle)
		applyCharge(bodies, opt.Charge, alpha, jiggle)
		applyCenter(bodies, opt.Width/2, opt.Height/2)
		applyCollide(bodies, opt.CollideRadius, jiggle)

		for i := range bodies {
			b := &bodies[i]
			if b.fixed {
				b.vx, b.vy = 0, 0
				continue
			}
			b.vx *= 1 - opt.VelocityDecay
			b.vy *= 1 - opt.VelocityDecay
			b.x += b.vx
			b.y += b.vy
		}
	}

	for i, n := range nodes {
		out[n.ID] = Point{X: bodies[i].x, Y: bodies[i].y}
	}
	return out
}

// buildSprings drops self-loops and links to unknown nodes. Strength and bias
// follow node degree.
func buildSprings(links []Link, index map[uint]int) []spring {
	degree := map[int]int{}
	kept := make([][2]int, 0, len(links))
	for _, l := range links {
		s, ok1 := index[l.Source]
		t, ok2 := index[l.Target]
		if !ok1 || !ok2 || s == t {
			continue
		}
		degree[s]++
		degree[t]++
		kept = append(kept, [2]int{s, t})
	}
	out := make([]spring, len(kept))
	for i, k := range kept {
		ds, dt := float64(degree[k[0]]), float64(degree[k[1]])
		out[i] = spring{s: k[0], t: k[1], strength: 1 / math.Min(ds, dt), bias: ds / (ds + dt)}
	}
	return out
}

func applyLinks(bodies []body, springs []spring, distance, alpha float64, jiggle func() float64) {
	for _, sp := range springs {
		s, t := &bodies[sp.s], &bodies[sp.t]
		x := t.x + t.vx - s.x - s.vx
		y := t.y + t.vy - s.y - s.vy
		if x == 0 {
			x = jiggle()
		}
		if y == 0 {
			y = jiggle()
		}
		l := math.Hypot(x, y)
		l = (l - distance) / l * alpha * sp.strength
		x, y = x*l, y*l
		t.vx -= x * sp.bias
		t.vy -= y * sp.bias
		s.vx += x * (1 - sp.bias)
		s.vy += y * (1 - sp.bias)
	}
}

// applyCharge is exact pairwise repulsion.
func applyCharge(bodies []body, strength, alpha float64, jiggle func() float64) {
	for i := range bodies {
		for j := range bodies {
			if i == j {
				continue
			}
			x := bodies[j].x - bodies[i].x
			y := bodies[j].y - bodies[i].y
			if x == 0 {
				x = jiggle()
			}
			if y == 0 {
				y = jiggle()
			}
			l := x*x + y*y
			if l < 1 {
				l = math.Sqrt(l)
			}
			w := strength * alpha / l
			bodies[i].vx += x * w
			bodies[i].vy += y * w
		}
	}
}

func applyCenter(bodies []body, cx, cy float64) {
	var sx, sy float64
	for _, b := range bodies {
		sx += b.x
		sy += b.y
	}
	n := float64(len(bodies))
	dx, dy := sx/n-cx, sy/n-cy
	for i := range bodies {
		if bodies[i].fixed {
			continue
		}
		bodies[i].x -= dx
		bodies[i].y -= dy
	}
}

func applyCollide(bodies []body, radius float64, jiggle func() float64) {
	r := 2 * radius
	for i := range bodies {
		xi := bodies[i].x + bodies[i].vx
		yi := bodies[i].y + bodies[i].vy
		for j := i + 1; j < len(bodies); j++ {
			x := xi - bodies[j].x - bodies[j].vx
			y := yi - bodies[j].y - bodies[j].vy
			l := x*x + y*y
			if l >= r*r {
				continue
			}
			if x == 0 {
				x = jiggle()
				l += x * x
			}
			if y == 0 {
				y = jiggle()
				l += y * y
			}
			l = math.Sqrt(l)
			l = (r - l) / l
			x, y = x*l*0.5, y*l*0.5
			bodies[i].vx += x
			bodies[i].vy += y
			bodies[j].vx -= x
			bodies[j].vy -= y
		}
	}
}
