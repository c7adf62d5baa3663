package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

/////////////////////////////////////////////////////////////////////////
////// Minimal feed forward building blocks shared by MLP and TeamEmbed
/////////////////////////////////////////////////////////////////////////

// param is a trainable tensor with its gradient and Adam moments
type param struct {
	w, g, m, v []float64
}

func newParam(n int) *param {
	return &param{
		w: make([]float64, n),
		g: make([]float64, n),
		m: make([]float64, n),
		v: make([]float64, n),
	}
}

// adam applies the Adam update with bias correction and zeroes gradients afterwards
type adam struct {
	lr, beta1, beta2, eps float64
	t                     int
}

func newAdam(lr float64) *adam {
	return &adam{lr: lr, beta1: 0.9, beta2: 0.999, eps: 1e-7}
}

func (a *adam) step(params []*param) {
	a.t++
	c1 := 1 - math.Pow(a.beta1, float64(a.t))
	c2 := 1 - math.Pow(a.beta2, float64(a.t))
	for _, p := range params {
		for i, g := range p.g {
			p.m[i] = a.beta1*p.m[i] + (1-a.beta1)*g
			p.v[i] = a.beta2*p.v[i] + (1-a.beta2)*g*g
			p.w[i] -= a.lr * (p.m[i] / c1) / (math.Sqrt(p.v[i]/c2) + a.eps)
			p.g[i] = 0
		}
	}
}

type layer interface {
	forward(x [][]float64, train bool) [][]float64
	backward(grad [][]float64) [][]float64
	params() []*param
}

// dense is a fully connected layer, weights stored one row per output unit
type dense struct {
	in, out int
	w, b    *param
	x       [][]float64
}

// newDense initialises weights glorot uniform and biases at zero
func newDense(in, out int, rng *rand.Rand) *dense {
	d := &dense{in: in, out: out, w: newParam(in * out), b: newParam(out)}
	limit := math.Sqrt(6 / float64(in+out))
	for i := range d.w.w {
		d.w.w[i] = (rng.Float64()*2 - 1) * limit
	}
	return d
}

func (d *dense) row(j int, s []float64) []float64 {
	return s[j*d.in : (j+1)*d.in]
}

func (d *dense) forward(x [][]float64, _ bool) [][]float64 {
	d.x = x
	y := make([][]float64, len(x))
	for n, in := range x {
		o := make([]float64, d.out)
		for j := range o {
			o[j] = d.b.w[j] + floats.Dot(in, d.row(j, d.w.w))
		}
		y[n] = o
	}
	return y
}

func (d *dense) backward(grad [][]float64) [][]float64 {
	gx := make([][]float64, len(grad))
	for n, g := range grad {
		gi := make([]float64, d.in)
		for j, gj := range g {
			if gj == 0 {
				continue
			}
			floats.AddScaled(d.row(j, d.w.g), gj, d.x[n])
			d.b.g[j] += gj
			floats.AddScaled(gi, gj, d.row(j, d.w.w))
		}
		gx[n] = gi
	}
	return gx
}

func (d *dense) params() []*param { return []*param{d.w, d.b} }

type relu struct {
	y [][]float64
}

func (r *relu) forward(x [][]float64, _ bool) [][]float64 {
	r.y = make([][]float64, len(x))
	for n, in := range x {
		o := make([]float64, len(in))
		for i, v := range in {
			if v > 0 {
				o[i] = v
			}
		}
		r.y[n] = o
	}
	return r.y
}

func (r *relu) backward(grad [][]float64) [][]float64 {
	gx := make([][]float64, len(grad))
	for n, g := range grad {
		o := make([]float64, len(g))
		for i, v := range g {
			if r.y[n][i] > 0 {
				o[i] = v
			}
		}
		gx[n] = o
	}
	return gx
}

func (r *relu) params() []*param { return nil }

// dropout zeroes units with probability rate during training and rescales the survivors
type dropout struct {
	rate float64
	rng  *rand.Rand
	mask [][]float64
}

func (d *dropout) forward(x [][]float64, train bool) [][]float64 {
	if !train || d.rate <= 0 {
		d.mask = nil
		return x
	}
	keep := 1 - d.rate
	d.mask = make([][]float64, len(x))
	y := make([][]float64, len(x))
	for n, in := range x {
		m := make([]float64, len(in))
		o := make([]float64, len(in))
		for i, v := range in {
			if d.rng.Float64() < keep {
				m[i] = 1 / keep
				o[i] = v * m[i]
			}
		}
		d.mask[n] = m
		y[n] = o
	}
	return y
}

func (d *dropout) backward(grad [][]float64) [][]float64 {
	if d.mask == nil {
		return grad
	}
	gx := make([][]float64, len(grad))
	for n, g := range grad {
		o := make([]float64, len(g))
		floats.MulTo(o, g, d.mask[n])
		gx[n] = o
	}
	return gx
}

func (d *dropout) params() []*param { return nil }

type sequential []layer

func (s sequential) forward(x [][]float64, train bool) [][]float64 {
	for _, l := range s {
		x = l.forward(x, train)
	}
	return x
}

func (s sequential) backward(grad [][]float64) [][]float64 {
	for i := len(s) - 1; i >= 0; i-- {
		grad = s[i].backward(grad)
	}
	return grad
}

func (s sequential) params() []*param {
	var ps []*param
	for _, l := range s {
		ps = append(ps, l.params()...)
	}
	return ps
}

// embedding maps integer ids onto trainable vectors
type embedding struct {
	dim   int
	table *param
}

func newEmbedding(size, dim int, rng *rand.Rand) *embedding {
	e := &embedding{dim: dim, table: newParam(size * dim)}
	for i := range e.table.w {
		e.table.w[i] = (rng.Float64()*2 - 1) * 0.05
	}
	return e
}

func (e *embedding) lookup(ids []int) [][]float64 {
	out := make([][]float64, len(ids))
	for n, id := range ids {
		out[n] = append([]float64(nil), e.table.w[id*e.dim:(id+1)*e.dim]...)
	}
	return out
}

func (e *embedding) accumulate(ids []int, grad [][]float64) {
	for n, id := range ids {
		floats.Add(e.table.g[id*e.dim:(id+1)*e.dim], grad[n])
	}
}

// softmax converts logits to probabilities row by row
func softmax(z [][]float64) [][]float64 {
	out := make([][]float64, len(z))
	for n, row := range z {
		m := floats.Max(row)
		p := make([]float64, len(row))
		for i, v := range row {
			p[i] = math.Exp(v - m)
		}
		floats.Scale(1/floats.Sum(p), p)
		out[n] = p
	}
	return out
}

// crossEntropyGrad returns the mean sparse cross entropy of probs and its gradient with
// respect to the logits
func crossEntropyGrad(probs [][]float64, y []int) (float64, [][]float64) {
	n := float64(len(probs))
	var loss float64
	grad := make([][]float64, len(probs))
	for i, p := range probs {
		loss -= math.Log(math.Max(p[y[i]], 1e-15))
		g := make([]float64, len(p))
		for c, pc := range p {
			g[c] = pc / n
		}
		g[y[i]] -= 1 / n
		grad[i] = g
	}
	return loss / n, grad
}

// batches splits a shuffled index range into chunks of size
func batches(rng *rand.Rand, n, size int) [][]int {
	perm := rng.Perm(n)
	var out [][]int
	for start := 0; start < n; start += size {
		end := min(start+size, n)
		out = append(out, perm[start:end])
	}
	return out
}

func gatherRows(X [][]float64, idx []int) [][]float64 {
	out := make([][]float64, len(idx))
	for i, j := range idx {
		out[i] = X[j]
	}
	return out
}

func gatherInts(y []int, idx []int) []int {
	out := make([]int, len(idx))
	for i, j := range idx {
		out[i] = y[j]
	}
	return out
}
