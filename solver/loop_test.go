package solver

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coilfield/model"
)

func newTestGrid(t *testing.T, z, r []float64) *model.Grid {
	t.Helper()
	g, err := model.NewGrid(z, r)
	require.NoError(t, err)
	return g
}

// assertClose 相对误差比较，允许极小值的绝对误差
func assertClose(t *testing.T, want, got, rel float64, msgAndArgs ...interface{}) {
	t.Helper()
	tol := rel*math.Max(math.Abs(want), math.Abs(got)) + 1e-20
	assert.InDelta(t, want, got, tol, msgAndArgs...)
}

// 数值 Biot-Savart 积分，作为参考值
func biotSavart(current, radius, z, r float64, n int) (br, bz float64) {
	dphi := 2 * math.Pi / float64(n)
	for i := 0; i < n; i++ {
		phi := float64(i) * dphi
		c := math.Cos(phi)
		d2 := r*r + radius*radius - 2*r*radius*c + z*z
		d3 := d2 * math.Sqrt(d2)
		br += radius * z * c / d3
		bz += (radius*radius - radius*r*c) / d3
	}
	f := model.Mu0 * current / (4 * math.Pi) * dphi
	return br * f, bz * f
}

func TestSolveLoopCenter(t *testing.T) {
	g := newTestGrid(t, model.Linspace(-1, 1, 200), model.Linspace(0, 0.5, 100))
	loop := model.CurrentLoop{Current: 10, Z: 0, R: 0.3}
	fm, err := SolveLoop(loop, g)
	require.NoError(t, err)

	nz, nr := fm.Shape()
	assert.Equal(t, 200, nz)
	assert.Equal(t, 100, nr)

	// 线圈中心 B = mu0 I / (2R)
	want := model.Mu0 * 10 / (2 * 0.3)
	assert.InEpsilon(t, want, BzAxial(10, 0.3, 0), 1e-12)

	// 200 个点的网格不含 z = 0，取最近的节点与解析解比较
	i := 99
	_, bz := fm.At(i, 0)
	assert.InEpsilon(t, BzAxial(10, 0.3, g.Z[i]), bz, 1e-12)
	assert.InEpsilon(t, want, bz, 1e-3)
}

func TestSolveLoopCenterExact(t *testing.T) {
	g := newTestGrid(t, []float64{-0.5, 0, 0.5}, []float64{0, 0.1})
	fm, err := SolveLoop(model.CurrentLoop{Current: 10, Z: 0, R: 0.3}, g)
	require.NoError(t, err)
	_, bz := fm.At(1, 0)
	assert.InEpsilon(t, 2*math.Pi*1e-6/0.3, bz, 1e-12)
}

func TestSolveLoopAxis(t *testing.T) {
	g := newTestGrid(t, model.Linspace(-1, 2, 301), model.Linspace(0, 0.5, 51))
	loop := model.CurrentLoop{Current: 191, Z: 0.4, R: 0.35}
	fm, err := SolveLoop(loop, g)
	require.NoError(t, err)

	for i, z := range g.Z {
		br, bz := fm.At(i, 0)
		assert.Equal(t, 0.0, br, "z=%g", z)
		assert.InEpsilon(t, BzAxial(loop.Current, loop.R, z-loop.Z), bz, 1e-12, "z=%g", z)
	}
}

// 一般公式在 r -> 0 时应连续趋于轴线解析解
func TestPointFieldApproachesAxis(t *testing.T) {
	for _, z := range []float64{-0.7, -0.2, 0.05, 0.3, 1.1} {
		br, bz := PointField(5, 0.3, z, 1e-7)
		assertClose(t, BzAxial(5, 0.3, z), bz, 1e-6, "z=%g", z)
		assert.InDelta(t, 0, br, 1e-9, "z=%g", z)
	}
}

func TestPointFieldMatchesBiotSavart(t *testing.T) {
	points := [][2]float64{{0.1, 0.2}, {-0.4, 0.1}, {0.0, 0.15}, {0.25, 0.45}, {1.2, 0.6}, {-0.05, 0.31}}
	for _, p := range points {
		z, r := p[0], p[1]
		br, bz := PointField(7, 0.3, z, r)
		wbr, wbz := biotSavart(7, 0.3, z, r, 4000)
		assertClose(t, wbz, bz, 1e-8, "bz z=%g r=%g", z, r)
		assertClose(t, wbr, br, 1e-8, "br z=%g r=%g", z, r)
	}
}

// 关于线圈平面 Bz 为偶函数，Br 为奇函数
func TestSolveLoopSymmetry(t *testing.T) {
	const z0 = 0.6
	offsets := model.Linspace(0.01, 0.8, 40)
	z := make([]float64, 0, 2*len(offsets))
	for i := len(offsets) - 1; i >= 0; i-- {
		z = append(z, z0-offsets[i])
	}
	for _, o := range offsets {
		z = append(z, z0+o)
	}
	g := newTestGrid(t, z, model.Linspace(0, 0.5, 26))
	fm, err := SolveLoop(model.CurrentLoop{Current: 3, Z: z0, R: 0.25}, g)
	require.NoError(t, err)

	n := len(z)
	for i := 0; i < n/2; i++ {
		for j := range g.R {
			brLow, bzLow := fm.At(i, j)
			brHigh, bzHigh := fm.At(n-1-i, j)
			assertClose(t, bzLow, bzHigh, 1e-9, "bz i=%d j=%d", i, j)
			assertClose(t, -brLow, brHigh, 1e-9, "br i=%d j=%d", i, j)
		}
	}
}

func TestSolveLoopLinearInCurrent(t *testing.T) {
	g := newTestGrid(t, model.Linspace(-1, 1, 41), model.Linspace(0, 0.5, 21))
	one, err := SolveLoop(model.CurrentLoop{Current: 1, Z: 0.1, R: 0.33}, g)
	require.NoError(t, err)
	neg, err := SolveLoop(model.CurrentLoop{Current: -2.5, Z: 0.1, R: 0.33}, g)
	require.NoError(t, err)

	for i := range g.Z {
		for j := range g.R {
			br1, bz1 := one.At(i, j)
			br2, bz2 := neg.At(i, j)
			assertClose(t, -2.5*bz1, bz2, 1e-12)
			assertClose(t, -2.5*br1, br2, 1e-12)
		}
	}
}

// 观测点恰在导线上时不报错，结果为非有限值
func TestSolveLoopOnWire(t *testing.T) {
	g := newTestGrid(t, []float64{-0.1, 0, 0.1}, []float64{0, 0.3, 0.4})
	fm, err := SolveLoop(model.CurrentLoop{Current: 1, Z: 0, R: 0.3}, g)
	require.NoError(t, err)
	_, bz := fm.At(1, 1)
	assert.True(t, math.IsNaN(bz) || math.IsInf(bz, 0))
	_, bz = fm.At(0, 2)
	assert.False(t, math.IsNaN(bz) || math.IsInf(bz, 0))
}

func TestBzAxialDegenerate(t *testing.T) {
	assert.True(t, math.IsNaN(BzAxial(1, 0, 0)))
	assert.Equal(t, 0.0, BzAxial(1, 0, 0.2))
}

func TestSolveLoopRejects(t *testing.T) {
	g := newTestGrid(t, []float64{0, 1}, []float64{0, 1})
	for _, loop := range []model.CurrentLoop{
		{Current: 1, Z: 0, R: 0},
		{Current: 1, Z: 0, R: -0.2},
		{Current: math.NaN(), Z: 0, R: 0.2},
		{Current: 1, Z: math.Inf(1), R: 0.2},
	} {
		_, err := SolveLoop(loop, g)
		assert.ErrorIs(t, err, ErrInvalidLoop, "%+v", loop)
	}

	_, err := SolveLoop(model.CurrentLoop{Current: 1, R: 0.2}, &model.Grid{Z: []float64{0}, R: []float64{-1}})
	assert.ErrorIs(t, err, model.ErrInvalidGrid)
	_, err = SolveLoop(model.CurrentLoop{Current: 1, R: 0.2}, nil)
	assert.ErrorIs(t, err, model.ErrInvalidGrid)
}

func TestGauss(t *testing.T) {
	assert.InDelta(t, 1.0, Gauss(1e-4), 1e-15)
}
