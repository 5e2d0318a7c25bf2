package solver

import (
	"errors"
	"fmt"
	"math"

	"coilfield/elliptic"
	"coilfield/model"
)

var ErrInvalidLoop = errors.New("invalid current loop")

// SolveLoop 计算单匝电流环在整个网格上的 (Br, Bz)，单位 T
func SolveLoop(loop model.CurrentLoop, g *model.Grid) (*model.FieldMap, error) {
	if err := checkGrid(g); err != nil {
		return nil, err
	}
	if err := checkLoop(loop); err != nil {
		return nil, err
	}
	fm := model.NewFieldMap(g)
	addLoop(loop, g, fm.Br.RawMatrix().Data, fm.Bz.RawMatrix().Data)
	return fm, nil
}

// addLoop 将电流环的磁场累加进 br, bz（行主序，行对应 z）
func addLoop(loop model.CurrentLoop, g *model.Grid, br, bz []float64) {
	nr := len(g.R)
	for i, zObs := range g.Z {
		z := zObs - loop.Z
		row := i * nr
		for j, r := range g.R {
			pr, pz := PointField(loop.Current, loop.R, z, r)
			br[row+j] += pr
			bz[row+j] += pz
		}
	}
}

// PointField 单个观测点的磁场
// z 为相对线圈中心的轴向距离，r 为观测点半径（不是相对线圈半径的距离）
func PointField(current, radius, z, r float64) (br, bz float64) {
	// 轴线上：径向场为 0，轴向场用解析解
	if r == 0 {
		return 0, BzAxial(current, radius, z)
	}

	b0 := model.Mu0 * current / (2 * radius)
	a := elliptic.Alpha(r, radius)
	b := elliptic.Beta(z, radius)
	q := elliptic.Q(z, r, radius)
	k := elliptic.Modulus(z, r, radius)
	kk, ee := elliptic.K(k), elliptic.E(k)

	sq := math.Sqrt(q)
	d := q - 4*a

	bz = b0 / math.Pi / sq * (ee*(1-a*a-b*b)/d + kk)
	br = b0 * elliptic.Gamma(z, r) / math.Pi / sq * (ee*(1+a*a+b*b)/d - kk)
	return br, bz
}

// BzAxial 轴线上的轴向场 mu0 I R^2 / (2 (R^2 + z^2)^1.5)
// 半径为 0 且 z = 0 时无定义，返回 NaN
func BzAxial(current, radius, z float64) float64 {
	if radius == 0 {
		if z == 0 {
			return math.NaN()
		}
		return 0
	}
	r2 := radius * radius
	return model.Mu0 * current * r2 / 2 / math.Pow(r2+z*z, 1.5)
}

// Gauss T -> G
func Gauss(t float64) float64 {
	return t * model.GaussPerTesla
}

func checkLoop(loop model.CurrentLoop) error {
	for _, v := range []float64{loop.Current, loop.Z, loop.R} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: non-finite value in %+v", ErrInvalidLoop, loop)
		}
	}
	if loop.R <= 0 {
		return fmt.Errorf("%w: radius %g must be positive", ErrInvalidLoop, loop.R)
	}
	return nil
}

// checkGrid 调用方可能绕过 NewGrid 直接构造 Grid
func checkGrid(g *model.Grid) error {
	if g == nil {
		return fmt.Errorf("%w: nil grid", model.ErrInvalidGrid)
	}
	_, err := model.NewGrid(g.Z, g.R)
	return err
}
