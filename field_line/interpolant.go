package field_line

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"coilfield/model"
)

var (
	ErrGridTooSmall  = errors.New("grid needs at least two nodes per axis")
	ErrShapeMismatch = errors.New("field map does not match grid")
)

// RatioInterpolant 网格上 Br/Bz 的双线性插值，构造后只读，可并发查询
// 网格范围外的查询点按边界截断（取最近的边界值）
type RatioInterpolant struct {
	z, r  []float64
	ratio []float64 // 行主序，行对应 z
}

func NewRatioInterpolant(fm *model.FieldMap, g *model.Grid) (*RatioInterpolant, error) {
	nz, nr := g.Shape()
	if nz < 2 || nr < 2 {
		return nil, fmt.Errorf("%w: got %dx%d", ErrGridTooSmall, nz, nr)
	}
	if fz, fr := fm.Shape(); fz != nz || fr != nr {
		return nil, fmt.Errorf("%w: field %dx%d, grid %dx%d", ErrShapeMismatch, fz, fr, nz, nr)
	}

	ratio := make([]float64, nz*nr)
	for i := 0; i < nz; i++ {
		for j := 0; j < nr; j++ {
			br, bz := fm.At(i, j)
			ratio[i*nr+j] = br / bz
		}
	}
	return &RatioInterpolant{z: g.Z, r: g.R, ratio: ratio}, nil
}

// Eval 返回 (z, r) 处的 dr/dz
func (ip *RatioInterpolant) Eval(z, r float64) float64 {
	z = clamp(z, ip.z[0], ip.z[len(ip.z)-1])
	r = clamp(r, ip.r[0], ip.r[len(ip.r)-1])
	i, tz := locate(ip.z, z)
	j, tr := locate(ip.r, r)

	// 权重为 0 的节点不参与计算，避免相邻节点的 NaN/Inf 污染
	var sum float64
	nr := len(ip.r)
	for _, c := range [4]struct {
		w float64
		k int
	}{
		{(1 - tz) * (1 - tr), i*nr + j},
		{tz * (1 - tr), (i+1)*nr + j},
		{(1 - tz) * tr, i*nr + j + 1},
		{tz * tr, (i+1)*nr + j + 1},
	} {
		if c.w != 0 {
			sum += c.w * ip.ratio[c.k]
		}
	}
	return sum
}

// Bounds 插值区域
func (ip *RatioInterpolant) Bounds() (zLow, zHigh, rLow, rHigh float64) {
	return ip.z[0], ip.z[len(ip.z)-1], ip.r[0], ip.r[len(ip.r)-1]
}

// locate 返回区间下标 i 满足 axis[i] <= x <= axis[i+1]，以及区间内的归一化位置
func locate(axis []float64, x float64) (int, float64) {
	i := sort.SearchFloat64s(axis, x) - 1
	if i < 0 {
		i = 0
	}
	if i > len(axis)-2 {
		i = len(axis) - 2
	}
	return i, (x - axis[i]) / (axis[i+1] - axis[i])
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, x))
}
