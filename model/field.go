package model

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var ErrInvalidGrid = errors.New("invalid grid")

// Grid 轴向 z 与径向 r 两个坐标轴，网格节点 (i, j) 对应 (Z[i], R[j])
type Grid struct {
	Z []float64 `json:"z"`
	R []float64 `json:"r"`
}

// NewGrid 校验坐标轴：非空、严格递增、r >= 0
func NewGrid(z, r []float64) (*Grid, error) {
	if len(z) == 0 || len(r) == 0 {
		return nil, fmt.Errorf("%w: empty axis (z=%d, r=%d)", ErrInvalidGrid, len(z), len(r))
	}
	if err := checkAxis("z", z); err != nil {
		return nil, err
	}
	if err := checkAxis("r", r); err != nil {
		return nil, err
	}
	if r[0] < 0 {
		return nil, fmt.Errorf("%w: negative radius %g", ErrInvalidGrid, r[0])
	}
	return &Grid{Z: z, R: r}, nil
}

func checkAxis(name string, axis []float64) error {
	for i, v := range axis {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s[%d] is not finite", ErrInvalidGrid, name, i)
		}
		if i > 0 && v <= axis[i-1] {
			return fmt.Errorf("%w: %s not strictly increasing at %d", ErrInvalidGrid, name, i)
		}
	}
	return nil
}

// Linspace 与 numpy.linspace 一致，包含端点
func Linspace(start, end float64, n int) []float64 {
	if n <= 0 {
		return nil
	}
	dst := make([]float64, n)
	if n == 1 {
		dst[0] = start
		return dst
	}
	return floats.Span(dst, start, end)
}

// Shape 返回 (len(Z), len(R))
func (g *Grid) Shape() (int, int) {
	return len(g.Z), len(g.R)
}

// 网格边界
func (g *Grid) ZBounds() (float64, float64) {
	return g.Z[0], g.Z[len(g.Z)-1]
}

func (g *Grid) RBounds() (float64, float64) {
	return g.R[0], g.R[len(g.R)-1]
}

// CurrentLoop 单匝圆电流环，位置 (Z, R)，单位 m，电流单位 A
type CurrentLoop struct {
	Current float64 `json:"current" yaml:"current"`
	Z       float64 `json:"z" yaml:"z"`
	R       float64 `json:"r" yaml:"r"`
}

// Coil 一个线圈分解后的电流环列表
type Coil struct {
	Name  string
	Loops []CurrentLoop
}

// FieldMap 行对应 z，列对应 r
type FieldMap struct {
	Br *mat.Dense
	Bz *mat.Dense
}

func NewFieldMap(g *Grid) *FieldMap {
	nz, nr := g.Shape()
	return &FieldMap{
		Br: mat.NewDense(nz, nr, nil),
		Bz: mat.NewDense(nz, nr, nil),
	}
}

func (fm *FieldMap) Shape() (int, int) {
	return fm.Bz.Dims()
}

func (fm *FieldMap) At(i, j int) (br, bz float64) {
	return fm.Br.At(i, j), fm.Bz.At(i, j)
}

// Add 逐元素叠加
func (fm *FieldMap) Add(other *FieldMap) {
	fm.Br.Add(fm.Br, other.Br)
	fm.Bz.Add(fm.Bz, other.Bz)
}

func (fm *FieldMap) Clone() *FieldMap {
	return &FieldMap{
		Br: mat.DenseCopyOf(fm.Br),
		Bz: mat.DenseCopyOf(fm.Bz),
	}
}

// AxialProfile 返回 r 列 j 上的 Bz
func (fm *FieldMap) AxialProfile(j int) []float64 {
	return mat.Col(nil, j, fm.Bz)
}

// MagnetFields 线圈名 -> 磁场，Total 为所有线圈之和
type MagnetFields map[string]*FieldMap

// Names 排序后的线圈名，不含 total
func (mf MagnetFields) Names() []string {
	names := make([]string, 0, len(mf))
	for name := range mf {
		if name == Total {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Trace 一条磁力线
type Trace struct {
	Z []float64 `json:"z"`
	R []float64 `json:"r"`
}

func (t Trace) Len() int {
	return len(t.Z)
}
