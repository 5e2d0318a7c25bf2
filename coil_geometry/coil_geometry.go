package coil_geometry

import (
	"errors"
	"fmt"
	"math"
	"os"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"coilfield/model"
)

// 线圈外形 -> 电流环阵列
// 按截面宽深比近似正方形排布，每个子环携带线圈电流

var ErrInvalidCoil = errors.New("invalid coil")

// Decompose 将线圈截面 (Width x Depth) 分解为 numWidth x numDepth 个电流环
func Decompose(spec model.CoilSpec) ([]model.CurrentLoop, error) {
	if err := checkSpec(spec); err != nil {
		return nil, err
	}
	numWidth, numDepth := Lattice(spec)

	subWidth := spec.Width / float64(numWidth+2)
	subDepth := spec.Depth / float64(numDepth+2)

	loops := make([]model.CurrentLoop, 0, numWidth*numDepth)
	for i := 0; i < numWidth; i++ {
		for j := 0; j < numDepth; j++ {
			loop := model.CurrentLoop{
				Current: spec.Current,
				Z:       spec.Z - spec.Width/2 + float64(i)*subWidth,
				R:       spec.R - spec.Depth/2 + float64(j)*subDepth,
			}
			if loop.R <= 0 {
				return nil, fmt.Errorf("%w: %s sub-loop (%d, %d) radius %g", ErrInvalidCoil, spec.Name, i, j, loop.R)
			}
			loops = append(loops, loop)
		}
	}
	return loops, nil
}

// Lattice 返回 (轴向个数, 径向个数)
func Lattice(spec model.CoilSpec) (numWidth, numDepth int) {
	n := float64(spec.Turns)
	numDepth = int(math.Ceil(math.Sqrt(n * (spec.Depth / spec.Width))))
	numWidth = int(math.Ceil(math.Sqrt(n * (spec.Width / spec.Depth))))
	return numWidth, numDepth
}

// DecomposeAll 保持输入顺序
func DecomposeAll(specs []model.CoilSpec) ([]model.Coil, error) {
	coils := make([]model.Coil, 0, len(specs))
	for _, spec := range specs {
		loops, err := Decompose(spec)
		if err != nil {
			return nil, err
		}
		coils = append(coils, model.Coil{Name: spec.Name, Loops: loops})
	}
	return coils, nil
}

// Outline 截面矩形的四个角 (z, r)，逆时针，从左下角开始
func Outline(spec model.CoilSpec) [4][2]float64 {
	z0, z1 := spec.Z-spec.Width/2, spec.Z+spec.Width/2
	r0, r1 := spec.R-spec.Depth/2, spec.R+spec.Depth/2
	return [4][2]float64{{z0, r0}, {z1, r0}, {z1, r1}, {z0, r1}}
}

func checkSpec(spec model.CoilSpec) error {
	switch {
	case spec.Name == "":
		return fmt.Errorf("%w: empty name", ErrInvalidCoil)
	case !(spec.Width > 0) || !(spec.Depth > 0):
		return fmt.Errorf("%w: %s width %g depth %g must be positive", ErrInvalidCoil, spec.Name, spec.Width, spec.Depth)
	case spec.Turns < 1:
		return fmt.Errorf("%w: %s turns %d", ErrInvalidCoil, spec.Name, spec.Turns)
	case math.IsNaN(spec.Current) || math.IsInf(spec.Current, 0):
		return fmt.Errorf("%w: %s current %g", ErrInvalidCoil, spec.Name, spec.Current)
	}
	return nil
}

type sectionFile struct {
	Sections []model.Section `yaml:"sections"`
}

// LoadSections 读取 yaml 线圈表
func LoadSections(path string) ([]model.Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read coil table: %w", err)
	}
	return ParseSections(data)
}

func ParseSections(data []byte) ([]model.Section, error) {
	var f sectionFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse coil table: %w", err)
	}
	if len(f.Sections) == 0 {
		return nil, fmt.Errorf("%w: coil table has no sections", ErrInvalidCoil)
	}
	for _, s := range f.Sections {
		log.WithFields(log.Fields{
			"section": s.Name,
			"coils":   len(s.Coils),
		}).Debug("读取线圈段")
	}
	return f.Sections, nil
}
