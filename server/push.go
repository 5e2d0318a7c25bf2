package server

import (
	"math"

	"coilfield/model"
	"coilfield/solver"
)

// buildData 按步长抽样总场并转换为高斯
// JSON 无法表示 NaN/Inf，非有限值推送为 0，磁力线只保留有限样本
func buildData(fields model.MagnetFields, g *model.Grid, traces []model.Trace, strideZ, strideR int) *model.FieldData {
	total := fields[model.Total]
	nz, nr := g.Shape()

	data := &model.FieldData{
		Coils:  fields.Names(),
		Traces: make([]model.Trace, 0, len(traces)),
	}
	for i := 0; i < nz; i += strideZ {
		data.Z = append(data.Z, g.Z[i])
	}
	for j := 0; j < nr; j += strideR {
		data.R = append(data.R, g.R[j])
	}

	for i := 0; i < nz; i += strideZ {
		br := make([]float64, 0, len(data.R))
		bz := make([]float64, 0, len(data.R))
		for j := 0; j < nr; j += strideR {
			r, z := total.At(i, j)
			br = append(br, gauss(r))
			bz = append(bz, gauss(z))
		}
		data.Br = append(data.Br, br)
		data.Bz = append(data.Bz, bz)
	}

	for _, v := range total.AxialProfile(0) {
		data.Axial = append(data.Axial, gauss(v))
	}

	for _, tr := range traces {
		clean := model.Trace{}
		for k := range tr.Z {
			if finite(tr.Z[k]) && finite(tr.R[k]) {
				clean.Z = append(clean.Z, tr.Z[k])
				clean.R = append(clean.R, tr.R[k])
			}
		}
		data.Traces = append(data.Traces, clean)
	}
	return data
}

func gauss(t float64) float64 {
	if !finite(t) {
		return 0
	}
	return solver.Gauss(t)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
