package field_line

import "coilfield/model"

// SlopeFunc dr/dz = f(z, r)
type SlopeFunc func(z, r float64) float64

// Box 积分区域，闭区间：样本恰在边界上时继续积分
type Box struct {
	ZLow, ZHigh float64
	RHigh       float64
}

func (b Box) Contains(z, r float64) bool {
	return b.ZLow <= z && z <= b.ZHigh && r <= b.RHigh
}

// RK4Bound 定步长四阶 Runge-Kutta，从 (z0, r0) 积分 r(z)
// 每步之前检查是否仍在区域内，返回的轨迹包含第一个越界的样本；r 为 NaN 时停止
// maxSteps 限制最大步数
func RK4Bound(f SlopeFunc, z0, r0 float64, box Box, h float64, maxSteps int) model.Trace {
	tr := model.Trace{
		Z: []float64{z0},
		R: []float64{r0},
	}
	z, r := z0, r0
	for n := 1; n <= maxSteps && box.Contains(z, r); n++ {
		k1 := h * f(z, r)
		k2 := h * f(z+0.5*h, r+0.5*k1)
		k3 := h * f(z+0.5*h, r+0.5*k2)
		k4 := h * f(z+h, r+k3)

		r += (k1 + 2*k2 + 2*k3 + k4) / 6
		// 用步数计算 z，避免累加误差
		z = z0 + float64(n)*h

		tr.Z = append(tr.Z, z)
		tr.R = append(tr.R, r)
	}
	return tr
}
