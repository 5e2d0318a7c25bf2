package elliptic

import (
	"math"

	"gonum.org/v1/gonum/mathext"
)

// 单匝电流环磁场公式中用到的无量纲几何量
// z 为观测点相对线圈中心的轴向距离，r 为观测点半径，R 为线圈半径
// R > 0 由调用方保证

func Alpha(r, R float64) float64 {
	return r / R
}

func Beta(z, R float64) float64 {
	return z / R
}

func Gamma(z, r float64) float64 {
	return z / r
}

// Q = (1 + alpha)^2 + beta^2
func Q(z, r, R float64) float64 {
	a := 1 + Alpha(r, R)
	b := Beta(z, R)
	return a*a + b*b
}

// Modulus 椭圆积分模数 k = sqrt(4 alpha / Q)，r, R > 0 时在 [0, 1) 内
func Modulus(z, r, R float64) float64 {
	return math.Sqrt(4 * Alpha(r, R) / Q(z, r, R))
}

// K 第一类完全椭圆积分，参数为模数 k，内部以 m = k^2 调用 gonum
func K(k float64) float64 {
	return mathext.CompleteK(k * k)
}

// E 第二类完全椭圆积分，同 K
func E(k float64) float64 {
	return mathext.CompleteE(k * k)
}
