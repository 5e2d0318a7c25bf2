package model

import "math"

// 全局常量，单位均为国际单位制 (m, A, T)

const (
	// 真空磁导率
	Mu0 = 4 * math.Pi * 1e-7

	// 特斯拉 -> 高斯，仅用于展示
	GaussPerTesla = 1e4

	// MagnetFields 中保留的总场键名
	Total = "total"
)
