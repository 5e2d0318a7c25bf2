package model

// 前端设置的计算环境
type Env struct {
	Grid     GridCfg   `json:"grid"`
	Tracer   TracerCfg `json:"tracer"`
	Sections []Section `json:"sections"`
}

// 计算网格配置，单位 m
type GridCfg struct {
	ZMin    float64 `json:"z_min"`
	ZMax    float64 `json:"z_max"`
	ZPoints int     `json:"z_points"`
	RMin    float64 `json:"r_min"`
	RMax    float64 `json:"r_max"`
	RPoints int     `json:"r_points"`
}

// Build 由配置生成网格
func (c GridCfg) Build() (*Grid, error) {
	return NewGrid(Linspace(c.ZMin, c.ZMax, c.ZPoints), Linspace(c.RMin, c.RMax, c.RPoints))
}

// 磁力线追踪配置
type TracerCfg struct {
	Lines      int     `json:"lines"`
	RWall      float64 `json:"r_wall"`
	Step       float64 `json:"step"`
	SeedOffset float64 `json:"seed_offset"`
}

// 线圈段，例如 section_1
type Section struct {
	Name  string     `json:"name" yaml:"name"`
	Coils []CoilSpec `json:"coils" yaml:"coils"`
}

// 线圈的外形参数
type CoilSpec struct {
	Name    string  `json:"name" yaml:"name"`
	Current float64 `json:"current" yaml:"current"` // 每匝电流 A
	Z       float64 `json:"z" yaml:"z"`             // 截面中心轴向位置
	R       float64 `json:"r" yaml:"r"`             // 截面中心半径
	Width   float64 `json:"width" yaml:"width"`     // 轴向宽度
	Depth   float64 `json:"depth" yaml:"depth"`     // 径向厚度
	Turns   int     `json:"n_turns" yaml:"n_turns"` // 匝数
}

// 推送给前端的磁场数据，单位 G
type FieldData struct {
	Z      []float64   `json:"z"`
	R      []float64   `json:"r"`
	Br     [][]float64 `json:"br"`
	Bz     [][]float64 `json:"bz"`
	Axial  []float64   `json:"axial"` // r = R[0] 处的 Bz
	Coils  []string    `json:"coils"`
	Traces []Trace     `json:"traces"`
}

// 前后端通信消息结构
type Msg struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

const (
	MsgEnv     = "env"
	MsgStart   = "start"
	MsgStop    = "stop"
	MsgEnvSet  = "envSet"
	MsgStarted = "started"
	MsgStopped = "stopped"
	MsgError   = "error"
)
