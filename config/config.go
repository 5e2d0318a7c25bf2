package config

import (
	"fmt"
	"os"
	"runtime"

	log "github.com/sirupsen/logrus"
	"gopkg.in/ini.v1"

	"coilfield/model"
)

type Config struct {
	Addr     string
	LogLevel log.Level

	Grid    model.GridCfg
	Workers int
	Tracer  model.TracerCfg

	// 推送数据抽样步长
	StrideZ int
	StrideR int
}

// Default 与 conf/config.ini 一致
func Default() *Config {
	cfg, _ := parse(ini.Empty())
	return cfg
}

// Load 读取 ini 配置，文件不存在时使用默认值
func Load(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		log.WithField("path", path).Warn("配置文件不存在，使用默认配置")
		return Default(), nil
	}
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	return parse(file)
}

func parse(file *ini.File) (*Config, error) {
	level, err := log.ParseLevel(file.Section("log").Key("Level").MustString("info"))
	if err != nil {
		return nil, fmt.Errorf("config [log] Level: %w", err)
	}

	grid := file.Section("grid")
	tracer := file.Section("tracer")
	push := file.Section("push")
	cfg := &Config{
		Addr:     file.Section("server").Key("Addr").MustString(":9000"),
		LogLevel: level,
		Grid: model.GridCfg{
			ZMin:    grid.Key("ZMin").MustFloat64(0),
			ZMax:    grid.Key("ZMax").MustFloat64(3.5),
			ZPoints: grid.Key("ZPoints").MustInt(1000),
			RMin:    grid.Key("RMin").MustFloat64(0),
			RMax:    grid.Key("RMax").MustFloat64(0.3),
			RPoints: grid.Key("RPoints").MustInt(500),
		},
		Workers: file.Section("solver").Key("Workers").MustInt(0),
		Tracer: model.TracerCfg{
			Lines:      tracer.Key("Lines").MustInt(12),
			RWall:      tracer.Key("RWall").MustFloat64(0.22),
			Step:       tracer.Key("Step").MustFloat64(0.005),
			SeedOffset: tracer.Key("SeedOffset").MustFloat64(1e-6),
		},
		StrideZ: push.Key("StrideZ").MustInt(4),
		StrideR: push.Key("StrideR").MustInt(4),
	}
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU()
	}
	if cfg.StrideZ < 1 {
		cfg.StrideZ = 1
	}
	if cfg.StrideR < 1 {
		cfg.StrideR = 1
	}
	return cfg, nil
}
