package xconfig

import "time"

// PoolSpec describes one named pool entry in a YAML bootstrap file.
type PoolSpec struct {
	Size int `yaml:"size" validate:"min=1"`
}

// StaticConfig is the YAML shape consumed by LoadPoolConfig: a named set of
// pools plus an optional shared auto-adjustment refresh period. It is a
// convenience bootstrap only -- the registry package itself has no
// dependency on this type or on YAML.
type StaticConfig struct {
	Pools         map[string]PoolSpec `yaml:"pools" validate:"min=1"`
	RefreshPeriod time.Duration       `yaml:"refreshPeriod"`
}

// Sizes flattens StaticConfig into the name->size map registry.Init expects.
func (c StaticConfig) Sizes() map[string]int {
	sizes := make(map[string]int, len(c.Pools))
	for name, spec := range c.Pools {
		sizes[name] = spec.Size
	}
	return sizes
}

// LoadPoolConfig loads a YAML file describing a multi-pool registry
// bootstrap (pool names, sizes, and an optional shared refresh period) and
// validates it via gopkg.in/validator.v2 struct tags, mirroring LoadFiles.
func LoadPoolConfig(fname string) (StaticConfig, error) {
	var cfg StaticConfig
	if err := LoadFiles(&cfg, fname); err != nil {
		return StaticConfig{}, err
	}
	return cfg, nil
}
