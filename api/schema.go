package api

import (
	"runtime"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/hashicorp/hcl/v2/hclsimple"
)

// ErrTypeConfig marks a rejected build configuration.
const ErrTypeConfig = "config-invalid"

// MaxLevels mirrors octree.MaxLevels: a level-0 offset must fit a 63-bit
// Morton code.
const MaxLevels = 21

// BuildConfig holds the inputs shared by every index build entry point.
type BuildConfig struct {
	// Levels is the domain exponent L; the domain is a cube of side 2^L.
	Levels int `json:"levels" hcl:"levels,optional"`
	// BucketLevel is the level at which triangle references are stored.
	BucketLevel int `json:"bucket_level" hcl:"bucket_level,optional"`
	// Workers is the number of shards for parallel builds.
	Workers int `json:"workers" hcl:"workers,optional"`
	// Mesh locates the geometry inside a JSON mesh document.
	Mesh *MeshSelectors `json:"mesh,omitempty" hcl:"mesh,block"`
}

// MeshSelectors are JSONPath expressions selecting the point and triangle
// arrays of a mesh document.
type MeshSelectors struct {
	Points    string `json:"points" hcl:"points,optional"`
	Triangles string `json:"triangles" hcl:"triangles,optional"`
}

func DefaultMeshSelectors() MeshSelectors {
	return MeshSelectors{Points: "$.points", Triangles: "$.triangles"}
}

func DefaultBuildConfig() BuildConfig {
	sel := DefaultMeshSelectors()
	return BuildConfig{
		Levels:      5,
		BucketLevel: 3,
		Workers:     runtime.NumCPU(),
		Mesh:        &sel,
	}
}

// Selectors returns the configured selectors with defaults filled in.
func (c BuildConfig) Selectors() MeshSelectors {
	sel := DefaultMeshSelectors()
	if c.Mesh == nil {
		return sel
	}
	if c.Mesh.Points != "" {
		sel.Points = c.Mesh.Points
	}
	if c.Mesh.Triangles != "" {
		sel.Triangles = c.Mesh.Triangles
	}
	return sel
}

// Validate checks levels and bucket level. Worker count is checked
// separately since serial builds ignore it.
func (c BuildConfig) Validate() error {
	if c.Levels < 1 || c.Levels > MaxLevels {
		return errors.New("levels out of range").
			WithType(ErrTypeConfig).
			WithTag("levels", c.Levels).
			WithTag("max", MaxLevels)
	}
	if c.BucketLevel < 0 || c.BucketLevel >= c.Levels {
		return errors.New("bucket level must lie in [0, levels)").
			WithType(ErrTypeConfig).
			WithTag("levels", c.Levels).
			WithTag("bucket_level", c.BucketLevel)
	}
	return nil
}

// ValidateParallel additionally requires at least one worker.
func (c BuildConfig) ValidateParallel() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Workers < 1 {
		return errors.New("worker count must be at least 1").
			WithType(ErrTypeConfig).
			WithTag("workers", c.Workers)
	}
	return nil
}

// LoadConfig decodes an HCL (or HCL-flavoured JSON) file on top of the
// defaults. Attributes missing from the file keep their default values.
func LoadConfig(path string) (BuildConfig, error) {
	cfg := DefaultBuildConfig()
	if err := hclsimple.DecodeFile(path, nil, &cfg); err != nil {
		return BuildConfig{}, errors.New("decode config file").
			WithType(ErrTypeConfig).
			WithTag("path", path).
			Wrap(err)
	}
	if cfg.Mesh == nil {
		sel := DefaultMeshSelectors()
		cfg.Mesh = &sel
	}
	return cfg, nil
}
