package trisort

import (
	"math"

	"github.com/agentic-research/trisort/api"
	"github.com/agentic-research/trisort/internal/octree"
)

// Halo is the padding, in grid units, added to every face of a bucket cube
// before testing it against a triangle's bounding box. Downstream per-bucket
// processing needs every triangle that can touch a boundary voxel.
const Halo = 1

// Build sorts every triangle of mesh into bucket nodes at cfg.BucketLevel.
// A triangle lands in each bucket whose cube, grown by Halo on every face,
// overlaps the triangle's bounding box. References are never deduplicated.
func Build(cfg api.BuildConfig, mesh Mesh) (*octree.Tree, error) {
	return BuildShard(cfg, mesh, 0, len(mesh.Triangles))
}

// BuildShard sorts triangles [start, start+count) of mesh. References are
// global: the triangle at position k of the shard is recorded as start+k.
func BuildShard(cfg api.BuildConfig, mesh Mesh, start, count int) (*octree.Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := mesh.validate(start, count); err != nil {
		return nil, err
	}
	return buildShard(cfg, mesh, start, count), nil
}

// buildShard assumes cfg and the triangle range have been validated.
func buildShard(cfg api.BuildConfig, mesh Mesh, start, count int) *octree.Tree {
	b := octree.NewBuilder(cfg.Levels)
	side := float64(int(1) << cfg.BucketLevel)
	n := 1 << (cfg.Levels - cfg.BucketLevel)

	var assigned int
	for i := start; i < start+count; i++ {
		box := mesh.TriangleBox(i)
		var lo, hi [3]int
		for k := range 3 {
			lo[k], hi[k] = candidateRange(box.Min[k], box.Max[k], side, n)
		}
		for x := lo[0]; x <= hi[0]; x++ {
			for y := lo[1]; y <= hi[1]; y++ {
				for z := lo[2]; z <= hi[2]; z++ {
					a := octree.Address{Level: cfg.BucketLevel, Offset: octree.Offset{x, y, z}}
					if !box.Overlaps(paddedCube(a)) {
						continue
					}
					// Address is in range by construction of candidateRange.
					_ = b.Insert(a, i)
					assigned++
				}
			}
		}
	}
	trianglesSorted.Add(float64(count))
	bucketAssignments.Add(float64(assigned))
	return b.Tree()
}

// candidateRange returns the inclusive range of bucket indices along one
// axis that could overlap [min, max] once padded. It errs on the wide side;
// the exact test is Box.Overlaps. An empty range has lo > hi.
func candidateRange(min, max, side float64, n int) (lo, hi int) {
	fl := math.Floor((min-Halo)/side) - 1
	fh := math.Floor((max+Halo)/side) + 1
	fl = math.Max(fl, 0)
	fh = math.Min(fh, float64(n-1))
	if fl > fh {
		return 1, 0
	}
	return int(fl), int(fh)
}

// paddedCube returns the bucket's cube grown by Halo on every face.
func paddedCube(a octree.Address) Box {
	min, max := a.Cube()
	var box Box
	for k := range 3 {
		box.Min[k] = float64(min[k] - Halo)
		box.Max[k] = float64(max[k] + Halo)
	}
	return box
}
