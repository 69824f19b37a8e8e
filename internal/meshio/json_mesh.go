package meshio

import (
	"math"
	"os"

	"github.com/agentic-research/trisort/api"
	"github.com/agentic-research/trisort/internal/trisort"
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/ohler55/ojg/jp"
	"github.com/segmentio/encoding/json"
)

// ErrTypeMeshInput marks mesh documents that cannot be turned into a Mesh.
const ErrTypeMeshInput = "mesh-input"

// Load reads a JSON mesh document from path.
func Load(path string, sel api.MeshSelectors) (trisort.Mesh, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return trisort.Mesh{}, errors.New("read mesh file").
			WithType(ErrTypeMeshInput).
			WithTag("path", path).
			Wrap(err)
	}
	return Decode(data, sel)
}

// Decode parses a JSON document and extracts points and triangles with the
// given JSONPath selectors. Points are triples of numbers in grid units;
// triangles are triples of integral point indices.
func Decode(data []byte, sel api.MeshSelectors) (trisort.Mesh, error) {
	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return trisort.Mesh{}, errors.New("parse mesh json").WithType(ErrTypeMeshInput).Wrap(err)
	}

	pts, err := query(root, sel.Points)
	if err != nil {
		return trisort.Mesh{}, err
	}
	tris, err := query(root, sel.Triangles)
	if err != nil {
		return trisort.Mesh{}, err
	}

	mesh := trisort.Mesh{
		Points:    make([]trisort.Point, len(pts)),
		Triangles: make([]trisort.Triangle, len(tris)),
	}
	for i, v := range pts {
		xyz, err := triple(v, "point", i)
		if err != nil {
			return trisort.Mesh{}, err
		}
		mesh.Points[i] = trisort.Point(xyz)
	}
	for i, v := range tris {
		abc, err := triple(v, "triangle", i)
		if err != nil {
			return trisort.Mesh{}, err
		}
		for k, f := range abc {
			if f != math.Trunc(f) {
				return trisort.Mesh{}, errors.New("triangle index is not an integer").
					WithType(ErrTypeMeshInput).
					WithTag("triangle", i).
					WithTag("value", f)
			}
			mesh.Triangles[i][k] = int(f)
		}
	}
	return mesh, nil
}

// query runs selector against root and returns the selected array. A
// selector may point at the array itself ("$.points") or at its elements
// ("$.points[*]").
func query(root any, selector string) ([]any, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, errors.New("invalid jsonpath").
			WithType(ErrTypeMeshInput).
			WithTag("selector", selector).
			Wrap(err)
	}
	results := x.Get(root)
	if len(results) == 1 {
		if arr, ok := results[0].([]any); ok && isArrayOfArrays(arr) {
			return arr, nil
		}
	}
	if len(results) == 0 {
		return nil, errors.New("selector matched nothing").
			WithType(ErrTypeMeshInput).
			WithTag("selector", selector)
	}
	return results, nil
}

func isArrayOfArrays(arr []any) bool {
	for _, v := range arr {
		if _, ok := v.([]any); !ok {
			return false
		}
	}
	return true
}

func triple(v any, kind string, i int) ([3]float64, error) {
	var out [3]float64
	arr, ok := v.([]any)
	if !ok || len(arr) != 3 {
		return out, errors.Newf("%s must be an array of 3 numbers", kind).
			WithType(ErrTypeMeshInput).
			WithTag(kind, i)
	}
	for k, e := range arr {
		f, ok := e.(float64)
		if !ok {
			return out, errors.Newf("%s component is not a number", kind).
				WithType(ErrTypeMeshInput).
				WithTag(kind, i).
				WithTag("component", k)
		}
		out[k] = f
	}
	return out, nil
}
