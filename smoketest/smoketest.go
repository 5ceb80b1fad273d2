package smoketest

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/aukilabs/spatial/geometry"
	"github.com/aukilabs/spatial/spatial"
	"github.com/segmentio/encoding/json"
)

const defaultTimeout = time.Second * 5

type Options struct {
	// The maximum duration of a smoke test run.
	Timeout time.Duration

	// Called with the results of every run when set.
	SendResult func(context.Context, Results) error
}

// Request is the optional body of a smoke test request.
type Request struct {
	// Names of the checks to run. All checks run when empty.
	Checks []string `json:"checks,omitempty"`
}

// Results is the outcome of a smoke test run.
type Results struct {
	Passed   bool          `json:"passed"`
	Duration time.Duration `json:"duration"`
	Checks   []CheckResult `json:"checks"`
}

type CheckResult struct {
	Name   string `json:"name"`
	Passed bool   `json:"passed"`
	Error  string `json:"error,omitempty"`
}

func HandleSmokeTest(opts Options) http.HandlerFunc {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	return func(w http.ResponseWriter, r *http.Request) {
		b, err := io.ReadAll(r.Body)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, errorBody(errors.New("reading body failed").Wrap(err)))
			return
		}

		var req Request
		if len(b) != 0 {
			if err := json.Unmarshal(b, &req); err != nil {
				writeJSON(w, http.StatusBadRequest, errorBody(errors.New("decoding smoke test request failed").Wrap(err)))
				return
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), opts.Timeout)
		defer cancel()

		res, err := Run(ctx, req.Checks...)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody(err))
			return
		}

		if opts.SendResult != nil {
			if err := opts.SendResult(ctx, res); err != nil {
				logs.Warn(errors.New("sending smoke test result failed").Wrap(err))
			}
		}

		status := http.StatusOK
		if !res.Passed {
			status = http.StatusInternalServerError
		}
		writeJSON(w, status, res)
	}
}

// Run executes the named checks, or all of them when no name is given, on
// throwaway trees.
func Run(ctx context.Context, names ...string) (Results, error) {
	selected := checks
	if len(names) != 0 {
		selected = make([]check, 0, len(names))
		for _, name := range names {
			c, ok := checkByName(name)
			if !ok {
				return Results{}, errors.New("unknown smoke test check").
					WithType("smoke_test_unknown_check").
					WithTag("check", name)
			}
			selected = append(selected, c)
		}
	}

	start := time.Now()
	res := Results{
		Passed: true,
		Checks: make([]CheckResult, 0, len(selected)),
	}

	for _, c := range selected {
		result := CheckResult{Name: c.name}

		if err := ctx.Err(); err != nil {
			result.Error = errors.New("smoke test interrupted").Wrap(err).Error()
		} else if err := c.run(); err != nil {
			result.Error = err.Error()
		} else {
			result.Passed = true
		}

		res.Passed = res.Passed && result.Passed
		res.Checks = append(res.Checks, result)
	}

	res.Duration = time.Since(start)
	return res, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logs.Warn(errors.New("encoding smoke test response failed").Wrap(err))
	}
}

func errorBody(err error) map[string]string {
	return map[string]string{
		"type":    errors.Type(err),
		"message": err.Error(),
	}
}

type check struct {
	name string
	run  func() error
}

var checks = []check{
	{name: "raycast_hits", run: checkRaycastHits},
	{name: "raycast_miss", run: checkRaycastMiss},
	{name: "out_of_bounds", run: checkOutOfBounds},
	{name: "trim", run: checkTrim},
}

func checkByName(name string) (check, bool) {
	for _, c := range checks {
		if c.name == name {
			return c, true
		}
	}
	return check{}, false
}

func newOctTree(trimOnRemove bool) (*spatial.OctTree[int, float64], error) {
	return spatial.NewOctTree[int](spatial.OctTreeConfig[float64]{
		Bounds:       geometry.VolumeOf(0.0, 100, 0, 100, 0, 100),
		TrimOnRemove: trimOnRemove,
	})
}

var raycastRegions = []geometry.Volume[float64]{
	geometry.VolumeOf(10.0, 20, 11, 21, 0, 99),
	geometry.VolumeOf(15.0, 25, 16, 26, 0, 99),
	geometry.VolumeOf(25.0, 35, 26, 36, 0, 99),
}

func raycastScenario(origin, direction geometry.Vector3) ([]spatial.RaycastResult[int, geometry.Volume[float64]], error) {
	tree, err := newOctTree(false)
	if err != nil {
		return nil, err
	}

	for i, r := range raycastRegions {
		if !tree.Insert(i, r) {
			return nil, errors.New("inserting item failed").
				WithTag("item", i).
				WithTag("region", r.String())
		}
	}

	ray, err := geometry.NewRay3(origin, direction)
	if err != nil {
		return nil, err
	}

	results := spatial.NewRaycastResults[int, geometry.Volume[float64]]()
	tree.Raycast(ray, results)
	return results.Slice(), nil
}

func checkRaycastHits() error {
	hits, err := raycastScenario(geometry.Vector3{X: 0, Y: 0, Z: 1}, geometry.Vector3{X: 1, Y: 1, Z: 0})
	if err != nil {
		return err
	}

	if len(hits) != len(raycastRegions) {
		return errors.New("unexpected raycast hit count").
			WithTag("expected", len(raycastRegions)).
			WithTag("actual", len(hits))
	}

	for i, hit := range hits {
		if hit.Item != i || hit.Region != raycastRegions[i] {
			return errors.New("unexpected raycast hit").
				WithTag("index", i).
				WithTag("hit", hit.String())
		}
	}
	return nil
}

func checkRaycastMiss() error {
	hits, err := raycastScenario(geometry.Vector3{}, geometry.Vector3{X: 1, Y: 0, Z: 1})
	if err != nil {
		return err
	}

	if len(hits) != 0 {
		return errors.New("raycast should miss every item").
			WithTag("hits", len(hits))
	}
	return nil
}

func checkOutOfBounds() error {
	tree, err := newOctTree(false)
	if err != nil {
		return err
	}

	if tree.Insert(0, geometry.VolumeOf(-100.0, 200, -100, 200, -100, 200)) {
		return errors.New("out of bounds item was inserted")
	}
	if tree.Size() != 0 {
		return errors.New("tree should be empty").WithTag("size", tree.Size())
	}
	return nil
}

func checkTrim() error {
	tree, err := newOctTree(false)
	if err != nil {
		return err
	}

	for i, r := range raycastRegions {
		tree.Insert(i, r)
	}
	for i := range raycastRegions {
		if !tree.Remove(i) {
			return errors.New("removing item failed").WithTag("item", i)
		}
	}

	tree.Trim()
	if n := tree.NodeCount(); n != 1 {
		return errors.New("trimmed empty tree should have a single node").
			WithTag("nodes", n)
	}
	return nil
}
