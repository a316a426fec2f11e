package loadgen

import (
	"encoding/json"
	"fmt"

	"github.com/okian/geocluster/internal/domain/model"
	"github.com/okian/geocluster/internal/domain/record"
)

// Report summarizes how well a dataset's labels match its blobs.
type Report struct {
	K      int
	Purity float64
	// Majority maps each blob to the label most of its records received.
	Majority []int
}

// outcomeOf extracts per-record labels from a cluster response.
func outcomeOf(ds Dataset, resp *model.ClusterResponse) (Outcome, error) {
	if len(resp.Records) != len(ds.Records) {
		return Outcome{}, fmt.Errorf("%w: dataset %s: got %d records, sent %d",
			ErrVerification, ds.ID, len(resp.Records), len(ds.Records))
	}
	labels := make([]int, len(resp.Records))
	for i, r := range resp.Records {
		v, ok := r.Get(record.ClusterField)
		if !ok {
			return Outcome{}, fmt.Errorf("%w: dataset %s: record %d has no label", ErrVerification, ds.ID, i)
		}
		label, err := asInt(v)
		if err != nil {
			return Outcome{}, fmt.Errorf("%w: dataset %s: record %d: %w", ErrVerification, ds.ID, i, err)
		}
		labels[i] = label
	}
	return Outcome{DatasetID: ds.ID, K: resp.K, Labels: labels}, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case float64:
		if n != float64(int(n)) {
			return 0, fmt.Errorf("label %v is not an integer", n)
		}
		return int(n), nil
	case int:
		return n, nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	default:
		return 0, fmt.Errorf("label %v has type %T", v, v)
	}
}

// Verify checks that the server found one cluster per blob, that distinct blobs
// landed in distinct clusters, and that purity meets minPurity.
func Verify(ds Dataset, out Outcome, blobs int, minPurity float64) (Report, error) {
	rep := Report{K: out.K, Majority: make([]int, blobs)}
	if out.K != blobs {
		return rep, fmt.Errorf("%w: dataset %s: k=%d, want %d", ErrVerification, ds.ID, out.K, blobs)
	}
	if len(out.Labels) != len(ds.Truth) {
		return rep, fmt.Errorf("%w: dataset %s: %d labels for %d records", ErrVerification, ds.ID, len(out.Labels), len(ds.Truth))
	}

	counts := make([]map[int]int, blobs)
	for i := range counts {
		counts[i] = make(map[int]int)
	}
	for i, b := range ds.Truth {
		counts[b][out.Labels[i]]++
	}

	agree := 0
	seen := make(map[int]int, blobs)
	for b, c := range counts {
		best, bestN := -1, -1
		for label, n := range c {
			if n > bestN || (n == bestN && label < best) {
				best, bestN = label, n
			}
		}
		if prev, dup := seen[best]; dup {
			return rep, fmt.Errorf("%w: dataset %s: blobs %d and %d share cluster %d", ErrVerification, ds.ID, prev, b, best)
		}
		seen[best] = b
		rep.Majority[b] = best
		agree += bestN
	}

	if len(ds.Truth) > 0 {
		rep.Purity = float64(agree) / float64(len(ds.Truth))
	}
	if rep.Purity < minPurity {
		return rep, fmt.Errorf("%w: dataset %s: purity %.3f below %.3f", ErrVerification, ds.ID, rep.Purity, minPurity)
	}
	return rep, nil
}
