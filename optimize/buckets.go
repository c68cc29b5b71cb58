package optimize

import (
	"math"
	"strconv"
	"strings"
)

type bucket struct {
	rank    float64
	first   int // earliest iteration in the bucket
	members []IterationResult
}

// pickStable groups results into numBuckets slices per parameter, ranks
// each group by mean metric over its standard deviation and returns the
// best result of the best ranked group. A lone or uniform group ranks by
// its mean.
func pickStable(all []IterationResult, defs []ParameterDef, numBuckets int, dir SearchDirection) IterationResult {
	groups := make(map[string]*bucket)
	var keys []string

	for _, r := range all {
		k := bucketKey(r, defs, numBuckets)
		b, ok := groups[k]
		if !ok {
			b = &bucket{first: r.Iteration}
			groups[k] = b
			keys = append(keys, k)
		}
		b.members = append(b.members, r)
	}

	var best *bucket
	for _, k := range keys {
		b := groups[k]
		metrics := make([]float64, len(b.members))
		for i, m := range b.members {
			metrics[i] = m.Metric
		}
		mean, std := meanStd(metrics)
		if dir == Min {
			mean = -mean
		}
		b.rank = mean
		if std > 0 {
			b.rank = mean / std
		}
		if best == nil || b.rank > best.rank {
			best = b
		}
	}
	return pickBest(best.members, dir)
}

func bucketKey(r IterationResult, defs []ParameterDef, numBuckets int) string {
	var sb strings.Builder
	for i, d := range defs {
		if i > 0 {
			sb.WriteByte(',')
		}
		idx := 0
		if span := d.End - d.Start; span > 0 && numBuckets > 1 {
			idx = int(math.Floor((r.Parameters[d.Name] - d.Start) * float64(numBuckets-1) / span))
		}
		sb.WriteString(strconv.Itoa(idx))
	}
	return sb.String()
}

func meanStd(xs []float64) (mean, std float64) {
	for _, x := range xs {
		mean += x
	}
	mean /= float64(len(xs))
	var sq float64
	for _, x := range xs {
		d := x - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / float64(len(xs)))
}
