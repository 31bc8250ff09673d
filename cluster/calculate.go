package cluster

import (
	"context"

	"github.com/ar90n/kmeanstree/common"
	"github.com/ar90n/kmeanstree/vector"
	"github.com/cockroachdb/errors"
	"github.com/sourcegraph/conc/panics"
	"github.com/sourcegraph/conc/pool"
)

// Calculate partitions the members into at most k sub-clusters and
// refines the partition until every mean equals the centroid of the
// members assigned to it.
//
// It returns nil with no error when the cluster has fewer than k members.
// Once converged the result is cached until the next Add.
func (c *Cluster[T]) Calculate(ctx context.Context) ([]*Cluster[T], error) {
	c.calcMu.Lock()
	defer c.calcMu.Unlock()

	if c.Calculated() {
		return c.SubClusters(), nil
	}

	if uint(c.Len()) < c.k {
		return nil, nil
	}

	for pass := uint(0); ; pass++ {
		if 0 < c.opts.maxIterations && c.opts.maxIterations <= pass {
			c.opts.logger.WarnContext(ctx, "partition did not converge",
				"depth", c.Depth(),
				"passes", pass,
			)
			return nil, errors.Wrapf(ErrNotConverged, "after %d passes", pass)
		}

		stable, version, err := c.refine(ctx)
		if err != nil {
			return nil, err
		}
		if stable {
			c.markCalculated(version)
			return c.SubClusters(), nil
		}
	}
}

func (c *Cluster[T]) markCalculated(version uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.version == version {
		c.calculated = true
	}
}

func (c *Cluster[T]) means(members []vector.Vector[T]) ([]vector.Vector[T], error) {
	subs := c.SubClusters()
	if len(subs) == 0 {
		n := min(int(c.k), len(members))
		return members[:n:n], nil
	}

	means := make([]vector.Vector[T], 0, len(subs))
	for _, sub := range subs {
		centroid, err := sub.Centroid()
		if err != nil {
			return nil, err
		}
		means = append(means, centroid)
	}
	return means, nil
}

// refine runs a single Lloyd pass and publishes the resulting partition.
// Nothing is published when the pass fails.
func (c *Cluster[T]) refine(ctx context.Context) (bool, uint64, error) {
	members, version := c.snapshot()
	means, err := c.means(members)
	if err != nil {
		return false, version, errors.Wrap(err, "seeding means")
	}

	assignments, err := c.assign(ctx, members, means)
	if err != nil {
		return false, version, err
	}

	groups := make([][]vector.Vector[T], len(means))
	for i, member := range members {
		groups[assignments[i]] = append(groups[assignments[i]], member)
	}

	stable := true
	subs := make([]*Cluster[T], 0, len(means))
	for i, group := range groups {
		if len(group) == 0 {
			continue
		}

		sub := c.newSubCluster(group)
		centroid, err := sub.Centroid()
		if err != nil {
			return false, version, err
		}
		if !means[i].Equal(centroid) {
			stable = false
		}
		subs = append(subs, sub)
	}

	c.subClusters.Store(&subs)
	iteration := c.iterations.Add(1)

	c.opts.logger.DebugContext(ctx, "refinement pass",
		"depth", c.Depth(),
		"members", len(members),
		"means", len(means),
		"clusters", len(subs),
		"stable", stable,
		"iteration", iteration,
	)
	return stable, version, nil
}

// assign maps every member to the index of its nearest mean. Members are
// split into contiguous chunks processed by a bounded worker pool; the
// first failing chunk cancels the rest.
func (c *Cluster[T]) assign(ctx context.Context, members, means []vector.Vector[T]) ([]int, error) {
	assignments := make([]int, len(members))
	procs := common.GetProcNum(c.opts.maxGoroutines)

	p := pool.New().
		WithMaxGoroutines(int(procs)).
		WithContext(ctx).
		WithCancelOnError()
	for _, chunk := range common.GetChunks(uint(len(members)), procs) {
		chunk := chunk
		p.Go(func(ctx context.Context) error {
			recovered := panics.Try(func() {
				for i := chunk.Begin; i < chunk.End; i++ {
					assignments[i] = nearest(c.opts.metric, members[i], means, nil)
				}
			})
			if recovered != nil {
				return recovered.AsError()
			}
			return ctx.Err()
		})
	}

	if err := p.Wait(); err != nil {
		return nil, errors.Mark(errors.Wrap(err, "assigning members to means"), ErrComputationFailed)
	}
	return assignments, nil
}
