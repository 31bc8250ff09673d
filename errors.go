package kmeanstree

import "github.com/ar90n/kmeanstree/cluster"

var (
	ErrInvalidArgument   = cluster.ErrInvalidArgument
	ErrInvalidVector     = cluster.ErrInvalidVector
	ErrDimensionMismatch = cluster.ErrDimensionMismatch
	ErrEmptyCluster      = cluster.ErrEmptyCluster
	ErrComputationFailed = cluster.ErrComputationFailed
	ErrNotConverged      = cluster.ErrNotConverged
)
