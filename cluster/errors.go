package cluster

import "github.com/cockroachdb/errors"

var (
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrInvalidVector     = errors.New("vector is absent")
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrEmptyCluster      = errors.New("empty cluster")
	ErrComputationFailed = errors.New("computation failed")
	ErrNotConverged      = errors.New("partition did not converge")
)
