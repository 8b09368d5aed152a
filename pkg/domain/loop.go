package domain

import (
	"errors"
	"fmt"
)

type LoopType string

const (
	// poll SLURM and propagate status changes to artifacts.
	Reconcile LoopType = "reconcile"

	// give up jobs whose submission phase 2 never finished.
	Sweep LoopType = "sweep"
)

// NOTE: we define them here, because "we have loops, they are like this"
// is a part of the model of dispatchd.

func (lt LoopType) String() string {
	return string(lt)
}

func (lt LoopType) IsKnown() bool {
	switch lt {
	case Reconcile, Sweep:
		return true
	default:
		return false
	}
}

func AsLoopType(s string) (LoopType, error) {
	l := LoopType(s)
	if l.IsKnown() {
		return l, nil
	}
	return l, fmt.Errorf(`%w: "%s"`, ErrUnknownLoopType, s)
}

var ErrUnknownLoopType = errors.New("unknown loop type")
