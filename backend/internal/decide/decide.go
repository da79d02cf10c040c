// Package `decide` resolves the situations in which tierarch cannot choose
// on its own, like an archive that already exists or a deletion without a
// witness.  A `Decider` is either interactive or a fixed policy.
package decide

import (
	"context"
	"errors"
	"fmt"
)

var ErrInvalidPolicy = errors.New("invalid decision policy")

type Kind int

const (
	KindUnspecified Kind = iota
	// `KindConfirmBatch` asks before a batch starts.
	KindConfirmBatch
	// `KindExistingArtifact` asks whether to recompress when an archive
	// file exists next to its source directory.
	KindExistingArtifact
	// `KindExistingDestination` asks whether to replace an expanded
	// directory at the destination.
	KindExistingDestination
	// `KindMissingWitness` asks how to continue when the source cannot be
	// deleted, because the expanded destination is missing.
	KindMissingWitness
)

func (k Kind) String() string {
	switch k {
	case KindConfirmBatch:
		return "confirm-batch"
	case KindExistingArtifact:
		return "existing-artifact"
	case KindExistingDestination:
		return "existing-destination"
	case KindMissingWitness:
		return "missing-witness"
	default:
		return "unspecified"
	}
}

type Decision int

const (
	Skip Decision = iota
	Proceed
	Abort
)

func (d Decision) String() string {
	switch d {
	case Skip:
		return "skip"
	case Proceed:
		return "proceed"
	case Abort:
		return "abort"
	default:
		return fmt.Sprintf("Decision(%d)", int(d))
	}
}

// `Conflict` describes a decision point.  `Services` and `Bytes` are only
// set for `KindConfirmBatch`.
type Conflict struct {
	Kind    Kind
	Service string
	Stage   string
	Path    string

	Services int
	Bytes    uint64
	// `Summary` is a human-readable question.
	Summary string
}

type Decider interface {
	Decide(ctx context.Context, c Conflict) (Decision, error)
}

// `Func` adapts a function to a `Decider`.
type Func func(ctx context.Context, c Conflict) (Decision, error)

func (f Func) Decide(ctx context.Context, c Conflict) (Decision, error) {
	return f(ctx, c)
}

type Policy string

const (
	PolicyAsk  Policy = "ask"
	PolicySkip Policy = "skip"
	PolicyRedo Policy = "redo"
)

func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(s); p {
	case PolicyAsk, PolicySkip, PolicyRedo:
		return p, nil
	default:
		return "", fmt.Errorf("%w `%s`", ErrInvalidPolicy, s)
	}
}

// `AlwaysSkip` keeps existing data and never deletes without a witness.  It
// confirms batches.
type AlwaysSkip struct{}

func (AlwaysSkip) Decide(ctx context.Context, c Conflict) (Decision, error) {
	if c.Kind == KindConfirmBatch {
		return Proceed, nil
	}
	return Skip, nil
}

// `AlwaysRedo` proceeds at every decision point.
type AlwaysRedo struct{}

func (AlwaysRedo) Decide(ctx context.Context, c Conflict) (Decision, error) {
	return Proceed, nil
}

// `AutoConfirm` confirms batches without asking and delegates all other
// decisions to `D`.
type AutoConfirm struct {
	D Decider
}

func (a AutoConfirm) Decide(ctx context.Context, c Conflict) (Decision, error) {
	if c.Kind == KindConfirmBatch {
		return Proceed, nil
	}
	return a.D.Decide(ctx, c)
}
