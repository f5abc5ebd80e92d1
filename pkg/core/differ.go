package core

import "fmt"

// DiffInput is everything a differ sees for one (previous, current) pair and one category.
type DiffInput struct {
	Previous AspectRow
	Current  AspectRow
	Category Category
	// Patch is the structural diff of Current against Previous, shared by every
	// category evaluated for the pair.
	Patch          Patch
	ChangeType     ChangeType
	Target         string
	IncludeRawDiff bool
}

// Differ turns one version pair into one change transaction fragment.
// Implementations must be deterministic and free of side effects.
// A returned error is contained by the caller and never aborts a request.
type Differ interface {
	Diff(in DiffInput) (ChangeTransaction, error)
}

// DifferFunc adapts a function to the Differ interface.
type DifferFunc func(in DiffInput) (ChangeTransaction, error)

// Diff implements Differ.
func (f DifferFunc) Diff(in DiffInput) (ChangeTransaction, error) {
	return f(in)
}

// invokeDiffer runs d and converts both returned errors and panics into a DiffError.
func invokeDiffer(d Differ, in DiffInput) (tx ChangeTransaction, derr *DiffError) {
	defer func() {
		if r := recover(); r != nil {
			derr = &DiffError{Kind: "panic", Message: fmt.Sprint(r)}
		}
	}()

	tx, err := d.Diff(in)
	if err != nil {
		return ChangeTransaction{}, asDiffError(err)
	}
	return tx, nil
}
