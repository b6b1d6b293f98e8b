package cache

import (
	"errors"
	"fmt"

	"bootcode/internal/program"
	"bootcode/internal/repair"
	"bootcode/internal/vm"
)

// FromResult converts a Search outcome into a payload. Only successful
// results and ErrUnrepairable are cacheable; ok is false otherwise.
func FromResult(res repair.Result, err error) (Payload, bool) {
	switch {
	case err == nil:
		return Payload{
			Schema:   SchemaVersion,
			Index:    res.Index,
			Op:       uint8(res.Patched.Op),
			Arg:      res.Patched.Arg,
			Acc:      res.Final.Acc,
			PC:       res.Final.PC,
			Status:   uint8(res.Final.Status),
			Attempts: res.Attempts,
		}, true
	case errors.Is(err, repair.ErrUnrepairable):
		return Payload{Schema: SchemaVersion, Unrepairable: true}, true
	default:
		return Payload{}, false
	}
}

// Result rebuilds the Search outcome for p. A payload that does not fit p
// is reported as an error so callers can treat it as a miss.
func (pl Payload) Result(p *program.Program) (repair.Result, error) {
	if pl.Unrepairable {
		return repair.Result{}, fmt.Errorf("%w (cached)", repair.ErrUnrepairable)
	}
	if pl.Index < 0 || pl.Index >= p.Len() {
		return repair.Result{}, fmt.Errorf("cached index %d out of range", pl.Index)
	}
	orig := p.At(pl.Index)
	patched, ok := orig.Flip()
	if !ok || uint8(patched.Op) != pl.Op || patched.Arg != pl.Arg {
		return repair.Result{}, fmt.Errorf("cached flip %d does not match program", pl.Index)
	}
	status := vm.Status(pl.Status)
	if status != vm.StatusSuccess {
		return repair.Result{}, fmt.Errorf("cached status %s is not success", status)
	}
	return repair.Result{
		Index:    pl.Index,
		Original: orig,
		Patched:  patched,
		Final:    vm.State{PC: pl.PC, Acc: pl.Acc, Status: status},
		Attempts: pl.Attempts,
	}, nil
}
