package ltn

// EditLayer is the mutable mapping of per-road and per-intersection
// overrides on top of the immutable MapModel (§3). Exclusively owned by
// the Journal; all mutation flows through apply(Command).
type EditLayer struct {
	ModalFilters   map[RoadID]ModalFilter
	Directions     map[RoadID]Direction
	DiagonalFilters map[IntersectionID]*DiagonalFilter
}

func newEditLayer() *EditLayer {
	return &EditLayer{
		ModalFilters:    make(map[RoadID]ModalFilter),
		Directions:      make(map[RoadID]Direction),
		DiagonalFilters: make(map[IntersectionID]*DiagonalFilter),
	}
}

func (e *EditLayer) clone() *EditLayer {
	out := newEditLayer()
	for k, v := range e.ModalFilters {
		out.ModalFilters[k] = v
	}
	for k, v := range e.Directions {
		out.Directions[k] = v
	}
	for k, v := range e.DiagonalFilters {
		cp := *v
		out.DiagonalFilters[k] = &cp
	}
	return out
}

// CommandKind tags the atomic edit a Command represents (§3, §4.5).
type CommandKind uint8

const (
	CmdSetModalFilter = CommandKind(iota + 1)
	CmdSetDiagonalFilter
	CmdSetDirection
	CmdMultiple
)

// Command is a tagged record capturing one atomic edit and, once applied,
// replaced by its own inverse on the undo stack — generalizing
// map_model.rs's Command enum (SetModalFilter/SetDiagonalFilter/
// SetDirection/Multiple) and its do_edit return-the-inverse contract.
type Command struct {
	Kind CommandKind

	Road         RoadID
	Intersection IntersectionID

	Filter   *ModalFilter    // nil => no filter (delete)
	Diagonal *DiagonalFilter // nil => no diagonal filter (delete)
	Flow     Direction       // 0 => reverts to the Road's OriginalFlow

	Sub []Command // only for CmdMultiple
}

// doEdit applies cmd to layer and returns the command that undoes it,
// mirroring map_model.rs Command::do_edit exactly: a SetModalFilter's
// inverse is a SetModalFilter restoring the prior value (or its absence),
// and so on for every kind. Multiple's inverse is Multiple over the
// reversed list of sub-inverses, so undoing a compound edit undoes its
// effects in reverse order.
func doEdit(layer *EditLayer, cmd Command) (Command, error) {
	switch cmd.Kind {
	case CmdSetModalFilter:
		prior, had := layer.ModalFilters[cmd.Road]
		if cmd.Filter == nil {
			delete(layer.ModalFilters, cmd.Road)
		} else {
			layer.ModalFilters[cmd.Road] = *cmd.Filter
		}
		inverse := Command{Kind: CmdSetModalFilter, Road: cmd.Road}
		if had {
			inverse.Filter = &prior
		}
		return inverse, nil

	case CmdSetDiagonalFilter:
		prior, had := layer.DiagonalFilters[cmd.Intersection]
		if cmd.Diagonal == nil {
			delete(layer.DiagonalFilters, cmd.Intersection)
		} else {
			layer.DiagonalFilters[cmd.Intersection] = cmd.Diagonal
		}
		inverse := Command{Kind: CmdSetDiagonalFilter, Intersection: cmd.Intersection}
		if had {
			inverse.Diagonal = prior
		}
		return inverse, nil

	case CmdSetDirection:
		prior := layer.Directions[cmd.Road]
		if cmd.Flow == 0 {
			delete(layer.Directions, cmd.Road)
		} else {
			layer.Directions[cmd.Road] = cmd.Flow
		}
		return Command{Kind: CmdSetDirection, Road: cmd.Road, Flow: prior}, nil

	case CmdMultiple:
		inverses := make([]Command, len(cmd.Sub))
		for i, sub := range cmd.Sub {
			inv, err := doEdit(layer, sub)
			if err != nil {
				return Command{}, err
			}
			inverses[len(cmd.Sub)-1-i] = inv
		}
		return Command{Kind: CmdMultiple, Sub: inverses}, nil

	default:
		return Command{}, newError(ErrInternal, "unknown command kind %d", cmd.Kind)
	}
}

// Journal is the command log with undo/redo (§3, §4.5, §9 "Command journal
// replaces any in-place mutation + snapshot scheme"). Any new command
// clears the redo stack; undo pops the undo stack, applies the stored
// inverse (which is itself inverted again on application), and pushes the
// result to the redo stack — symmetric for redo.
type Journal struct {
	undo     []Command
	redo     []Command
	mutating bool
}

func newJournal() *Journal {
	return &Journal{}
}

func (j *Journal) UndoLength() int { return len(j.undo) }
func (j *Journal) RedoLength() int { return len(j.redo) }

// apply journals cmd atomically: either it commits (layer mutated, inverse
// pushed, redo cleared) or it fails and layer is left untouched.
func (j *Journal) apply(layer *EditLayer, cmd Command) error {
	if j.mutating {
		return newError(ErrReentrantEdit, "mutation requested while another mutation is in progress")
	}
	j.mutating = true
	defer func() { j.mutating = false }()

	inverse, err := doEdit(layer, cmd)
	if err != nil {
		return err
	}
	j.undo = append(j.undo, inverse)
	j.redo = nil
	return nil
}

// undo pops the undo stack, applies the stored inverse, and pushes the
// result (which restores the pre-undo state) onto the redo stack.
func (j *Journal) performUndo(layer *EditLayer) error {
	if j.mutating {
		return newError(ErrReentrantEdit, "undo requested while another mutation is in progress")
	}
	if len(j.undo) == 0 {
		return newError(ErrJournalEmpty, "undo stack is empty")
	}
	j.mutating = true
	defer func() { j.mutating = false }()

	last := j.undo[len(j.undo)-1]
	j.undo = j.undo[:len(j.undo)-1]
	redoCmd, err := doEdit(layer, last)
	if err != nil {
		return err
	}
	j.redo = append(j.redo, redoCmd)
	return nil
}

// redo pops the front of the redo queue, applies it, and pushes the result
// back onto the undo stack, symmetric with undo.
func (j *Journal) performRedo(layer *EditLayer) error {
	if j.mutating {
		return newError(ErrReentrantEdit, "redo requested while another mutation is in progress")
	}
	if len(j.redo) == 0 {
		return newError(ErrJournalEmpty, "redo queue is empty")
	}
	j.mutating = true
	defer func() { j.mutating = false }()

	first := j.redo[len(j.redo)-1]
	j.redo = j.redo[:len(j.redo)-1]
	undoCmd, err := doEdit(layer, first)
	if err != nil {
		return err
	}
	j.undo = append(j.undo, undoCmd)
	return nil
}
