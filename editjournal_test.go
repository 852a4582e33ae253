package ltn

import "testing"

func TestJournalApplyAndUndo(t *testing.T) {
	layer := newEditLayer()
	j := newJournal()

	filter := ModalFilter{Kind: FilterNoEntry, PercentAlong: 0.5}
	if err := j.apply(layer, Command{Kind: CmdSetModalFilter, Road: 1, Filter: &filter}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if got, ok := layer.ModalFilters[1]; !ok || got != filter {
		t.Fatalf("expected road 1 to carry the applied filter, got %v ok=%v", got, ok)
	}
	if j.UndoLength() != 1 || j.RedoLength() != 0 {
		t.Fatalf("expected undo=1 redo=0, got undo=%d redo=%d", j.UndoLength(), j.RedoLength())
	}

	if err := j.performUndo(layer); err != nil {
		t.Fatalf("performUndo failed: %v", err)
	}
	if _, ok := layer.ModalFilters[1]; ok {
		t.Error("undo should have removed the modal filter")
	}
	if j.UndoLength() != 0 || j.RedoLength() != 1 {
		t.Fatalf("expected undo=0 redo=1, got undo=%d redo=%d", j.UndoLength(), j.RedoLength())
	}

	if err := j.performRedo(layer); err != nil {
		t.Fatalf("performRedo failed: %v", err)
	}
	if got, ok := layer.ModalFilters[1]; !ok || got != filter {
		t.Errorf("redo should have restored the filter, got %v ok=%v", got, ok)
	}
}

func TestJournalNewCommandClearsRedo(t *testing.T) {
	layer := newEditLayer()
	j := newJournal()

	f1 := ModalFilter{Kind: FilterNoEntry}
	f2 := ModalFilter{Kind: FilterBusGate}
	j.apply(layer, Command{Kind: CmdSetModalFilter, Road: 1, Filter: &f1})
	j.performUndo(layer)
	if j.RedoLength() != 1 {
		t.Fatalf("expected 1 redo entry after undo, got %d", j.RedoLength())
	}

	if err := j.apply(layer, Command{Kind: CmdSetModalFilter, Road: 2, Filter: &f2}); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if j.RedoLength() != 0 {
		t.Errorf("a new command should clear the redo stack, got %d entries", j.RedoLength())
	}
}

func TestJournalUndoEmptyFails(t *testing.T) {
	layer := newEditLayer()
	j := newJournal()
	err := j.performUndo(layer)
	if err == nil {
		t.Fatal("expected an error undoing an empty journal")
	}
	if !IsKind(err, ErrJournalEmpty) {
		t.Errorf("expected ErrJournalEmpty, got %v", err)
	}
}

func TestMultipleCommandUndoesInReverseOrder(t *testing.T) {
	layer := newEditLayer()
	j := newJournal()

	f1 := ModalFilter{Kind: FilterNoEntry}
	f2 := ModalFilter{Kind: FilterBusGate}
	compound := Command{Kind: CmdMultiple, Sub: []Command{
		{Kind: CmdSetModalFilter, Road: 1, Filter: &f1},
		{Kind: CmdSetModalFilter, Road: 2, Filter: &f2},
	}}
	if err := j.apply(layer, compound); err != nil {
		t.Fatalf("apply failed: %v", err)
	}
	if len(layer.ModalFilters) != 2 {
		t.Fatalf("expected both filters applied, got %d", len(layer.ModalFilters))
	}

	if err := j.performUndo(layer); err != nil {
		t.Fatalf("performUndo failed: %v", err)
	}
	if len(layer.ModalFilters) != 0 {
		t.Errorf("undoing the compound command should remove both filters, got %d remaining", len(layer.ModalFilters))
	}
}

func TestJournalReentrancyGuard(t *testing.T) {
	layer := newEditLayer()
	j := newJournal()
	j.mutating = true
	f := ModalFilter{Kind: FilterNoEntry}
	err := j.apply(layer, Command{Kind: CmdSetModalFilter, Road: 1, Filter: &f})
	if err == nil {
		t.Fatal("expected an error applying while another mutation is in progress")
	}
	if !IsKind(err, ErrReentrantEdit) {
		t.Errorf("expected ErrReentrantEdit, got %v", err)
	}
}
