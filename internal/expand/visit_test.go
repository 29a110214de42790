package expand

import "testing"

func TestVisitSet_MarkReportsNew(t *testing.T) {
	v := newVisitSet()

	if !v.Mark("tblCLIENTS0000001", "recCLIENT00000001") {
		t.Error("Expected first mark to report new")
	}
	if v.Mark("tblCLIENTS0000001", "recCLIENT00000001") {
		t.Error("Expected second mark to report already seen")
	}
}

func TestVisitSet_TablesDoNotCollide(t *testing.T) {
	v := newVisitSet()

	v.Mark("tblCLIENTS0000001", "recSHARED00000001")
	if !v.Mark("tblCONTACTS000001", "recSHARED00000001") {
		t.Error("Expected same id in another table to count as new")
	}
}

func TestVisitSet_Seen(t *testing.T) {
	v := newVisitSet()

	if v.Seen("tblCLIENTS0000001", "recCLIENT00000001") {
		t.Error("Expected unmarked pair to be unseen")
	}

	v.Mark("tblCLIENTS0000001", "recCLIENT00000001")
	if !v.Seen("tblCLIENTS0000001", "recCLIENT00000001") {
		t.Error("Expected marked pair to be seen")
	}
}

func TestVisitSet_Len(t *testing.T) {
	v := newVisitSet()

	v.Mark("tblCLIENTS0000001", "recCLIENT00000001")
	v.Mark("tblCLIENTS0000001", "recCLIENT00000001")
	v.Mark("tblCONTACTS000001", "recCONTACT0000001")

	if v.Len() != 2 {
		t.Errorf("Expected 2 distinct records, got %d", v.Len())
	}
}
