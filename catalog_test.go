package godb

import "testing"

func TestMapCatalog(t *testing.T) {
	hf, _ := makeTestHeapFile(t)
	cat := NewMapCatalog()
	cat.AddTable(hf)

	got, err := cat.GetDBFile(hf.getID())
	if err != nil {
		t.Fatalf("GetDBFile: %v", err)
	}
	if got != DBFile(hf) {
		t.Fatalf("expected catalog to return the registered file")
	}

	if _, err := cat.GetDBFile(hf.getID() + 1); err == nil {
		t.Fatalf("expected error for unregistered table id")
	}
}
