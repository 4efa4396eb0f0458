package replaylog

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
)

func Test_WriteRead(t *testing.T) {

	path := filepath.Join(t.TempDir(), "capture.jsonl.zst")

	w, err := NewWriter(path)
	if nil != err {
		t.Fatal(err)
	}

	packets := [][]byte{
		{0xB5, 1, 0, 0, 0, 4},
		{0xB5, 2, 0, 100, 1, 2, 3},
		{0xB5, 3, 0, 100},
	}
	for _, p := range packets {
		if err := w.Write(p); nil != err {
			t.Fatal(err)
		}
	}
	if err := w.Close(); nil != err {
		t.Fatal(err)
	}

	r, err := NewReader(path)
	if nil != err {
		t.Fatal(err)
	}
	defer r.Close()

	for i, want := range packets {
		rec, err := r.Next()
		if nil != err {
			t.Fatalf("record %d: %v", i, err)
		}
		if !bytes.Equal(rec.Data, want) {
			t.Errorf("record %d data mismatch", i)
		}
		if rec.T.IsZero() {
			t.Errorf("record %d has zero timestamp", i)
		}
	}

	if _, err := r.Next(); err != io.EOF {
		t.Error("expected io.EOF after last record")
	}
}
