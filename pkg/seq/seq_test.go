package seq

import "testing"

func Test_Diff(t *testing.T) {

	if Diff(1, 65535) != 2 {
		t.Error("Diff(1, 65535) != 2")
	}

	if Diff(65535, 1) != -2 {
		t.Error("Diff(65535, 1) != -2")
	}

	if Diff(100, 100) != 0 {
		t.Error("Diff(100, 100) != 0")
	}

	if Diff(0, 65535) != 1 {
		t.Error("Diff(0, 65535) != 1")
	}

	if Diff(32768, 0) != -32768 {
		t.Error("Diff(32768, 0) != -32768")
	}
}

func Test_Newer(t *testing.T) {

	if !Newer(0, 65535) {
		t.Error("!Newer(0, 65535)")
	}

	if Newer(65535, 0) {
		t.Error("Newer(65535, 0)")
	}

	if Newer(7, 7) {
		t.Error("Newer(7, 7)")
	}
}

func Test_Max(t *testing.T) {

	if Max(65535, 1) != 1 {
		t.Error("Max(65535, 1) != 1")
	}

	if Max(10, 9) != 10 {
		t.Error("Max(10, 9) != 10")
	}
}
