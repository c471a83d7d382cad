package satiprtp

import "testing"

func TestPIDFilterAccept(t *testing.T) {
	tests := []struct {
		name   string
		filter PIDFilter
		pid    uint16
		want   bool
	}{
		{"all accepts anything", NewPIDFilter(true, []uint16{1}), 9999, true},
		{"member accepted", NewPIDFilter(false, []uint16{256, 257, 258}), 257, true},
		{"non-member rejected", NewPIDFilter(false, []uint16{256, 257, 258}), 300, false},
		{"below range rejected", NewPIDFilter(false, []uint16{256, 257, 258}), 10, false},
		{"empty filter rejects all", NewPIDFilter(false, nil), 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.filter.Accept(tt.pid); got != tt.want {
				t.Errorf("Accept(%d) = %v, want %v", tt.pid, got, tt.want)
			}
		})
	}
}

func TestPIDFilterDedupAndSort(t *testing.T) {
	f := NewPIDFilter(false, []uint16{300, 100, 300, 200, 100})
	want := []uint16{100, 200, 300}
	if len(f.PIDs) != len(want) {
		t.Fatalf("PIDs = %v, want %v", f.PIDs, want)
	}
	for i, p := range want {
		if f.PIDs[i] != p {
			t.Fatalf("PIDs = %v, want %v", f.PIDs, want)
		}
	}
}

func TestPIDFilterAllIgnoresList(t *testing.T) {
	f := NewPIDFilter(true, []uint16{1, 2, 3})
	if len(f.PIDs) != 0 {
		t.Errorf("All filter should not carry a PID list, got %v", f.PIDs)
	}
}
