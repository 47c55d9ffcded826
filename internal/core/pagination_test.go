package core

import "testing"

func TestPaginateBoundaries(t *testing.T) {
	items := make([]int, 25)
	for i := range items {
		items[i] = i + 1
	}

	tests := []struct {
		name       string
		items      []int
		page       int
		wantPage   int
		wantFirst  int
		wantLen    int
		wantTotal  int
		prev, next bool
	}{
		{"first", items, 1, 1, 1, 10, 3, false, true},
		{"middle", items, 2, 2, 11, 10, 3, true, true},
		{"partial last", items, 3, 3, 21, 5, 3, true, false},
		{"past end clamps", items, 9, 3, 21, 5, 3, true, false},
		{"zero clamps", items, 0, 1, 1, 10, 3, false, true},
		{"exact multiple", items[:20], 2, 2, 11, 10, 2, true, false},
		{"single short page", items[:3], 1, 1, 1, 3, 1, false, false},
		{"empty", nil, 1, 1, 0, 0, 1, false, false},
		{"empty past end", nil, 4, 1, 0, 0, 1, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := Paginate(tc.items, tc.page, 10)
			if p.Number != tc.wantPage || len(p.Items) != tc.wantLen || p.TotalPages != tc.wantTotal {
				t.Fatalf("got page=%d len=%d total=%d", p.Number, len(p.Items), p.TotalPages)
			}
			if tc.wantLen > 0 && p.Items[0] != tc.wantFirst {
				t.Fatalf("first item = %d, want %d", p.Items[0], tc.wantFirst)
			}
			if p.HasPrev() != tc.prev || p.HasNext() != tc.next {
				t.Fatalf("prev=%v next=%v", p.HasPrev(), p.HasNext())
			}
			if p.TotalItems != len(tc.items) {
				t.Fatalf("total items = %d", p.TotalItems)
			}
		})
	}
}
