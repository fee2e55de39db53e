package tail

import (
	"reflect"
	"testing"
)

func TestDedup(t *testing.T) {
	tests := []struct {
		name string
		prev []string
		next []string
		want []string
	}{
		{
			name: "partial overlap",
			prev: []string{"a", "b", "c"},
			next: []string{"b", "c", "d", "e"},
			want: []string{"d", "e"},
		},
		{
			name: "full overlap",
			prev: []string{"a", "b", "c"},
			next: []string{"a", "b", "c"},
			want: []string{},
		},
		{
			name: "no overlap ingests whole window",
			prev: []string{"a", "b"},
			next: []string{"x", "y", "z"},
			want: []string{"x", "y", "z"},
		},
		{
			name: "empty previous window",
			prev: nil,
			next: []string{"a", "b"},
			want: []string{"a", "b"},
		},
		{
			name: "empty next window",
			prev: []string{"a", "b"},
			next: nil,
			want: nil,
		},
		{
			name: "longest alignment wins with repeated lines",
			prev: []string{"tick", "tick"},
			next: []string{"tick", "tick", "tock"},
			want: []string{"tock"},
		},
		{
			name: "next shorter than previous",
			prev: []string{"a", "b", "c", "d"},
			next: []string{"c", "d"},
			want: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := dedup(tt.prev, tt.next)
			if len(got) == 0 && len(tt.want) == 0 {
				return
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("dedup(%v, %v) = %v, want %v", tt.prev, tt.next, got, tt.want)
			}
		})
	}
}

func TestOverlapLenBoundedByShorterWindow(t *testing.T) {
	prev := []string{"a", "b", "c", "d", "e"}
	next := []string{"d", "e"}
	if got := overlapLen(prev, next); got != 2 {
		t.Fatalf("overlapLen = %d, want 2", got)
	}
}
