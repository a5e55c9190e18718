package pagination

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func seq(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

func TestPaginate(t *testing.T) {
	items := seq(23)

	tests := []struct {
		name      string
		page      int
		wantItems []int
		wantStart int
		wantEnd   int
		wantPages int
	}{
		{name: "first page", page: 1, wantItems: seq(10), wantStart: 1, wantEnd: 10, wantPages: 3},
		{name: "last partial page", page: 3, wantItems: []int{20, 21, 22}, wantStart: 21, wantEnd: 23, wantPages: 3},
		{name: "past the end", page: 4, wantItems: []int{}, wantStart: 23, wantEnd: 23, wantPages: 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Paginate(items, tt.page, 10)
			if diff := cmp.Diff(tt.wantItems, got.Items); diff != "" {
				t.Errorf("items mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantStart, got.StartIndex)
			assert.Equal(t, tt.wantEnd, got.EndIndex)
			assert.Equal(t, tt.wantPages, got.TotalPages)
			assert.Equal(t, 23, got.Total)
		})
	}
}

func TestPaginate_Empty(t *testing.T) {
	got := Paginate([]string{}, 1, 10)
	assert.Empty(t, got.Items)
	assert.Equal(t, 1, got.TotalPages)
	assert.Equal(t, 0, got.StartIndex)
	assert.Equal(t, 0, got.EndIndex)
}

func TestVisiblePageWindow(t *testing.T) {
	tests := []struct {
		name         string
		page, total  int
		wantPages    []int
		wantEllipsis bool
	}{
		{"few pages", 2, 3, []int{1, 2, 3}, false},
		{"exactly five", 5, 5, []int{1, 2, 3, 4, 5}, false},
		{"start", 1, 10, []int{1, 2, 3, 4, 5}, true},
		{"third page", 3, 10, []int{1, 2, 3, 4, 5}, true},
		{"near end", 9, 10, []int{6, 7, 8, 9, 10}, false},
		{"third from end", 8, 10, []int{6, 7, 8, 9, 10}, false},
		{"middle", 5, 10, []int{3, 4, 5, 6, 7}, true},
		{"zero pages", 1, 0, []int{1}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := VisiblePageWindow(tt.page, tt.total)
			if diff := cmp.Diff(tt.wantPages, w.Pages); diff != "" {
				t.Errorf("pages mismatch (-want +got):\n%s", diff)
			}
			assert.Equal(t, tt.wantEllipsis, w.TrailingEllipsis)
		})
	}
}

func TestVisiblePageWindow_Bounded(t *testing.T) {
	for total := 1; total <= 40; total++ {
		for page := 1; page <= total; page++ {
			w := VisiblePageWindow(page, total)
			assert.LessOrEqual(t, len(w.Pages), WindowSize)
			for i := 1; i < len(w.Pages); i++ {
				assert.Greater(t, w.Pages[i], w.Pages[i-1])
			}
			assert.Contains(t, w.Pages, page)
		}
	}
}

func TestNormalizeAndReset(t *testing.T) {
	page, perPage := Normalize(-3, 0)
	assert.Equal(t, 1, page)
	assert.Equal(t, 1, perPage)

	assert.Equal(t, 1, ResetIfOutOfRange(3, 2))
	assert.Equal(t, 3, ResetIfOutOfRange(3, 3))
}
