package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/upsift/upsift/internal/checks"
)

func TestParseIDList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, ParseIDList("a, b,,c ,"))
	assert.Nil(t, ParseIDList(""))
	assert.Nil(t, ParseIDList(" , "))
}

func TestSelect(t *testing.T) {
	entries := []checks.Entry{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	pick := func(only, skip []string) []string {
		var out []string
		for _, e := range Select(entries, only, skip) {
			out = append(out, e.ID)
		}
		return out
	}
	tests := []struct {
		name       string
		only, skip []string
		want       []string
	}{
		{name: "default", want: []string{"a", "b", "c"}},
		{name: "skip", skip: []string{"b"}, want: []string{"a", "c"}},
		{name: "only", only: []string{"c", "a"}, want: []string{"a", "c"}},
		{name: "only wins over skip", only: []string{"a", "b"}, skip: []string{"a"}, want: []string{"a", "b"}},
		{name: "only ignores skip entirely", only: []string{"c"}, skip: []string{"c", "a"}, want: []string{"c"}},
		{name: "only unknown", only: []string{"zz"}, want: nil},
		{name: "blank only falls back to skip", only: []string{" "}, skip: []string{"a"}, want: []string{"b", "c"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pick(tt.only, tt.skip))
		})
	}
}
