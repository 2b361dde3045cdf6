package scan

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "case articles punctuation plural",
			raw:  "The Bottles!",
			want: "bottle",
		},
		{
			name: "indefinite article",
			raw:  "a glass",
			want: "glass",
		},
		{
			name: "an with trailing period",
			raw:  "AN APPLE.",
			want: "apple",
		},
		{
			name: "stacked articles",
			raw:  "the the keys",
			want: "key",
		},
		{
			name: "multi word target",
			raw:  "water bottles",
			want: "water bottle",
		},
		{
			name: "double s is not a plural",
			raw:  "glass",
			want: "glass",
		},
		{
			name: "whitespace only",
			raw:  "   ",
			want: "",
		},
		{
			name: "articles only",
			raw:  "the a an",
			want: "",
		},
		{
			name: "short word keeps its s",
			raw:  "is",
			want: "is",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Normalize(tt.raw)
			assert.Equal(t, tt.want, got)
			// Normalization must be idempotent.
			assert.Equal(t, got, Normalize(got))
		})
	}
}
