package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchOptions_AllowsType(t *testing.T) {
	t.Run("empty filter allows everything", func(t *testing.T) {
		opts := SearchOptions{}
		for _, st := range AllSourceTypes() {
			assert.True(t, opts.AllowsType(st))
		}
	})

	t.Run("filter restricts", func(t *testing.T) {
		opts := SearchOptions{SourceTypes: []SourceType{SourceTypeProject, SourceTypeAIProject}}
		assert.True(t, opts.AllowsType(SourceTypeProject))
		assert.True(t, opts.AllowsType(SourceTypeAIProject))
		assert.False(t, opts.AllowsType(SourceTypeProfile))
		assert.False(t, opts.AllowsType(SourceTypeAIShowcase))
	})

	t.Run("empty slice is not nil but still allows all", func(t *testing.T) {
		opts := SearchOptions{SourceTypes: []SourceType{}}
		assert.True(t, opts.AllowsType(SourceTypeProfile))
	})
}

func TestRetrieveOptions_ZeroValue(t *testing.T) {
	var opts RetrieveOptions
	assert.Nil(t, opts.Threshold)
	assert.Zero(t, opts.Limit)
	assert.Nil(t, opts.SourceTypes)
	assert.False(t, opts.SkipExpansion)
}
