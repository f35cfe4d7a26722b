package normalizer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClean(t *testing.T) {
	assert.Equal(t, "hello world", Clean("  hello   world  "))
	assert.Equal(t, "a b c", Clean("a\tb\n c"))
	assert.Equal(t, "", Clean("   \n\t "))
}

func TestExtractMetadata(t *testing.T) {
	t.Run("기본 측정값", func(t *testing.T) {
		md := ExtractMetadata("Broken Light", "It Flickers")

		assert.Equal(t, 4, md.WordCount)
		assert.Equal(t, 24, md.CharCount)
		assert.InDelta(t, 4.0/24.0, md.UppercaseRatio, 1e-9)
		assert.False(t, md.HasURLs)
	})

	t.Run("빈 입력은 0", func(t *testing.T) {
		md := ExtractMetadata("", "")

		assert.Zero(t, md.WordCount)
		assert.Zero(t, md.CharCount)
		assert.Zero(t, md.UppercaseRatio)
		assert.False(t, md.HasURLs)
	})

	t.Run("URL 탐지", func(t *testing.T) {
		assert.True(t, ExtractMetadata("see", "https://example.com").HasURLs)
		assert.True(t, ExtractMetadata("see", "http://example.com").HasURLs)
		assert.False(t, ExtractMetadata("see", "example.com").HasURLs)
	})
}

func TestPreprocess(t *testing.T) {
	result := Preprocess("  Broken   streetlight ", "It\tflickers  all night ")

	assert.Equal(t, "Broken streetlight", result.CleanTitle)
	assert.Equal(t, "It flickers all night", result.CleanDescription)
	assert.Equal(t, 6, result.Metadata.WordCount)
}
