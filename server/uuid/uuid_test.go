package uuid

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestNew_unique(t *testing.T) {
	t.Parallel()

	seen := map[string]struct{}{}

	for i := 0; i < 1000; i++ {
		value := New()

		assert.NotEmpty(t, value)
		assert.LessOrEqual(t, len(value), 22)

		_, ok := seen[value]
		assert.False(t, ok, "duplicate id: %s", value)

		seen[value] = struct{}{}
	}
}

func TestEncodeBase62(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "", encodeBase62([]byte{0}))
	assert.Equal(t, "1", encodeBase62([]byte{1}))
	assert.Equal(t, "Z", encodeBase62([]byte{61}))
	assert.Equal(t, "01", encodeBase62([]byte{62}))
}

func BenchmarkNewUUID_normal(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_ = uuid.New().String()
	}
}

func BenchmarkNewUUID_base62(b *testing.B) {
	for i := 0; i < b.N; i++ {
		New()
	}
}
