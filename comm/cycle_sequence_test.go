package comm

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aaronwong1989/sigmatcp/codec"
)

var seq codec.Sequence32 = NewCycleSequence(1)

func TestCycleSequence_NextVal(t *testing.T) {
	s := NewCycleSequence(3)
	seen := make(map[int32]struct{})
	for i := 0; i < 600; i++ {
		v := s.NextVal()
		_, dup := seen[v]
		assert.False(t, dup, "duplicate %d", v)
		seen[v] = struct{}{}
		assert.Equal(t, int32(3), (v>>nodeShift)&nodeMask)
	}
	t.Logf("%s", s)
}

func BenchmarkCycleSequence_NextVal(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		seq.NextVal()
	}
}
