package types

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkID_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		input ChunkID
		want  bool
	}{
		{
			name:  "Valid ID (24 hex chars)",
			input: ChunkID(strings.Repeat("a", 24)),
			want:  true,
		},
		{
			name:  "Too Short",
			input: ChunkID("abc"),
			want:  false,
		},
		{
			name:  "Empty",
			input: ChunkID(""),
			want:  false,
		},
		{
			name:  "Not Hex",
			input: ChunkID(strings.Repeat("z", 24)),
			want:  false,
		},
		{
			name:  "Too Long",
			input: ChunkID(strings.Repeat("a", 25)),
			want:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.input.IsValid())
		})
	}
}

func TestChunkID_String(t *testing.T) {
	s := "aabbcc"
	id := ChunkID(s)
	assert.Equal(t, s, id.String())
	assert.False(t, id.IsZero())

	var zero ChunkID
	assert.True(t, zero.IsZero())
}

func TestNewChunkID_Unique(t *testing.T) {
	const n = 10000
	const workers = 8

	var mu sync.Mutex
	seen := make(map[ChunkID]struct{}, n)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < n/workers; i++ {
				id := NewChunkID()
				mu.Lock()
				seen[id] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	require.Len(t, seen, n, "每个 ID 都应该是唯一的")
	for id := range seen {
		assert.True(t, id.IsValid(), "ID %s 格式不合法", id)
		break
	}
}

func TestFixedID(t *testing.T) {
	gen := FixedID("000000000000000000000001")
	assert.Equal(t, gen(), gen())
}
