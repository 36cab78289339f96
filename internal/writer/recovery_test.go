package writer

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pkg.jsn.cam/chunkflow/pkg/chunkflow"
)

func TestRecovery_SequentialInIndexOrder(t *testing.T) {
	t.Parallel()

	sink := newMemSink()
	w := NewChunkWriter(sink, []byte("h\n"), discardLogger())

	encode := func(c chunkflow.Chunk) ([]byte, error) {
		return []byte{byte('a' + c.Index), '\n'}, nil
	}

	var observed []int
	r := NewRecovery(w, encode, discardLogger(), func(o chunkflow.Outcome) {
		observed = append(observed, o.Index)
	})

	outcomes := r.Run([]chunkflow.Chunk{{Index: 4}, {Index: 1}, {Index: 0, EmitHeader: true}})

	require.Len(t, outcomes, 3)
	for _, o := range outcomes {
		assert.True(t, o.OK())
		assert.Equal(t, 2, o.Attempt)
	}
	assert.Equal(t, []int{0, 1, 4}, observed)
	assert.Equal(t, "h\na\nb\ne\n", sink.String())
}

func TestRecovery_EncodeFailure(t *testing.T) {
	t.Parallel()

	errEncode := errors.New("encode failed")
	w := NewChunkWriter(newMemSink(), nil, discardLogger())

	r := NewRecovery(w, func(chunkflow.Chunk) ([]byte, error) { return nil, errEncode }, discardLogger(), nil)

	outcomes := r.Run([]chunkflow.Chunk{{Index: 2}})
	require.Len(t, outcomes, 1)
	assert.False(t, outcomes[0].OK())
	assert.ErrorIs(t, outcomes[0].Err, errEncode)
	assert.ErrorIs(t, outcomes[0].Err, chunkflow.ErrUnrecoverable)
	assert.ErrorIs(t, outcomes[0].Err, chunkflow.ErrChunkWrite)
}

func TestRecovery_Empty(t *testing.T) {
	t.Parallel()

	r := NewRecovery(NewChunkWriter(newMemSink(), nil, discardLogger()), nil, discardLogger(), nil)
	assert.Nil(t, r.Run(nil))
}
