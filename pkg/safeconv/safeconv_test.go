package safeconv_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/listkit/pkg/safeconv"
)

func TestIntToUint32(t *testing.T) {
	t.Parallel()

	got, err := safeconv.IntToUint32(42)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), got)

	got, err = safeconv.IntToUint32(math.MaxUint32)
	require.NoError(t, err)
	assert.Equal(t, uint32(math.MaxUint32), got)

	_, err = safeconv.IntToUint32(-1)
	require.ErrorIs(t, err, safeconv.ErrOutOfRange)

	_, err = safeconv.IntToUint32(math.MaxUint32 + 1)
	require.ErrorIs(t, err, safeconv.ErrOutOfRange)
}

func TestUint64ToInt64(t *testing.T) {
	t.Parallel()

	got, err := safeconv.Uint64ToInt64(math.MaxInt64)
	require.NoError(t, err)
	assert.Equal(t, int64(math.MaxInt64), got)

	_, err = safeconv.Uint64ToInt64(math.MaxInt64 + 1)
	require.ErrorIs(t, err, safeconv.ErrOutOfRange)
}

func TestMustIntToUint64(t *testing.T) {
	t.Parallel()

	assert.Equal(t, uint64(7), safeconv.MustIntToUint64(7))
	assert.Panics(t, func() { safeconv.MustIntToUint64(-1) })
}
