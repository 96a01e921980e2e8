package listupdate_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/listkit/pkg/listupdate"
)

func TestOp_JSONUsesKindNames(t *testing.T) {
	t.Parallel()

	ops := []listupdate.Op{
		listupdate.Insert(0, 2),
		listupdate.Move(3, 1),
		listupdate.Change(1, 1, "x"),
	}

	data, err := json.Marshal(ops)
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"kind":"insert","position":0,"count":2},
		{"kind":"move","position":3,"count":1,"to":1},
		{"kind":"change","position":1,"count":1,"payload":"x"}
	]`, string(data))

	var decoded []listupdate.Op

	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, ops, decoded)
}

func TestKind_UnmarshalUnknown(t *testing.T) {
	t.Parallel()

	var kind listupdate.Kind

	require.ErrorIs(t, kind.UnmarshalText([]byte("swap")), listupdate.ErrUnknownKind)

	_, err := listupdate.Kind(0).MarshalText()
	require.ErrorIs(t, err, listupdate.ErrUnknownKind)
}

func TestRecorder_RecordsAndResets(t *testing.T) {
	t.Parallel()

	var rec listupdate.Recorder

	rec.OnInserted(1, 2)
	rec.OnRemoved(0, 1)
	rec.OnMoved(2, 0)
	rec.OnChanged(0, 3, nil)

	assert.Equal(t, []listupdate.Op{
		listupdate.Insert(1, 2),
		listupdate.Remove(0, 1),
		listupdate.Move(2, 0),
		listupdate.Change(0, 3, nil),
	}, rec.Ops)
	assert.Equal(t, "move(2->0)", rec.Ops[2].String())

	rec.Reset()
	assert.Empty(t, rec.Ops)
}
