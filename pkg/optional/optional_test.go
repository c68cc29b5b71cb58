package optional

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloat_JSON(t *testing.T) {
	t.Parallel()

	type row struct {
		Stop Float `json:"stop"`
	}

	b, err := json.Marshal(row{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stop":null}`, string(b))

	b, err = json.Marshal(row{Stop: Some(80)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stop":80}`, string(b))

	var r row
	require.NoError(t, json.Unmarshal([]byte(`{"stop":1.5}`), &r))
	assert.Equal(t, Some(1.5), r.Stop)

	require.NoError(t, json.Unmarshal([]byte(`{"stop":null}`), &r))
	assert.False(t, r.Stop.Valid)
}

func TestFloat_SQL(t *testing.T) {
	t.Parallel()

	v, err := Float{}.Value()
	require.NoError(t, err)
	assert.Nil(t, v)

	v, err = Some(2).Value()
	require.NoError(t, err)
	assert.Equal(t, 2.0, v)

	tests := []struct {
		name string
		src  any
		want Float
	}{
		{"null", nil, Float{}},
		{"real", 1.25, Some(1.25)},
		{"int", int64(3), Some(3)},
		{"bytes", []byte("4.5"), Some(4.5)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f Float
			require.NoError(t, f.Scan(tt.src))
			assert.Equal(t, tt.want, f)
		})
	}

	var f Float
	assert.Error(t, f.Scan("nope"))
}

func TestFloat_Accessors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 7.0, Float{}.Or(7))
	assert.Equal(t, 1.0, Some(1).Or(7))
	assert.Equal(t, "-", Float{}.String())
	assert.Equal(t, "0.5", Some(0.5).String())

	v, ok := Some(3).Get()
	assert.True(t, ok)
	assert.Equal(t, 3.0, v)
}
