package common

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageTypeJSON(t *testing.T) {
	for mt := MsgTSuccess; mt <= MsgTKVPing; mt++ {
		data, err := json.Marshal(mt)
		require.NoError(t, err)

		var back MessageType
		require.NoError(t, json.Unmarshal(data, &back))
		assert.Equal(t, mt, back)
	}
	var mt MessageType
	assert.Error(t, json.Unmarshal([]byte(`"expire"`), &mt))
}

func TestResponseCarriesCode(t *testing.T) {
	resp := NewGetResponse(nil, false, errors.New("down"), 4)
	assert.Equal(t, "down", resp.Err)
	assert.EqualValues(t, 4, resp.Code)

	ok := NewGetResponse([]byte("v"), true, nil, 4)
	assert.Empty(t, ok.Err)
	assert.Zero(t, ok.Code, "code is only set with an error")
}
