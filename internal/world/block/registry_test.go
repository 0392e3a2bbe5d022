package block

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	for _, bt := range All() {
		parsed, err := Parse(bt.String())
		require.NoError(t, err)
		assert.Equal(t, bt, parsed)
	}

	parsed, err := Parse("  Obsidian ")
	require.NoError(t, err)
	assert.Equal(t, Obsidian, parsed)

	_, err = Parse("lava")
	assert.Error(t, err, "неизвестный тип должен вернуть ошибку")
}

func TestAll_ClosedEnumeration(t *testing.T) {
	assert.Len(t, All(), 9)
	assert.False(t, BlockType(9).IsValid())
	assert.Equal(t, "BlockType(42)", BlockType(42).String())
}

func TestHotbarSlot(t *testing.T) {
	bt, ok := HotbarSlot(1)
	assert.True(t, ok)
	assert.Equal(t, Dirt, bt)

	bt, ok = HotbarSlot(6)
	assert.True(t, ok)
	assert.Equal(t, Glass, bt)

	bt, ok = HotbarSlot(9)
	assert.True(t, ok)
	assert.Equal(t, Water, bt)

	_, ok = HotbarSlot(0)
	assert.False(t, ok)
	_, ok = HotbarSlot(10)
	assert.False(t, ok)
}

func TestBlockType_JSON(t *testing.T) {
	data, err := json.Marshal(map[string]BlockType{"type": Sand})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"sand"}`, string(data))

	var decoded struct {
		Type BlockType `json:"type"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"type":"ore"}`), &decoded))
	assert.Equal(t, Ore, decoded.Type)

	assert.Error(t, json.Unmarshal([]byte(`{"type":"bedrock"}`), &decoded))
}
