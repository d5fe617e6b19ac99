package world

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeRewards_DefaultsChance(t *testing.T) {
	item := uuid.New()
	r, err := DecodeRewards([]byte(`{"currency": 5, "items": [{"item_id": "` + item.String() + `", "quantity": 2}]}`))
	require.NoError(t, err)
	require.NotNil(t, r.Currency)
	assert.Equal(t, int64(5), *r.Currency)
	require.Len(t, r.Items, 1)
	assert.Equal(t, 1.0, r.Items[0].Chance)
	assert.Nil(t, r.Experience)
	assert.Nil(t, r.Stats)
}

func TestDecodeRewards_EmptyAndNull(t *testing.T) {
	for _, in := range []string{"", "null", "{}"} {
		r, err := DecodeRewards([]byte(in))
		require.NoError(t, err, in)
		assert.Equal(t, RewardSpec{}, r, in)
	}
}

func TestEncodeRewards_OmitsAbsentFields(t *testing.T) {
	heal := 20
	data, err := EncodeRewards(RewardSpec{Stats: &StatChanges{Health: &heal}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"stat_changes": {"health": 20}}`, string(data))
}

func TestDecodeRewards_Malformed(t *testing.T) {
	_, err := DecodeRewards([]byte(`{"currency": "lots"}`))
	assert.Error(t, err)
}

func TestEnumValidity(t *testing.T) {
	assert.True(t, LocationTravel.Valid())
	assert.False(t, LocationType("palace").Valid())
	assert.True(t, ActionNavigation.Valid())
	assert.False(t, ActionType("ritual").Valid())
	assert.True(t, CategoryKnowledge.Valid())
	assert.False(t, ActionCategory("").Valid())
	assert.True(t, UnlockSkill.Valid())
	assert.False(t, UnlockKind("guild").Valid())
}
