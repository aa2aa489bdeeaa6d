package realtime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestChannelTokenRoundTrip(t *testing.T) {
	token, err := GenerateChannelToken("secret", 42, time.Minute)
	assert.NoError(t, err)

	userID, err := VerifyChannelToken("secret", token)
	assert.NoError(t, err)
	assert.Equal(t, uint64(42), userID)
}

func TestChannelTokenWrongSecret(t *testing.T) {
	token, err := GenerateChannelToken("secret", 42, time.Minute)
	assert.NoError(t, err)

	_, err = VerifyChannelToken("other-secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChannelTokenExpired(t *testing.T) {
	token, err := GenerateChannelToken("secret", 42, -time.Minute)
	assert.NoError(t, err)

	_, err = VerifyChannelToken("secret", token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestChannelTokenGarbage(t *testing.T) {
	_, err := VerifyChannelToken("secret", "not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}
