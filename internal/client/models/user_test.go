package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeUser_Bare(t *testing.T) {
	data := []byte(`{"id":"u1","name":"Ann","email":"a@b.com","token":"t1"}`)

	u, err := DecodeUser(data)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
	assert.Equal(t, "Ann", u.Name)
	assert.Equal(t, "t1", u.Token)
	assert.Equal(t, VerifiedNone, u.Verified)
}

func TestDecodeUser_Wrapped(t *testing.T) {
	data := []byte(`{"message":"updated","user":{"id":"u1","name":"Ann","did":"did:ethr:0xabc","verified":"pending"}}`)

	u, err := DecodeUser(data)
	require.NoError(t, err)
	require.NotNil(t, u)
	assert.Equal(t, "u1", u.ID)
	require.NotNil(t, u.DID)
	assert.Equal(t, "did:ethr:0xabc", *u.DID)
	assert.Equal(t, VerifiedPending, u.Verified)
}

func TestDecodeUser_EmptyObject(t *testing.T) {
	u, err := DecodeUser([]byte(`{}`))
	require.NoError(t, err)
	assert.Nil(t, u)
}

func TestDecodeUser_Invalid(t *testing.T) {
	_, err := DecodeUser([]byte(`not json`))
	require.Error(t, err)
}

func TestUserEncodeRoundTrip(t *testing.T) {
	did := "did:ethr:0x1"
	u := &User{ID: "u2", Name: "Bob", Token: "t2", DID: &did, Verified: VerifiedYes}

	data, err := u.Encode()
	require.NoError(t, err)

	decoded, err := DecodeUser(data)
	require.NoError(t, err)
	assert.Equal(t, u, decoded)
}
