package utils_test

import (
	"testing"

	"installmart/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndParseJWT(t *testing.T) {
	utils.JwtKey = []byte("test_secret")

	token, err := utils.GenerateJWT("652f8a7e9d1c2b0001a3f001", "user@example.com", "customer")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := utils.ParseJWT(token)
	require.NoError(t, err)
	assert.Equal(t, "652f8a7e9d1c2b0001a3f001", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "customer", claims.Role)
}

func TestParseJWT_WrongKey(t *testing.T) {
	utils.JwtKey = []byte("test_secret")
	token, err := utils.GenerateJWT("id", "user@example.com", "customer")
	require.NoError(t, err)

	utils.JwtKey = []byte("another_secret")
	_, err = utils.ParseJWT(token)
	assert.Error(t, err)
}

func TestParseJWT_Garbage(t *testing.T) {
	utils.JwtKey = []byte("test_secret")
	_, err := utils.ParseJWT("not.a.token")
	assert.Error(t, err)
}
