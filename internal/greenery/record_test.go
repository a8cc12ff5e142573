package greenery

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObjectKey(t *testing.T) {
	key, err := ObjectKey("g1")
	require.NoError(t, err)
	assert.Equal(t, "general/g1.json", key)

	key, err = ObjectKey("Oak_Street-42.v2")
	require.NoError(t, err)
	assert.Equal(t, "general/Oak_Street-42.v2.json", key)
}

func TestValidateIDRejectsUnsafeIdentifiers(t *testing.T) {
	bad := []string{
		"",
		".",
		"..",
		"../etc/passwd",
		"a/b",
		`a\b`,
		"with space",
		"tab\tid",
		"ünïcode",
		"semi;colon",
		strings.Repeat("a", maxIDLength+1),
	}
	for _, id := range bad {
		err := ValidateID(id)
		assert.Error(t, err, "id %q", id)
		assert.True(t, errors.Is(err, ErrInvalidID), "id %q should wrap ErrInvalidID, got %v", id, err)
	}

	assert.NoError(t, ValidateID(strings.Repeat("a", maxIDLength)))
}

func TestGeneralInfoMarshalIsCanonical(t *testing.T) {
	info := GeneralInfo{
		GreeneryID: "g1",
		Name:       "Oak",
		Phone:      "555-1",
		Email:      "a@b.com",
		Address:    "1 Main St",
	}

	data, err := info.Marshal()
	require.NoError(t, err)
	assert.Equal(t, `{"greenery_id":"g1","name":"Oak","phone":"555-1","email":"a@b.com","address":"1 Main St"}`, string(data))
}
