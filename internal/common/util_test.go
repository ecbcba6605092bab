package common

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeRandHexString(t *testing.T) {
	s, err := MakeRandHexString(16)
	require.NoError(t, err)
	assert.Len(t, s, 32)
	_, err = hex.DecodeString(s)
	assert.NoError(t, err)

	other, err := MakeRandHexString(16)
	require.NoError(t, err)
	assert.NotEqual(t, s, other)

	empty, err := MakeRandHexString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestWipeByteArray(t *testing.T) {
	pw := []byte("field-pass")
	WipeByteArray(pw)
	assert.Equal(t, make([]byte, len("field-pass")), pw)

	assert.NotPanics(t, func() { WipeByteArray(nil) })
}

func TestNormalizeSerial(t *testing.T) {
	assert.Equal(t, "HITACHI-110-A", NormalizeSerial("  HITACHI-110-A\t"))
	assert.Equal(t, "", NormalizeSerial(" \n "))
	assert.Equal(t, "a b", NormalizeSerial("a b"))
}
