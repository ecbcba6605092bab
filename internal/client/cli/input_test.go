package cli

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGetSimpleText(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("hello world\n"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "hello world" {
		t.Fatalf("got %q, err=%v", got, err)
	}
	require.Equal(t, "Name?\n> ", out.String())
}

func TestGetSimpleTextEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader("lastline"))
	var out bytes.Buffer
	got, err := GetSimpleText(in, "Name?", &out)
	if err != nil || got != "lastline" {
		t.Fatalf("got %q, err=%v", got, err)
	}
}

func TestGetSimpleTextEmptyEOF(t *testing.T) {
	in := bufio.NewReader(strings.NewReader(""))
	_, err := GetSimpleText(in, "Name?", &bytes.Buffer{})
	require.Error(t, err)
}

func TestGetPassword_Terminal(t *testing.T) {
	oldRead, oldTerm := readPassword, isTerminal
	t.Cleanup(func() { readPassword, isTerminal = oldRead, oldTerm })
	isTerminal = func(int) bool { return true }

	readPassword = func(int) ([]byte, error) { return []byte("s3cret"), nil }
	var out bytes.Buffer
	pw, err := GetPassword(bufio.NewReader(strings.NewReader("ignored\n")), &out)
	require.NoError(t, err)
	require.Equal(t, []byte("s3cret"), pw)
	require.Equal(t, "Enter password: \n", out.String())

	readPassword = func(int) ([]byte, error) { return nil, errors.New("boom") }
	_, err = GetPassword(bufio.NewReader(strings.NewReader("")), &out)
	require.Error(t, err)
}

func TestGetPassword_Piped(t *testing.T) {
	oldTerm := isTerminal
	t.Cleanup(func() { isTerminal = oldTerm })
	isTerminal = func(int) bool { return false }

	in := bufio.NewReader(strings.NewReader(" spaced pass \r\nnext\n"))
	pw, err := GetPassword(in, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, []byte(" spaced pass "), pw)

	pw, err = GetPassword(in, &bytes.Buffer{})
	require.NoError(t, err)
	require.Equal(t, []byte("next"), pw)

	_, err = GetPassword(in, &bytes.Buffer{})
	require.Error(t, err)
}
