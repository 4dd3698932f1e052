package ircmsg

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleCommand(t *testing.T) {
	msg, err := Parse("PING")
	require.NoError(t, err)
	assert.Equal(t, "PING", msg.Command)
	assert.Empty(t, msg.Prefix)
	assert.Empty(t, msg.Params)
}

func TestParseWithPrefixAndParams(t *testing.T) {
	msg, err := Parse(":nick!user@host PRIVMSG #chan :hello there")
	require.NoError(t, err)
	assert.Equal(t, "nick!user@host", msg.Prefix)
	assert.Equal(t, "PRIVMSG", msg.Command)
	assert.Equal(t, []string{"#chan", "hello there"}, msg.Params)
}

func TestParseNumericCommand(t *testing.T) {
	msg, err := Parse("001 alice :Welcome")
	require.NoError(t, err)
	assert.Equal(t, "001", msg.Command)
	assert.Equal(t, []string{"alice", "Welcome"}, msg.Params)
}

func TestParseTrailingParamMayContainSpaces(t *testing.T) {
	msg, err := Parse("PRIVMSG #chan :this has multiple words")
	require.NoError(t, err)
	assert.Equal(t, []string{"#chan", "this has multiple words"}, msg.Params)
}

func TestParseTrailingParamMayBeEmpty(t *testing.T) {
	msg, err := Parse("PRIVMSG #chan :")
	require.NoError(t, err)
	assert.Equal(t, []string{"#chan", ""}, msg.Params)
}

func TestParseRejectsEmptyLine(t *testing.T) {
	_, err := Parse("")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseRejectsEmptyPrefix(t *testing.T) {
	_, err := Parse(": PRIVMSG #chan :hi")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseRejectsMalformedNumeric(t *testing.T) {
	_, err := Parse("12a alice :hi")
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseAcceptsExactlyMaxParams(t *testing.T) {
	params := make([]string, MaxParams)
	for i := range params {
		params[i] = "p"
	}
	line := "CMD " + strings.Join(params, " ")
	msg, err := Parse(line)
	require.NoError(t, err)
	assert.Len(t, msg.Params, MaxParams)
}

func TestParseRejectsMoreThanMaxParams(t *testing.T) {
	params := make([]string, MaxParams+1)
	for i := range params {
		params[i] = "p"
	}
	line := "CMD " + strings.Join(params, " ")
	_, err := Parse(line)
	assert.ErrorIs(t, err, ErrSyntax)
}

func TestParseCollapsesRepeatedSpaces(t *testing.T) {
	msg, err := Parse("NICK    alice")
	require.NoError(t, err)
	assert.Equal(t, []string{"alice"}, msg.Params)
}

func TestParseLettersOnlyCommandRejectsMixedAlnum(t *testing.T) {
	_, err := Parse("NI3K alice")
	assert.ErrorIs(t, err, ErrSyntax)
}
