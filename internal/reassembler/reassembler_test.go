package reassembler

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readAll(t *testing.T, a *Reassembler, r *bytes.Reader) []string {
	t.Helper()
	var got []string
	for {
		for {
			res, msg := a.Next()
			switch res {
			case Message:
				got = append(got, string(msg))
				continue
			case FinishErr:
				got = append(got, "<err>")
				continue
			}
			break
		}
		_, err := a.ReadMore(r)
		if err != nil {
			break
		}
	}
	// Drain whatever completed after the final read.
	for {
		res, msg := a.Next()
		if res != Message {
			break
		}
		got = append(got, string(msg))
	}
	return got
}

func TestSingleMessageOneRead(t *testing.T) {
	a := New(DefaultCapacity)
	r := bytes.NewReader([]byte("PING :token\r\n"))
	got := readAll(t, a, r)
	require.Len(t, got, 1)
	assert.Equal(t, "PING :token\r\n", got[0])
}

func TestMultipleMessagesOneRead(t *testing.T) {
	a := New(DefaultCapacity)
	r := bytes.NewReader([]byte("NICK a\r\nUSER a 0 * :A\r\n"))
	got := readAll(t, a, r)
	require.Len(t, got, 2)
	assert.Equal(t, "NICK a\r\n", got[0])
	assert.Equal(t, "USER a 0 * :A\r\n", got[1])
}

func TestMessageSplitAcrossReads(t *testing.T) {
	full := "NICK alice\r\n"
	for split := 1; split < len(full); split++ {
		first, second := full[:split], full[split:]
		aa := New(DefaultCapacity)
		n1, err := aa.ReadMore(strings.NewReader(first))
		require.NoError(t, err)
		require.Equal(t, len(first), n1)
		res, _ := aa.Next()
		assert.Equal(t, Continue, res)

		n2, err := aa.ReadMore(strings.NewReader(second))
		require.NoError(t, err)
		require.Equal(t, len(second), n2)
		res, msg := aa.Next()
		require.Equal(t, Message, res)
		assert.Equal(t, full, string(msg))
	}
}

func TestReversedTerminatorIsFinishErr(t *testing.T) {
	a := New(DefaultCapacity)
	r := bytes.NewReader([]byte("NICK a\n\r"))
	_, err := a.ReadMore(r)
	require.NoError(t, err)

	res, _ := a.Next()
	assert.Equal(t, FinishErr, res)
}

func TestLoneCRThenLoneLFFormsEmptyMessage(t *testing.T) {
	a := New(DefaultCapacity)
	_, err := a.ReadMore(strings.NewReader("\r"))
	require.NoError(t, err)
	res, _ := a.Next()
	assert.Equal(t, Continue, res)

	_, err = a.ReadMore(strings.NewReader("\n"))
	require.NoError(t, err)
	res, msg := a.Next()
	assert.Equal(t, Message, res)
	assert.Equal(t, "\r\n", string(msg))
}

func TestOverlongMessageWithoutTerminatorResets(t *testing.T) {
	a := New(MaxMessageSize)
	payload := strings.Repeat("x", MaxMessageSize)
	_, err := a.ReadMore(strings.NewReader(payload))
	require.NoError(t, err)
	res, _ := a.Next()
	assert.Equal(t, Continue, res)

	_, err = a.ReadMore(strings.NewReader("y"))
	assert.ErrorIs(t, err, ErrOverlong)
}

func Test510BytePayloadFitsExactly(t *testing.T) {
	a := New(MaxMessageSize)
	line := strings.Repeat("a", 510) + "\r\n"
	require.Equal(t, MaxMessageSize, len(line))

	_, err := a.ReadMore(strings.NewReader(line))
	require.NoError(t, err)
	res, msg := a.Next()
	require.Equal(t, Message, res)
	assert.Equal(t, line, string(msg))
}

func TestEmptyReadYieldsContinue(t *testing.T) {
	a := New(DefaultCapacity)
	res, _ := a.Next()
	assert.Equal(t, Continue, res)
}

func TestNewRaisesCapacityToMaxMessageSize(t *testing.T) {
	a := New(1)
	assert.GreaterOrEqual(t, len(a.buf), MaxMessageSize)
}
