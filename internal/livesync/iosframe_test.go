package livesync

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeSetScriptSource_RoundTrip(t *testing.T) {
	frame, err := EncodeSetScriptSource("script-1", "console.log('hi')")
	require.NoError(t, err)

	payload, err := DecodeFrame(bytes.NewReader(frame))
	require.NoError(t, err)

	var msg cdpMessage
	require.NoError(t, json.Unmarshal(payload, &msg))
	require.Equal(t, "Debugger.setScriptSource", msg.Method)
}

func TestEncodePageReload_RoundTrip(t *testing.T) {
	frame, err := EncodePageReload()
	require.NoError(t, err)

	payload, err := DecodeFrame(bytes.NewReader(frame))
	require.NoError(t, err)
	require.JSONEq(t, `{"method":"Page.reload"}`, string(payload))
}

func TestDecodeFrame_TruncatedLengthPrefix(t *testing.T) {
	_, err := DecodeFrame(bytes.NewReader([]byte{0, 0}))
	require.Error(t, err)
}

func TestWriteFrame_WritesLengthPrefixedUTF16(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeFrame(&buf, cdpMessage{Method: "Page.reload"}))

	// Every UTF-16LE code unit for ASCII JSON is two bytes, so the
	// payload length is even and the frame always has a 4-byte header.
	require.True(t, buf.Len() > 4)
	require.Equal(t, 0, (buf.Len()-4)%2)
}
