package livesync

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// cdpMessage is the Chrome-DevTools-Protocol message shape sent over the
// iOS debugger socket (spec §6).
type cdpMessage struct {
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// SetScriptSourceParams are the parameters of a Debugger.setScriptSource
// message: the target script and its new contents.
type SetScriptSourceParams struct {
	ScriptID     string `json:"scriptId"`
	ScriptSource string `json:"scriptSource"`
}

// EncodeSetScriptSource builds the wire frame for a single
// Debugger.setScriptSource call (spec §4.7).
func EncodeSetScriptSource(scriptID, source string) ([]byte, error) {
	return encodeFrame(cdpMessage{
		Method: "Debugger.setScriptSource",
		Params: SetScriptSourceParams{ScriptID: scriptID, ScriptSource: source},
	})
}

// EncodePageReload builds the wire frame for the single Page.reload call
// that follows a batch of setScriptSource messages (spec §4.7).
func EncodePageReload() ([]byte, error) {
	return encodeFrame(cdpMessage{Method: "Page.reload"})
}

// encodeFrame marshals msg to JSON, encodes it as UTF-16-LE, and prefixes
// the result with a 4-byte big-endian payload-length-in-bytes header
// (spec §6's wire protocol). Reproduced exactly for wire compatibility
// with the inspector (spec §9's design note).
func encodeFrame(msg cdpMessage) ([]byte, error) {
	payload, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("marshal cdp message: %w", err)
	}

	enc := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewEncoder()
	utf16Payload, _, err := transform.Bytes(enc, payload)
	if err != nil {
		return nil, fmt.Errorf("encode utf16le payload: %w", err)
	}

	frame := make([]byte, 4+len(utf16Payload))
	binary.BigEndian.PutUint32(frame[:4], uint32(len(utf16Payload)))
	copy(frame[4:], utf16Payload)
	return frame, nil
}

// writeFrame encodes msg and writes it to w in one call, the unit the
// debugger socket transport sends.
func writeFrame(w io.Writer, msg cdpMessage) error {
	frame, err := encodeFrame(msg)
	if err != nil {
		return err
	}
	_, err = w.Write(frame)
	return err
}

// DecodeFrame reads one length-prefixed UTF-16-LE frame from r and
// returns its decoded UTF-8 JSON payload; used by tests and by any
// caller that needs to read the inspector's own replies.
func DecodeFrame(r io.Reader) ([]byte, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, fmt.Errorf("read frame length: %w", err)
	}
	n := binary.BigEndian.Uint32(lenBuf[:])

	utf16Payload := make([]byte, n)
	if _, err := io.ReadFull(r, utf16Payload); err != nil {
		return nil, fmt.Errorf("read frame payload: %w", err)
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	utf8Payload, _, err := transform.Bytes(dec, utf16Payload)
	if err != nil {
		return nil, fmt.Errorf("decode utf16le payload: %w", err)
	}
	return utf8Payload, nil
}
