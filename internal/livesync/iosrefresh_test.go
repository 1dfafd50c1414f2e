package livesync

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/nativescript-oss/livesync/internal/obslog"
	"github.com/nativescript-oss/livesync/pkg/pkgmodel"
)

type fakeDevice struct {
	id       string
	platform pkgmodel.Platform
	emulator bool
}

func (d fakeDevice) ID() string                 { return d.id }
func (d fakeDevice) Platform() pkgmodel.Platform { return d.platform }
func (d fakeDevice) IsEmulator() bool            { return d.emulator }

type fakeConn struct {
	bytes.Buffer
	closed bool
}

func (c *fakeConn) Close() error {
	c.closed = true
	return nil
}

// decodedPayloads decodes every UTF-16-LE frame written to conn and
// returns their UTF-8 JSON payloads joined together.
func decodedPayloads(t *testing.T, conn *fakeConn) string {
	t.Helper()
	r := bytes.NewReader(conn.Bytes())
	var out bytes.Buffer
	for r.Len() > 0 {
		payload, err := DecodeFrame(r)
		require.NoError(t, err)
		out.Write(payload)
	}
	return out.String()
}

type fakeTransport struct {
	conn    *fakeConn
	err     error
	connect int
}

func (t *fakeTransport) Connect(ctx context.Context, device Device) (io.ReadWriteCloser, error) {
	t.connect++
	if t.err != nil {
		return nil, t.err
	}
	return t.conn, nil
}

type fakeRestarter struct {
	calls int
}

func (r *fakeRestarter) Restart(ctx context.Context, device Device) error {
	r.calls++
	return nil
}

func TestIOSRefresher_RestartsOnNonFastSyncFile(t *testing.T) {
	transport := &fakeTransport{conn: &fakeConn{}}
	restarter := &fakeRestarter{}
	r := NewIOSRefresher(transport, restarter, true, obslog.NewNop())

	err := r.Refresh(context.Background(), fakeDevice{id: "d1", platform: pkgmodel.IOS}, []ChangedFile{
		{DevicePath: "app/native.so"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, restarter.calls)
	require.Equal(t, 0, transport.connect, "an ineligible file must restart without attempting the debugger socket")
}

func TestIOSRefresher_RestartsOnConnectFailure(t *testing.T) {
	transport := &fakeTransport{err: errors.New("refused")}
	restarter := &fakeRestarter{}
	r := NewIOSRefresher(transport, restarter, true, obslog.NewNop())

	err := r.Refresh(context.Background(), fakeDevice{id: "d1", platform: pkgmodel.IOS}, []ChangedFile{
		{DevicePath: "app/main.js", Content: "1"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, restarter.calls)
}

func TestIOSRefresher_SetsScriptSourceForScriptsUnderLiveEdit(t *testing.T) {
	conn := &fakeConn{}
	transport := &fakeTransport{conn: conn}
	restarter := &fakeRestarter{}
	r := NewIOSRefresher(transport, restarter, true, obslog.NewNop())

	err := r.Refresh(context.Background(), fakeDevice{id: "d1", platform: pkgmodel.IOS}, []ChangedFile{
		{DevicePath: "app/main.js", Content: "console.log(1)"},
	})
	require.NoError(t, err)
	require.Equal(t, 0, restarter.calls)
	require.Contains(t, decodedPayloads(t, conn), "setScriptSource")
	require.True(t, conn.closed)
}

func TestIOSRefresher_BareReloadForFastSyncNonScript(t *testing.T) {
	conn := &fakeConn{}
	transport := &fakeTransport{conn: conn}
	restarter := &fakeRestarter{}
	r := NewIOSRefresher(transport, restarter, true, obslog.NewNop())

	err := r.Refresh(context.Background(), fakeDevice{id: "d1", platform: pkgmodel.IOS}, []ChangedFile{
		{DevicePath: "app/app.css", Content: "body{}"},
	})
	require.NoError(t, err)
	require.NotContains(t, decodedPayloads(t, conn), "setScriptSource")
	require.Contains(t, decodedPayloads(t, conn), "Page.reload")
}

func TestIOSRefresher_NoLiveEditSkipsSetScriptSource(t *testing.T) {
	conn := &fakeConn{}
	transport := &fakeTransport{conn: conn}
	restarter := &fakeRestarter{}
	r := NewIOSRefresher(transport, restarter, false, obslog.NewNop())

	err := r.Refresh(context.Background(), fakeDevice{id: "d1", platform: pkgmodel.IOS}, []ChangedFile{
		{DevicePath: "app/main.js", Content: "console.log(1)"},
	})
	require.NoError(t, err)
	require.NotContains(t, decodedPayloads(t, conn), "setScriptSource")
}

func TestAndroidRefreshStrategy_DelegatesToService(t *testing.T) {
	svc := &fakeAndroidRefresher{}
	strategy := &AndroidRefreshStrategy{Service: svc}
	err := strategy.Refresh(context.Background(), fakeDevice{id: "d1", platform: pkgmodel.Android}, nil)
	require.NoError(t, err)
	require.Equal(t, 1, svc.calls)
}

type fakeAndroidRefresher struct {
	calls int
}

func (f *fakeAndroidRefresher) Reload(ctx context.Context, device Device) error {
	f.calls++
	return nil
}
