package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
)

type fakeRemote struct {
	resp     *api.SessionResponse
	commands []api.SessionCommand
	cmdErr   error
}

func (f *fakeRemote) CreateSession(_ context.Context, _ string, _ int) (*api.SessionResponse, error) {
	return f.resp, nil
}

func (f *fakeRemote) SessionCommand(_ context.Context, _ string, cmd api.SessionCommand) error {
	f.commands = append(f.commands, cmd)
	return f.cmdErr
}

func boolPtr(b bool) *bool { return &b }

func available(id string) *api.SessionResponse {
	return &api.SessionResponse{SyncDataAvailable: boolPtr(true), Session: &api.SessionInfo{ID: id}}
}

func TestOpenComplete(t *testing.T) {
	remote := &fakeRemote{resp: available("sess-1")}
	c := NewController(remote, zap.NewNop())

	s, err := c.Open(context.Background(), "sub-1", 10000)
	require.NoError(t, err)
	require.Equal(t, "sess-1", s.ID())
	require.True(t, s.DataAvailable())
	require.Equal(t, Draining, s.State())
	require.NoError(t, s.Guard())

	require.NoError(t, c.Complete(context.Background(), s))
	require.Equal(t, Completed, s.State())
	require.ErrorIs(t, s.Guard(), api.ErrSessionTerminated)
	require.Equal(t, []api.SessionCommand{api.SessionComplete}, remote.commands)
}

func TestTransitionTwiceFails(t *testing.T) {
	tests := []struct {
		name   string
		first  func(*Controller, *Session) error
		second func(*Controller, *Session) error
	}{
		{"complete twice", (*Controller).completeBg, (*Controller).completeBg},
		{"cancel after complete", (*Controller).completeBg, (*Controller).cancelBg},
		{"complete after cancel", (*Controller).cancelBg, (*Controller).completeBg},
		{"cancel twice", (*Controller).cancelBg, (*Controller).cancelBg},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			remote := &fakeRemote{resp: available("sess-1")}
			c := NewController(remote, zap.NewNop())
			s, err := c.Open(context.Background(), "sub-1", 100)
			require.NoError(t, err)

			require.NoError(t, tt.first(c, s))
			err = tt.second(c, s)

			var perr *api.ProtocolError
			require.ErrorAs(t, err, &perr)
			require.ErrorIs(t, err, api.ErrInvalidTransition)
			require.Len(t, remote.commands, 1, "second transition must not reach the server")
		})
	}
}

func (c *Controller) completeBg(s *Session) error { return c.Complete(context.Background(), s) }
func (c *Controller) cancelBg(s *Session) error   { return c.Cancel(context.Background(), s) }

func TestTransitionNeverOpened(t *testing.T) {
	remote := &fakeRemote{}
	c := NewController(remote, zap.NewNop())

	err := c.Cancel(context.Background(), nil)
	require.ErrorIs(t, err, api.ErrInvalidTransition)
	require.Empty(t, remote.commands)
}

func TestOpen_NoData(t *testing.T) {
	remote := &fakeRemote{resp: &api.SessionResponse{SyncDataAvailable: boolPtr(false)}}
	c := NewController(remote, zap.NewNop())

	s, err := c.Open(context.Background(), "sub-1", 100)
	require.NoError(t, err)
	require.False(t, s.DataAvailable())
	require.Equal(t, Closed, s.State())
	require.ErrorIs(t, c.Complete(context.Background(), s), api.ErrInvalidTransition)
}

func TestOpen_AvailableWithoutID(t *testing.T) {
	remote := &fakeRemote{resp: &api.SessionResponse{SyncDataAvailable: boolPtr(true)}}
	c := NewController(remote, zap.NewNop())

	_, err := c.Open(context.Background(), "sub-1", 100)
	var perr *api.ProtocolError
	require.ErrorAs(t, err, &perr)
}

func TestFailedCommandStillTerminates(t *testing.T) {
	remote := &fakeRemote{resp: available("sess-1"), cmdErr: errors.New("boom")}
	c := NewController(remote, zap.NewNop())
	s, err := c.Open(context.Background(), "sub-1", 100)
	require.NoError(t, err)

	require.Error(t, c.Complete(context.Background(), s))
	require.Equal(t, Completed, s.State())
	require.ErrorIs(t, c.Cancel(context.Background(), s), api.ErrInvalidTransition)
}

func TestResume(t *testing.T) {
	remote := &fakeRemote{}
	c := NewController(remote, zap.NewNop())

	s := c.Resume("sess-9")
	require.NoError(t, c.Cancel(context.Background(), s))
	require.Equal(t, []api.SessionCommand{api.SessionCancel}, remote.commands)
}

func TestOpen_MissingAvailabilityIsProtocolError(t *testing.T) {
	tests := []struct {
		name string
		resp *api.SessionResponse
	}{
		{"nil response", nil},
		{"no syncDataAvailable", &api.SessionResponse{Session: &api.SessionInfo{ID: "sess-1"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewController(&fakeRemote{resp: tt.resp}, zap.NewNop())

			s, err := c.Open(context.Background(), "sub-1", 100)

			var perr *api.ProtocolError
			require.ErrorAs(t, err, &perr)
			require.Nil(t, s)
		})
	}
}
