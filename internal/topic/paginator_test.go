package topic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/netfile/campaign-sync/internal/api"
)

// dataset serves total records in offset/limit pages.
type dataset struct {
	total   int
	offsets []int
	failAt  int // 1-based request number that fails, 0 = never
	calls   int
}

func (d *dataset) ReadTopic(_ context.Context, _, _ string, limit, offset int) (*api.TopicPage, error) {
	d.calls++
	d.offsets = append(d.offsets, offset)
	if d.failAt == d.calls {
		return nil, &api.TransportError{Method: "GET", URL: "topic", StatusCode: 500}
	}

	end := min(offset+limit, d.total)
	var results []json.RawMessage
	for i := offset; i < end; i++ {
		results = append(results, json.RawMessage(fmt.Sprintf(`{"n":%d}`, i)))
	}
	return &api.TopicPage{
		Results:         results,
		Offset:          offset,
		Limit:           limit,
		PageNumber:      offset/limit + 1,
		TotalCount:      d.total,
		HasNextPage:     end < d.total,
		HasPreviousPage: offset > 0,
	}, nil
}

type stubSession struct {
	id  string
	err error
}

func (s *stubSession) ID() string   { return s.id }
func (s *stubSession) Guard() error { return s.err }

func TestReader_YieldsEveryPage(t *testing.T) {
	tests := []struct {
		total    int
		pageSize int
		sizes    []int
	}{
		{5, 2, []int{2, 2, 1}},
		{4, 2, []int{2, 2}},
		{1, 1000, []int{1}},
		{3000, 1000, []int{1000, 1000, 1000}},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d/%d", tt.total, tt.pageSize), func(t *testing.T) {
			ds := &dataset{total: tt.total}
			r := NewPaginator(ds, zap.NewNop()).Read(&stubSession{id: "sess-1"}, "filing-activities", tt.pageSize)

			var sizes []int
			var hasNext []bool
			for page, err := range r.All(context.Background()) {
				require.NoError(t, err)
				sizes = append(sizes, len(page.Results))
				hasNext = append(hasNext, page.HasNextPage)
			}

			require.Equal(t, tt.sizes, sizes)
			for i, off := range ds.offsets {
				require.Equal(t, i*tt.pageSize, off, "offsets advance by page size")
			}
			for i, hn := range hasNext {
				require.Equal(t, i < len(hasNext)-1, hn)
			}
			require.Equal(t, tt.total, r.Records())
			require.Equal(t, len(tt.sizes), r.Pages())
		})
	}
}

func TestReader_EmptyTopic(t *testing.T) {
	ds := &dataset{total: 0}
	r := NewPaginator(ds, zap.NewNop()).Read(&stubSession{id: "sess-1"}, "element-activities", 50)

	page, err := r.Next(context.Background())
	require.NoError(t, err)
	require.Empty(t, page.Results)
	require.Zero(t, page.TotalCount)

	_, err = r.Next(context.Background())
	require.ErrorIs(t, err, ErrDone)
	require.Equal(t, 1, ds.calls)
}

func TestReader_NotRestartable(t *testing.T) {
	ds := &dataset{total: 3}
	r := NewPaginator(ds, zap.NewNop()).Read(&stubSession{id: "sess-1"}, "t", 2)

	n := 0
	for _, err := range r.All(context.Background()) {
		require.NoError(t, err)
		n++
	}
	require.Equal(t, 2, n)

	for range r.All(context.Background()) {
		t.Fatal("exhausted reader yielded again")
	}
	require.Equal(t, 2, ds.calls)
}

func TestReader_FailureIsSticky(t *testing.T) {
	ds := &dataset{total: 10, failAt: 2}
	r := NewPaginator(ds, zap.NewNop()).Read(&stubSession{id: "sess-1"}, "transaction-activities", 2)

	_, err := r.Next(context.Background())
	require.NoError(t, err)

	_, err = r.Next(context.Background())
	var terr *api.TransportError
	require.ErrorAs(t, err, &terr)
	require.Contains(t, err.Error(), "offset 2")

	_, again := r.Next(context.Background())
	require.Equal(t, err, again)
	require.Equal(t, 2, ds.calls)
}

func TestReader_TerminatedSession(t *testing.T) {
	ds := &dataset{total: 10}
	s := &stubSession{id: "sess-1", err: api.ErrSessionTerminated}
	r := NewPaginator(ds, zap.NewNop()).Read(s, "t", 2)

	_, err := r.Next(context.Background())
	require.True(t, errors.Is(err, api.ErrSessionTerminated))
	require.Zero(t, ds.calls)
}

func TestReader_InvalidPageSize(t *testing.T) {
	ds := &dataset{total: 10}
	r := NewPaginator(ds, zap.NewNop()).Read(&stubSession{id: "sess-1"}, "t", 0)

	_, err := r.Next(context.Background())
	require.Error(t, err)
	require.Zero(t, ds.calls)
}

type emptyRemote struct{ calls int }

func (e *emptyRemote) ReadTopic(context.Context, string, string, int, int) (*api.TopicPage, error) {
	e.calls++
	return nil, nil
}

func TestReader_NilPageIsProtocolError(t *testing.T) {
	remote := &emptyRemote{}
	r := NewPaginator(remote, zap.NewNop()).Read(&stubSession{id: "sess-1"}, "filing-activities", 2)

	page, err := r.Next(context.Background())
	require.Nil(t, page)
	var perr *api.ProtocolError
	require.ErrorAs(t, err, &perr)

	_, again := r.Next(context.Background())
	require.Equal(t, err, again)
	require.Equal(t, 1, remote.calls)
}
