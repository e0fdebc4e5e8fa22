package stream

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// chunkedReader yields the payload in fixed-size increments so tests can
// exercise arbitrary chunk boundaries.
type chunkedReader struct {
	data []byte
	size int
}

func (c *chunkedReader) Read(p []byte) (int, error) {
	if len(c.data) == 0 {
		return 0, io.EOF
	}
	n := c.size
	if n > len(c.data) {
		n = len(c.data)
	}
	if n > len(p) {
		n = len(p)
	}
	copy(p, c.data[:n])
	c.data = c.data[n:]
	return n, nil
}

func collect(t *testing.T, s *Stream) []Fragment {
	t.Helper()
	var out []Fragment
	for s.Next() {
		out = append(out, s.Current())
	}
	return out
}

const helloPayload = "data: {\"choices\":[{\"delta\":{\"content\":\"Hel\"}}]}\n" +
	"data: {\"choices\":[{\"delta\":{\"content\":\"lo!\"}}]}\n" +
	"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n" +
	"data: [DONE]\n"

func TestDecodeChunkBoundaryIndependence(t *testing.T) {
	t.Parallel()

	whole := New(context.Background(), io.NopCloser(strings.NewReader(helloPayload)))
	want := collect(t, whole)
	require.NoError(t, whole.Err())
	require.Len(t, want, 3)

	for _, size := range []int{1, 2, 3, 7, 64} {
		s := New(context.Background(), io.NopCloser(&chunkedReader{data: []byte(helloPayload), size: size}))
		got := collect(t, s)
		require.NoError(t, s.Err())
		require.Equal(t, want, got, "chunk size %d", size)
	}
}

func TestDecodeReconstructsText(t *testing.T) {
	t.Parallel()

	s := New(context.Background(), io.NopCloser(strings.NewReader(helloPayload)))
	var sb strings.Builder
	var finish string
	for s.Next() {
		sb.WriteString(s.Current().Delta)
		if fr := s.Current().FinishReason; fr != "" {
			finish = fr
		}
	}
	require.NoError(t, s.Err())
	require.Equal(t, "Hello!", sb.String())
	require.Equal(t, "stop", finish)
}

func TestDecodeSkipsMalformedRecord(t *testing.T) {
	t.Parallel()

	payload := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {not json at all\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"b\"}}]}\n" +
		"data: [DONE]\n"
	s := New(context.Background(), io.NopCloser(strings.NewReader(payload)))
	frags := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, frags, 2)
	require.Equal(t, "a", frags[0].Delta)
	require.Equal(t, "b", frags[1].Delta)
}

func TestDecodeStopsAtDoneSentinel(t *testing.T) {
	t.Parallel()

	payload := "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n" +
		"data: [DONE]\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"never\"}}]}\n"
	s := New(context.Background(), io.NopCloser(strings.NewReader(payload)))
	frags := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, frags, 1)
	require.Equal(t, "x", frags[0].Delta)
}

func TestDecodeIgnoresNonDataLines(t *testing.T) {
	t.Parallel()

	payload := ": keep-alive\n" +
		"\n" +
		"event: ping\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n" +
		"data: [DONE]\n"
	s := New(context.Background(), io.NopCloser(strings.NewReader(payload)))
	frags := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, frags, 1)
	require.Equal(t, "ok", frags[0].Delta)
}

func TestDecodeAcceptsFlatChunkShape(t *testing.T) {
	t.Parallel()

	payload := "data: {\"delta\":\"Hel\"}\n" +
		"data: {\"delta\":\"lo!\"}\n" +
		"data: {\"finish_reason\":\"stop\"}\n" +
		"data: [DONE]\n"
	s := New(context.Background(), io.NopCloser(strings.NewReader(payload)))
	frags := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, frags, 3)
	require.Equal(t, "Hel", frags[0].Delta)
	require.Equal(t, "lo!", frags[1].Delta)
	require.Equal(t, "stop", frags[2].FinishReason)
}

func TestDecodeIncompleteLineNeverParsed(t *testing.T) {
	t.Parallel()

	// Body ends mid-record with no trailing newline; the flushed remainder is
	// still a complete JSON record here, and a truly partial one is skipped.
	payload := "data: {\"choices\":[{\"delta\":{\"content\":\"a\"}}]}\n" +
		"data: {\"choices\":[{\"delta\":{\"content\":"
	s := New(context.Background(), io.NopCloser(strings.NewReader(payload)))
	frags := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, frags, 1)
	require.Equal(t, "a", frags[0].Delta)
}

func TestDecodeCarriageReturns(t *testing.T) {
	t.Parallel()

	payload := "data: {\"choices\":[{\"delta\":{\"content\":\"crlf\"}}]}\r\n" +
		"data: [DONE]\r\n"
	s := New(context.Background(), io.NopCloser(strings.NewReader(payload)))
	frags := collect(t, s)
	require.NoError(t, s.Err())
	require.Len(t, frags, 1)
	require.Equal(t, "crlf", frags[0].Delta)
}

func TestCancelledContextStopsIteration(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	s := New(ctx, io.NopCloser(strings.NewReader(helloPayload)))

	require.True(t, s.Next())
	cancel()
	require.False(t, s.Next())
	require.ErrorIs(t, s.Err(), context.Canceled)
}

type closeRecorder struct {
	io.Reader
	closed bool
}

func (c *closeRecorder) Close() error {
	c.closed = true
	return nil
}

func TestStreamClosesBody(t *testing.T) {
	t.Parallel()

	body := &closeRecorder{Reader: strings.NewReader(helloPayload)}
	s := New(context.Background(), body)
	collect(t, s)
	require.True(t, body.closed)
}
