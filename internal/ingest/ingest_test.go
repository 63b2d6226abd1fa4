package ingest_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BusulwaJordan/Oticbot/internal/ingest"
	"github.com/BusulwaJordan/Oticbot/internal/models"
	"github.com/BusulwaJordan/Oticbot/internal/transcript"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// chunkedBody returns one chunk per Read, then err (io.EOF when nil).
type chunkedBody struct {
	chunks [][]byte
	err    error
	closed bool
}

func (b *chunkedBody) Read(p []byte) (int, error) {
	if len(b.chunks) == 0 {
		if b.err != nil {
			return 0, b.err
		}
		return 0, io.EOF
	}
	n := copy(p, b.chunks[0])
	b.chunks[0] = b.chunks[0][n:]
	if len(b.chunks[0]) == 0 {
		b.chunks = b.chunks[1:]
	}
	return n, nil
}

func (b *chunkedBody) Close() error {
	b.closed = true
	return nil
}

func bodyOf(err error, chunks ...string) *chunkedBody {
	b := &chunkedBody{err: err}
	for _, c := range chunks {
		b.chunks = append(b.chunks, []byte(c))
	}
	return b
}

type mockOpener struct {
	body *chunkedBody
	err  error
}

func (m mockOpener) Open(context.Context, string) (*ingest.Stream, error) {
	if m.err != nil {
		return nil, m.err
	}
	return ingest.NewStream(m.body, 0), nil
}

func collect(t *testing.T, s *ingest.Stream) ([]string, error) {
	t.Helper()
	var out []string
	for text, err := range s.Chunks() {
		if err != nil {
			return out, err
		}
		out = append(out, text)
	}
	return out, nil
}

func TestStreamChunksInOrder(t *testing.T) {
	body := bodyOf(nil, "Hel", "lo", " world")
	got, err := collect(t, ingest.NewStream(body, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"Hel", "lo", " world"}, got)
	assert.True(t, body.closed)
}

func TestStreamCarriesSplitRunes(t *testing.T) {
	// "é" is 0xC3 0xA9 and "😀" is 0xF0 0x9F 0x98 0x80.
	body := &chunkedBody{chunks: [][]byte{
		{'c', 'a', 'f', 0xC3},
		{0xA9, ' ', 0xF0, 0x9F},
		{0x98},
		{0x80, '!'},
	}}
	got, err := collect(t, ingest.NewStream(body, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"caf", "é ", "😀!"}, got)
}

func TestStreamFlushesDanglingBytes(t *testing.T) {
	body := &chunkedBody{chunks: [][]byte{{'o', 'k', 0xE2, 0x82}}}
	got, err := collect(t, ingest.NewStream(body, 0))
	require.NoError(t, err)
	assert.Equal(t, []string{"ok", "�"}, got)
}

func TestStreamReadErrorIsTransportError(t *testing.T) {
	body := bodyOf(errors.New("connection reset"), "partial")
	got, err := collect(t, ingest.NewStream(body, 0))
	assert.Equal(t, []string{"partial"}, got)

	var te *ingest.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, ingest.ErrConnectivity)
	assert.True(t, body.closed)
}

func TestClientPostsMessage(t *testing.T) {
	var gotMethod, gotType string
	var gotBody map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotType = r.Header.Get("Content-Type")
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("Hello from Otic"))
	}))
	defer srv.Close()

	c := ingest.NewClient(srv.URL + "/chat")
	s, err := c.Open(context.Background(), "Who founded Otic?")
	require.NoError(t, err)
	got, err := collect(t, s)
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "application/json", gotType)
	assert.Equal(t, map[string]string{"message": "Who founded Otic?"}, gotBody)
	assert.Equal(t, "Hello from Otic", joined(got))
}

func TestClientChunkSizeBoundsReads(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("Otic Foundation"))
	}))
	defer srv.Close()

	s, err := ingest.NewClient(srv.URL, ingest.WithChunkSize(4)).Open(context.Background(), "hi")
	require.NoError(t, err)
	got, err := collect(t, s)
	require.NoError(t, err)

	assert.Equal(t, "Otic Foundation", joined(got))
	require.Greater(t, len(got), 1)
	for _, c := range got {
		assert.LessOrEqual(t, len(c), 4)
	}
}

func TestClientNon2xxIsStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "model overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := ingest.NewClient(srv.URL).Open(context.Background(), "hi")
	var se *ingest.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
	assert.ErrorIs(t, err, ingest.ErrConnectivity)
}

func TestClientUnreachableIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := ingest.NewClient(url).Open(context.Background(), "hi")
	var te *ingest.TransportError
	require.ErrorAs(t, err, &te)
	assert.ErrorIs(t, err, ingest.ErrConnectivity)
}

func TestExchangerStreamsIntoTranscript(t *testing.T) {
	var prefixes []string
	tr := transcript.New()
	ex, err := tr.Submit("hi")
	require.NoError(t, err)
	tr.Observe(func(s transcript.Snapshot) {
		if s.State == models.StateStreaming {
			prefixes = append(prefixes, s.Messages[len(s.Messages)-1].Text)
		}
	})

	e := ingest.NewExchanger(mockOpener{body: bodyOf(nil, "Hel", "lo", " world")}, 0, nil)
	state := e.Run(context.Background(), tr, ex)

	assert.Equal(t, models.StateCompleted, state)
	s := tr.Snapshot()
	assert.Equal(t, "Hello world", s.Messages[1].Text)
	assert.False(t, s.StreamActive())
	assert.Equal(t, []string{"", "Hel", "Hello", "Hello world"}, prefixes)
	for i := 1; i < len(prefixes); i++ {
		assert.Greater(t, len(prefixes[i]), len(prefixes[i-1]))
	}
}

func TestExchangerStatusErrorMarksBotMessage(t *testing.T) {
	tr := transcript.New()
	ex, err := tr.Submit("hi")
	require.NoError(t, err)

	e := ingest.NewExchanger(mockOpener{err: &ingest.StatusError{StatusCode: 500}}, 0, nil)
	state := e.Run(context.Background(), tr, ex)

	assert.Equal(t, models.StateErrored, state)
	s := tr.Snapshot()
	assert.True(t, s.Messages[1].Error)
	assert.Equal(t, models.ConnectivityErrorText, s.Messages[1].Text)
	assert.False(t, s.StreamActive())
}

func TestExchangerMidStreamErrorReplacesText(t *testing.T) {
	tr := transcript.New()
	ex, err := tr.Submit("hi")
	require.NoError(t, err)

	body := bodyOf(errors.New("connection reset"), "Otic was ", "founded in")
	e := ingest.NewExchanger(mockOpener{body: body}, 0, nil)
	state := e.Run(context.Background(), tr, ex)

	assert.Equal(t, models.StateErrored, state)
	bot := tr.Snapshot().Messages[1]
	assert.Equal(t, models.ConnectivityErrorText, bot.Text)
	assert.True(t, bot.Error)
}

func TestExchangerTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("thinking"))
		w.(http.Flusher).Flush()
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	tr := transcript.New()
	ex, err := tr.Submit("hi")
	require.NoError(t, err)

	e := ingest.NewExchanger(ingest.NewClient(srv.URL), 100*time.Millisecond, nil)
	state := e.Run(context.Background(), tr, ex)

	assert.Equal(t, models.StateErrored, state)
	assert.Equal(t, models.ConnectivityErrorText, tr.Snapshot().Messages[1].Text)
}

func joined(parts []string) string {
	var s string
	for _, p := range parts {
		s += p
	}
	return s
}
