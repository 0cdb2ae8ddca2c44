package telegram

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"

	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type botServer struct {
	mu       sync.Mutex
	requests []url.Values
	paths    []string
	reply    string
}

func (s *botServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	s.mu.Lock()
	s.requests = append(s.requests, r.PostForm)
	s.paths = append(s.paths, r.URL.Path)
	reply := s.reply
	s.mu.Unlock()
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(reply))
}

func newTransport(t *testing.T, reply string) (*Transport, *botServer) {
	t.Helper()
	bs := &botServer{reply: reply}
	srv := httptest.NewServer(bs)
	t.Cleanup(srv.Close)
	return New(Config{BotToken: "123:abc", Endpoint: srv.URL + "/bot%s/%s"}, zap.NewNop()), bs
}

func TestSendPostsHTMLMessage(t *testing.T) {
	tr, bs := newTransport(t, `{"ok":true,"result":{"message_id":7,"date":0,"chat":{"id":555,"type":"private"}}}`)

	err := tr.Send(context.Background(), "555", domain.Payload{
		Text:      "<b>BK-2025-0001</b>",
		ParseMode: domain.ParseModeHTML,
	})
	require.NoError(t, err)

	require.Len(t, bs.requests, 1)
	assert.Equal(t, "/bot123:abc/sendMessage", bs.paths[0])
	assert.Equal(t, "555", bs.requests[0].Get("chat_id"))
	assert.Equal(t, "<b>BK-2025-0001</b>", bs.requests[0].Get("text"))
	assert.Equal(t, "HTML", bs.requests[0].Get("parse_mode"))
	assert.Equal(t, domain.ChannelTelegram, tr.Channel())
}

func TestSendSurfacesAPIError(t *testing.T) {
	tr, _ := newTransport(t, `{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`)

	err := tr.Send(context.Background(), "555", domain.Payload{Text: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "blocked")
}

func TestSendRejectsNonNumericChat(t *testing.T) {
	tr, bs := newTransport(t, `{"ok":true}`)

	err := tr.Send(context.Background(), "@someone", domain.Payload{Text: "hi"})
	require.ErrorIs(t, err, ErrInvalidChatID)
	assert.Empty(t, bs.requests)
}
