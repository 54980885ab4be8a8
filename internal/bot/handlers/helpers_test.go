package handlers_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"github.com/stretchr/testify/require"

	"github.com/orbie-bot/orbie/internal/bot/handlers"
	"github.com/orbie-bot/orbie/internal/config"
	"github.com/orbie-bot/orbie/internal/inference"
	"github.com/orbie-bot/orbie/internal/logger"
	"github.com/orbie-bot/orbie/internal/search"
	"github.com/orbie-bot/orbie/internal/telegram"
)

const (
	authorizedID   int64 = 100
	unauthorizedID int64 = 666
)

// apiCall is one request received by the fake Bot API.
type apiCall struct {
	Method    string
	ChatID    string
	Text      string
	MessageID string
}

type fakeTelegram struct {
	srv    *httptest.Server
	nextID atomic.Int64

	mu    sync.Mutex
	calls []apiCall
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()
	f := &fakeTelegram{}
	f.nextID.Store(1000)
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		_ = r.ParseForm()
	}
	call := apiCall{
		Method:    path.Base(r.URL.Path),
		ChatID:    r.FormValue("chat_id"),
		Text:      r.FormValue("text"),
		MessageID: r.FormValue("message_id"),
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()

	var result any = true
	switch call.Method {
	case "sendMessage", "editMessageText":
		chatID, _ := strconv.ParseInt(strings.Trim(call.ChatID, `"`), 10, 64)
		id := f.nextID.Add(1)
		if call.Method == "editMessageText" {
			id, _ = strconv.ParseInt(call.MessageID, 10, 64)
		}
		result = map[string]any{
			"message_id": id,
			"date":       time.Now().Unix(),
			"chat":       map[string]any{"id": chatID, "type": "private"},
			"text":       call.Text,
		}
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

// replies returns the calls that put text in the chat, in order.
func (f *fakeTelegram) replies() []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, c := range f.calls {
		if c.Method == "sendMessage" || c.Method == "editMessageText" {
			out = append(out, c)
		}
	}
	return out
}

func (f *fakeTelegram) count(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

type fakeCloud struct {
	answer string
	err    error

	chatCalls   atomic.Int32
	searchCalls atomic.Int32
	mu          sync.Mutex
	inputs      []string
	prompts     []string
}

func (f *fakeCloud) Chat(_ context.Context, message, promptName string) (string, error) {
	f.chatCalls.Add(1)
	f.record(message, promptName)
	return f.answer, f.err
}

func (f *fakeCloud) Search(_ context.Context, message string) (string, error) {
	f.searchCalls.Add(1)
	f.record(message, inference.SearchPromptName)
	return f.answer, f.err
}

func (f *fakeCloud) record(message, prompt string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, message)
	f.prompts = append(f.prompts, prompt)
}

func (f *fakeCloud) lastInput() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.inputs) == 0 {
		return ""
	}
	return f.inputs[len(f.inputs)-1]
}

type fakeSearcher struct {
	summary *search.Summary
	err     error
	calls   atomic.Int32
}

func (f *fakeSearcher) Search(_ context.Context, query string) (*search.Summary, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	if f.summary != nil {
		return f.summary, nil
	}
	return &search.Summary{Query: query}, nil
}

type fakeStreamer struct {
	fragments []inference.Fragment
	calls     atomic.Int32
}

func (f *fakeStreamer) Stream(_ context.Context, _, _ string) <-chan inference.Fragment {
	f.calls.Add(1)
	ch := make(chan inference.Fragment, len(f.fragments))
	for _, fr := range f.fragments {
		ch <- fr
	}
	close(ch)
	return ch
}

func testConfig() *config.Config {
	return &config.Config{
		Telegram: config.TelegramConfig{TypingInterval: time.Hour, SendTimeout: 5 * time.Second},
		Search:   config.SearchConfig{TokenLimit: 5, NumResults: 5},
		Prompts:  config.PromptsConfig{Dir: "unused", Chat: "pookie", Local: "default"},
		Stream:   config.StreamConfig{EditInterval: 0},
		Messages: config.DefaultMessages,
		Secrets: config.Secrets{
			TelegramBotToken: "test-token",
			AuthorizedUsers:  map[string]int64{"alice": authorizedID},
		},
	}
}

type testEnv struct {
	tg       *fakeTelegram
	bot      *bot.Bot
	cfg      *config.Config
	cloud    *fakeCloud
	searcher *fakeSearcher
	local    *fakeStreamer
}

func newTestEnv(t *testing.T, cloud inference.Completer) *testEnv {
	t.Helper()

	env := &testEnv{
		tg:       newFakeTelegram(t),
		cfg:      testConfig(),
		searcher: &fakeSearcher{},
		local:    &fakeStreamer{},
	}
	if fc, ok := cloud.(*fakeCloud); ok {
		env.cloud = fc
	}
	if cloud == nil {
		env.cloud = &fakeCloud{answer: "cloud answer"}
		cloud = env.cloud
	}

	deps := handlers.HandlerDeps{
		Logger: logger.Discard(),
		Config: env.cfg,
		Cloud:  cloud,
		Local:  env.local,
		Search: env.searcher,
	}

	b, err := bot.New("test-token",
		bot.WithServerURL(env.tg.srv.URL),
		bot.WithSkipGetMe(),
		bot.WithNotAsyncHandlers(),
		bot.WithDefaultHandler(handlers.NewFallbackHandler(deps)),
	)
	require.NoError(t, err)
	require.NoError(t, telegram.RegisterHandlers(b, logger.Discard(), handlers.RegisterAllCommands(deps)))
	env.bot = b
	return env
}

// send feeds a text message from userID through the bot's dispatcher and
// returns once every handler has finished.
func (e *testEnv) send(userID int64, firstName, text string) {
	var entities []models.MessageEntity
	if strings.HasPrefix(text, "/") {
		length := strings.IndexByte(text, ' ')
		if length < 0 {
			length = len(text)
		}
		entities = []models.MessageEntity{{Type: models.MessageEntityTypeBotCommand, Offset: 0, Length: length}}
	}

	e.bot.ProcessUpdate(context.Background(), &models.Update{
		ID: 1,
		Message: &models.Message{
			ID:       10,
			From:     &models.User{ID: userID, FirstName: firstName},
			Chat:     models.Chat{ID: userID, Type: "private"},
			Text:     text,
			Entities: entities,
		},
	})
}

// upstreamCalls counts calls made to every non-Telegram dependency.
func (e *testEnv) upstreamCalls() int32 {
	var n int32
	if e.cloud != nil {
		n += e.cloud.chatCalls.Load() + e.cloud.searchCalls.Load()
	}
	return n + e.searcher.calls.Load() + e.local.calls.Load()
}
