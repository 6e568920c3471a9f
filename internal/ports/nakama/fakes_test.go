package nakama

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"citychain/internal/app"
	"citychain/internal/config"
	"citychain/internal/domain"
	"citychain/internal/storage/stats"

	"github.com/heroiclabs/nakama-common/runtime"
	_ "modernc.org/sqlite"
)

// noopLogger implements runtime.Logger for tests that only need to satisfy the interface.
type noopLogger struct{}

func (noopLogger) Debug(string, ...interface{}) {}
func (noopLogger) Info(string, ...interface{})  {}
func (noopLogger) Warn(string, ...interface{})  {}
func (noopLogger) Error(string, ...interface{}) {}
func (noopLogger) WithField(string, interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) WithFields(map[string]interface{}) runtime.Logger {
	return noopLogger{}
}
func (noopLogger) Fields() map[string]interface{} {
	return nil
}

type sentNotification struct {
	userID     string
	subject    string
	content    map[string]interface{}
	code       int
	persistent bool
}

// mockNotifier records NotificationSend calls.
type mockNotifier struct {
	mu     sync.Mutex
	failTo map[string]bool
	sent   []sentNotification
}

func (m *mockNotifier) NotificationSend(ctx context.Context, userID, subject string, content map[string]interface{}, code int, sender string, persistent bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failTo[userID] {
		return errors.New("socket closed")
	}
	m.sent = append(m.sent, sentNotification{userID: userID, subject: subject, content: content, code: code, persistent: persistent})
	return nil
}

// to returns notifications with code sent to userID.
func (m *mockNotifier) to(userID string, code int) []sentNotification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []sentNotification
	for _, n := range m.sent {
		if n.userID == userID && n.code == code {
			out = append(out, n)
		}
	}
	return out
}

func (m *mockNotifier) reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = nil
}

type mockAccounts struct {
	err     error
	updates map[string]string
}

func (m *mockAccounts) AccountUpdateId(ctx context.Context, userID, username string, metadata map[string]interface{}, displayName, timezone, location, langTag, avatarUrl string) error {
	if m.err != nil {
		return m.err
	}
	if m.updates == nil {
		m.updates = make(map[string]string)
	}
	m.updates[userID] = displayName
	return nil
}

const testSecret = "test-secret"

type testModule struct {
	*Module
	nk    *mockNotifier
	stats *stats.Store
}

func newTestModule(t *testing.T) *testModule {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	store := stats.New(db, "sqlite")
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate() error: %v", err)
	}

	dict := domain.NewDictionary([]string{
		"Москва", "Астрахань", "Абакан", "Нальчик", "Калуга", "Тверь", "Рязань", "Новосибирск",
	})
	nk := &mockNotifier{}
	tickets := NewRematchTickets(testSecret)
	sink := NewNotificationSink(nk, tickets, noopLogger{})
	game := app.NewService(dict, store, sink, app.Options{
		TurnDuration:       time.Minute,
		SuggestionDistance: 2,
		Logger:             noopLogger{},
	})
	t.Cleanup(game.Close)

	return &testModule{
		Module: NewModule(game, sink, tickets, config.Default()),
		nk:     nk,
		stats:  store,
	}
}

func userCtx(userID string) context.Context {
	ctx := context.WithValue(context.Background(), runtime.RUNTIME_CTX_USER_ID, userID)
	return context.WithValue(ctx, runtime.RUNTIME_CTX_USERNAME, "name-"+userID)
}

// match pairs a and b through the play RPC; a moves first.
func (tm *testModule) match(t *testing.T, a, b string) {
	t.Helper()
	if _, err := tm.RpcPlay(userCtx(a), noopLogger{}, nil, nil, ""); err != nil {
		t.Fatalf("RpcPlay(%s) error: %v", a, err)
	}
	if _, err := tm.RpcPlay(userCtx(b), noopLogger{}, nil, nil, ""); err != nil {
		t.Fatalf("RpcPlay(%s) error: %v", b, err)
	}
	if !tm.game.InSession(a) || !tm.game.InSession(b) {
		t.Fatalf("players %s and %s were not matched", a, b)
	}
}

func errorCode(t *testing.T, err error) int {
	t.Helper()
	var rtErr *runtime.Error
	if !errors.As(err, &rtErr) {
		t.Fatalf("error %v is not a *runtime.Error", err)
	}
	return rtErr.Code
}
