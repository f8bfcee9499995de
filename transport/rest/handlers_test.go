package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
)

type mockPage struct {
	mock.Mock
}

func (m *mockPage) DevEnvEnabled() bool {
	return m.Called().Bool(0)
}

func (m *mockPage) Mount(ctx context.Context) (*entity.Session, error) {
	return m.result(m.Called(ctx))
}

func (m *mockPage) Session(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) Unmount(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockPage) FundPlayer(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) CreateGame(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) Play(ctx context.Context, id string, row, col uint8) (*entity.Session, error) {
	return m.result(m.Called(ctx, id, row, col))
}

func (m *mockPage) Refresh(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) CloneProgram(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) RestartValidator(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) TakeSnapshot(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) RestoreSnapshot(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) SetPreset(ctx context.Context, id, name string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id, name))
}

func (m *mockPage) DeleteSnapshots(ctx context.Context, id string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id))
}

func (m *mockPage) LabelTransaction(ctx context.Context, id string, signature solana.Signature, label string) (*entity.Session, error) {
	return m.result(m.Called(ctx, id, signature, label))
}

func (m *mockPage) result(args mock.Arguments) (*entity.Session, error) {
	session, _ := args.Get(0).(*entity.Session)
	return session, args.Error(1)
}

type fakeSockets struct {
	served []string
}

func (that *fakeSockets) Serve(w http.ResponseWriter, _ *http.Request, sessionID string) {
	that.served = append(that.served, sessionID)
	w.WriteHeader(http.StatusSwitchingProtocols)
}

func newSession(t *testing.T) *entity.Session {
	t.Helper()

	keys, err := entity.NewKeys()
	require.NoError(t, err)

	return &entity.Session{
		ID:           "session-1",
		GameKey:      keys.Game.String(),
		PlayerOneKey: keys.PlayerOne.String(),
		PlayerTwoKey: keys.PlayerTwo.String(),
		Phase:        entity.PhaseIdle,
		View:         entity.View{CurrentPlayer: entity.NextPlayerIndex(nil)},
	}
}

func newRouter(t *testing.T, page *mockPage, checks ...Check) (http.Handler, *fakeSockets) {
	t.Helper()
	t.Cleanup(func() { page.AssertExpectations(t) })

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	sockets := &fakeSockets{}

	router := NewRouter(logger, Options{
		Page:     page,
		Sockets:  sockets,
		Ping:     NewPingHandler(logger, checks...),
		Gatherer: prometheus.NewRegistry(),
		Links: Links{
			RPCURL:      "http://localhost:8899",
			ExplorerURL: "https://explorer.solana.com",
		},
		Presets: []string{"drawing", "o-winning"},
	})

	return router, sockets
}

func postForm(path string, values url.Values, sessionID string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(values.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: sessionID})
	}

	return req
}

func TestHandlers_Page(t *testing.T) {
	t.Run("Mounts a session for a new browser", func(t *testing.T) {
		// Given: a browser without a session cookie
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)
		keys, err := entity.KeysOf(session)
		require.NoError(t, err)

		page.On("Mount", mock.Anything).Return(session, nil).Once()
		page.On("DevEnvEnabled").Return(true)

		// When: opening the page
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

		// Then: the page is rendered with the accounts and the cookie set
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, "Next player: O")
		assert.Contains(t, body, keys.PlayerOne.PublicKey().String())
		assert.Contains(t, body, "◎0.000000 SOL")
		assert.Contains(t, body, "/dev/preset/drawing")

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.Equal(t, session.ID, cookies[0].Value)
		assert.True(t, cookies[0].Expires.IsZero(), "the cookie must not outlive an active session")
		assert.Zero(t, cookies[0].MaxAge)
	})

	t.Run("Mounts again when the session expired", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)

		page.On("Session", mock.Anything, "expired").
			Return(nil, fmt.Errorf("failed to get session: %w", apperror.ErrSessionNotFound)).
			Once()
		page.On("Mount", mock.Anything).Return(session, nil).Once()
		page.On("DevEnvEnabled").Return(false)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: "expired"})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.NotContains(t, rec.Body.String(), "/dev/clone")
	})

	t.Run("Shows the winner of a finished game", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)
		keys, err := entity.KeysOf(session)
		require.NoError(t, err)

		game := &entity.Game{
			Players: [2]solana.PublicKey{keys.PlayerOne.PublicKey(), keys.PlayerTwo.PublicKey()},
			Turn:    6,
			Outcome: entity.Won{Winner: keys.PlayerTwo.PublicKey()},
		}
		game.Board[0][0] = entity.CellO
		session.View.Game = entity.ToView(game)

		page.On("Session", mock.Anything, session.ID).Return(session, nil).Once()
		page.On("DevEnvEnabled").Return(false)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: sessionCookie, Value: session.ID})
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "Winner: "+keys.PlayerTwo.PublicKey().String()[:16]+"...")
	})
}

func TestHandlers_State(t *testing.T) {
	// Given: a session with funds
	page := &mockPage{}
	router, _ := newRouter(t, page)
	session := newSession(t)
	session.View.PlayerOneFunds = solana.LAMPORTS_PER_SOL

	page.On("Session", mock.Anything, session.ID).Return(session, nil).Once()

	// When: asking for the state
	req := httptest.NewRequest(http.MethodGet, "/api/state", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: session.ID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	// Then: the view comes back as JSON
	require.Equal(t, http.StatusOK, rec.Code)

	var resp stateResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, entity.PhaseIdle, resp.Phase)
	require.NotNil(t, resp.View)
	assert.Equal(t, solana.LAMPORTS_PER_SOL, resp.View.PlayerOneFunds)
}

func TestHandlers_Play(t *testing.T) {
	t.Run("Forwards the clicked square and goes back to the page", func(t *testing.T) {
		// Given: a mounted page
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)

		page.On("Play", mock.Anything, session.ID, uint8(1), uint8(2)).Return(session, nil).Once()

		// When: clicking the square (1, 2)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/actions/play", url.Values{"row": {"1"}, "col": {"2"}}, session.ID))

		// Then: the browser is sent back to the page
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		assert.Equal(t, "/", rec.Header().Get("Location"))
	})

	t.Run("Forwards squares outside the board unchanged", func(t *testing.T) {
		// Given: a mounted page
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)

		page.On("Play", mock.Anything, session.ID, uint8(7), uint8(255)).Return(session, nil).Once()

		// When: posting a square the board does not have
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/actions/play", url.Values{"row": {"7"}, "col": {"255"}}, session.ID))

		// Then: the move still reaches the program
		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("Refuses squares that are not numbers", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/actions/play", url.Values{"row": {"a"}, "col": {"2"}}, "session-1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Returns the rejection to JSON clients", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)
		session.View.LastError = "custom program error: 0x1771"

		page.On("Play", mock.Anything, session.ID, uint8(0), uint8(0)).
			Return(session, errors.New("play failed: custom program error: 0x1771")).
			Once()

		req := postForm("/actions/play", url.Values{"row": {"0"}, "col": {"0"}}, session.ID)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadGateway, rec.Code)

		var resp stateResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Contains(t, resp.Error, "0x1771")
		require.NotNil(t, resp.View)
		assert.Equal(t, session.View.LastError, resp.View.LastError)
	})
}

func TestHandlers_Actions(t *testing.T) {
	t.Run("Sends browsers without a session to the page", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/actions/fund", nil, ""))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("Runs each action of the page", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)

		for _, method := range []string{"FundPlayer", "CreateGame", "Refresh", "CloneProgram", "RestartValidator", "TakeSnapshot", "RestoreSnapshot", "DeleteSnapshots"} {
			page.On(method, mock.Anything, session.ID).Return(session, nil).Once()
		}

		for _, path := range []string{"/actions/fund", "/actions/create", "/actions/refresh", "/dev/clone", "/dev/restart", "/dev/snapshot", "/dev/restore", "/dev/snapshots/delete"} {
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, postForm(path, nil, session.ID))
			assert.Equal(t, http.StatusSeeOther, rec.Code, path)
		}
	})

	t.Run("Returns 404 for dev actions when the dev environment is off", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)

		page.On("TakeSnapshot", mock.Anything, "session-1").Return(nil, apperror.ErrDevEnvDisabled).Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/dev/snapshot", nil, "session-1"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("Returns 400 for unknown presets", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)

		page.On("SetPreset", mock.Anything, session.ID, "x-winning").
			Return(session, fmt.Errorf("preset failed: %w", apperror.ErrUnknownPreset)).
			Once()

		req := postForm("/dev/preset/x-winning", nil, session.ID)
		req.Header.Set("Accept", "application/json")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("Labels a transaction", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)
		session := newSession(t)
		signature := solana.Signature{7}

		page.On("LabelTransaction", mock.Anything, session.ID, signature, "my move").Return(session, nil).Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/dev/label", url.Values{"signature": {signature.String()}, "label": {"my move"}}, session.ID))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})

	t.Run("Refuses invalid signatures", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/dev/label", url.Values{"signature": {"nope"}, "label": {"x"}}, "session-1"))

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandlers_Socket(t *testing.T) {
	page := &mockPage{}
	router, sockets := newRouter(t, page)
	session := newSession(t)

	page.On("Session", mock.Anything, session.ID).Return(session, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: session.ID})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, []string{session.ID}, sockets.served)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ws", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlers_Ping(t *testing.T) {
	t.Run("Pong when every dependency answers", func(t *testing.T) {
		router, _ := newRouter(t, &mockPage{}, Check{Name: "redis", Ping: func(context.Context) error { return nil }})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "pong", rec.Body.String())
	})

	t.Run("Unavailable when a dependency is down", func(t *testing.T) {
		router, _ := newRouter(t, &mockPage{}, Check{Name: "validator", Ping: func(context.Context) error {
			return errors.New("connection refused")
		}})

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
		assert.Contains(t, rec.Body.String(), "validator")
	})
}

func TestHandlers_Metrics(t *testing.T) {
	router, _ := newRouter(t, &mockPage{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandlers_Reset(t *testing.T) {
	t.Run("Drops the session and clears the cookie", func(t *testing.T) {
		// Given: a browser with a session
		page := &mockPage{}
		router, _ := newRouter(t, page)

		page.On("Unmount", mock.Anything, "session-1").Return(nil).Once()

		// When: asking for new keys
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/actions/reset", nil, "session-1"))

		// Then: the cookie is cleared and the browser sent to the page
		assert.Equal(t, http.StatusSeeOther, rec.Code)
		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, sessionCookie, cookies[0].Name)
		assert.Equal(t, -1, cookies[0].MaxAge)
	})

	t.Run("Clears the cookie of an expired session", func(t *testing.T) {
		page := &mockPage{}
		router, _ := newRouter(t, page)

		page.On("Unmount", mock.Anything, "expired").
			Return(fmt.Errorf("failed to delete session: %w", apperror.ErrSessionNotFound)).
			Once()

		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, postForm("/actions/reset", nil, "expired"))

		assert.Equal(t, http.StatusSeeOther, rec.Code)
	})
}
