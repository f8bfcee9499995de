package rest

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gagliardetto/solana-go"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/render"
)

const sessionCookie = "page_session"

type pageUseCase interface {
	DevEnvEnabled() bool

	Mount(ctx context.Context) (*entity.Session, error)
	Session(ctx context.Context, id string) (*entity.Session, error)
	Unmount(ctx context.Context, id string) error

	FundPlayer(ctx context.Context, sessionID string) (*entity.Session, error)
	CreateGame(ctx context.Context, sessionID string) (*entity.Session, error)
	Play(ctx context.Context, sessionID string, row, col uint8) (*entity.Session, error)
	Refresh(ctx context.Context, sessionID string) (*entity.Session, error)

	CloneProgram(ctx context.Context, sessionID string) (*entity.Session, error)
	RestartValidator(ctx context.Context, sessionID string) (*entity.Session, error)
	TakeSnapshot(ctx context.Context, sessionID string) (*entity.Session, error)
	RestoreSnapshot(ctx context.Context, sessionID string) (*entity.Session, error)
	SetPreset(ctx context.Context, sessionID, name string) (*entity.Session, error)
	DeleteSnapshots(ctx context.Context, sessionID string) (*entity.Session, error)
	LabelTransaction(ctx context.Context, sessionID string, signature solana.Signature, label string) (*entity.Session, error)
}

type subscriber interface {
	Serve(w http.ResponseWriter, r *http.Request, sessionID string)
}

// Links - where the account links of the page point to.
type Links struct {
	RPCURL      string
	ExplorerURL string
}

type handlers struct {
	logger  *slog.Logger
	page    pageUseCase
	sockets subscriber
	links   Links
	presets []string
}

type stateResponse struct {
	Phase entity.Phase `json:"phase"`
	View  *entity.View `json:"view,omitempty"`
	Error string       `json:"error,omitempty"`
}

// PageHandler - renders the page, mounting a new session when the browser has none.
func (that *handlers) PageHandler(w http.ResponseWriter, r *http.Request) {
	session, err := that.sessionOrMount(w, r)
	if err != nil {
		that.logger.Error("failed to mount session", "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err = render.Page(w, that.pageView(session)); err != nil {
		that.logger.Error("failed to render page", "error", err)
	}
}

// StateHandler - the session view as JSON.
func (that *handlers) StateHandler(w http.ResponseWriter, r *http.Request) {
	session, err := that.sessionOrMount(w, r)
	if err != nil {
		that.logger.Error("failed to mount session", "error", err)
		writeJSON(w, http.StatusInternalServerError, stateResponse{Error: "failed to mount session"})
		return
	}

	writeJSON(w, http.StatusOK, stateResponse{Phase: session.Phase, View: &session.View})
}

// SocketHandler - subscribes the page to view updates of its session.
func (that *handlers) SocketHandler(w http.ResponseWriter, r *http.Request) {
	session, err := that.session(r)
	if err != nil {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	that.sockets.Serve(w, r, session.ID)
}

func (that *handlers) FundHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.FundPlayer)
}

func (that *handlers) CreateHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.CreateGame)
}

func (that *handlers) RefreshHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.Refresh)
}

// PlayHandler - plays the clicked square. Only the form values are checked, never the move.
func (that *handlers) PlayHandler(w http.ResponseWriter, r *http.Request) {
	row, errRow := strconv.ParseUint(r.FormValue("row"), 10, 8)
	col, errCol := strconv.ParseUint(r.FormValue("col"), 10, 8)
	if errRow != nil || errCol != nil {
		http.Error(w, "row and col must be numbers between 0 and 255", http.StatusBadRequest)
		return
	}

	that.action(w, r, func(ctx context.Context, id string) (*entity.Session, error) {
		var (
			session *entity.Session
			err     error
		)

		board := render.Board(nil, nil, "", func(row, col int) {
			session, err = that.page.Play(ctx, id, uint8(row), uint8(col))
		})
		board.Click(int(row), int(col))

		return session, err
	})
}

// ResetHandler - forgets the session of the browser, the next page load mounts fresh keys.
func (that *handlers) ResetHandler(w http.ResponseWriter, r *http.Request) {
	if cookie, err := r.Cookie(sessionCookie); err == nil {
		if err = that.page.Unmount(r.Context(), cookie.Value); err != nil && !errors.Is(err, apperror.ErrSessionNotFound) {
			that.logger.Error("failed to unmount session", "session", cookie.Value, "error", err)
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (that *handlers) CloneHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.CloneProgram)
}

func (that *handlers) RestartHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.RestartValidator)
}

func (that *handlers) SnapshotHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.TakeSnapshot)
}

func (that *handlers) RestoreHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.RestoreSnapshot)
}

func (that *handlers) DeleteSnapshotsHandler(w http.ResponseWriter, r *http.Request) {
	that.action(w, r, that.page.DeleteSnapshots)
}

func (that *handlers) PresetHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	that.action(w, r, func(ctx context.Context, id string) (*entity.Session, error) {
		return that.page.SetPreset(ctx, id, name)
	})
}

func (that *handlers) LabelHandler(w http.ResponseWriter, r *http.Request) {
	signature, err := solana.SignatureFromBase58(r.FormValue("signature"))
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}

	label := r.FormValue("label")
	if label == "" {
		http.Error(w, "label is required", http.StatusBadRequest)
		return
	}

	that.action(w, r, func(ctx context.Context, id string) (*entity.Session, error) {
		return that.page.LabelTransaction(ctx, id, signature, label)
	})
}

// action - runs a page action for the session of the request. Browsers are sent back to the page,
// which shows the outcome; JSON clients get the view and a status code.
func (that *handlers) action(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, id string) (*entity.Session, error)) {
	log := that.logger.With("method", "action", "path", r.URL.Path)

	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		that.fail(w, r, nil, apperror.ErrSessionNotFound)
		return
	}

	session, err := fn(r.Context(), cookie.Value)
	if err != nil {
		log.Warn("action failed", "error", err)
		that.fail(w, r, session, err)
		return
	}

	if wantsJSON(r) {
		writeJSON(w, http.StatusOK, stateResponse{Phase: session.Phase, View: &session.View})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (that *handlers) fail(w http.ResponseWriter, r *http.Request, session *entity.Session, err error) {
	status := statusOf(err)

	if !wantsJSON(r) {
		// the page displays the error stored in the view
		if session != nil || errors.Is(err, apperror.ErrSessionNotFound) {
			http.Redirect(w, r, "/", http.StatusSeeOther)
			return
		}

		http.Error(w, err.Error(), status)
		return
	}

	resp := stateResponse{Error: err.Error()}
	if session != nil {
		resp.Phase = session.Phase
		resp.View = &session.View
	}

	writeJSON(w, status, resp)
}

func (that *handlers) session(r *http.Request) (*entity.Session, error) {
	cookie, err := r.Cookie(sessionCookie)
	if err != nil {
		return nil, apperror.ErrSessionNotFound
	}

	return that.page.Session(r.Context(), cookie.Value)
}

func (that *handlers) sessionOrMount(w http.ResponseWriter, r *http.Request) (*entity.Session, error) {
	session, err := that.session(r)
	if err == nil {
		return session, nil
	}

	if !errors.Is(err, apperror.ErrSessionNotFound) {
		return nil, err
	}

	session, err = that.page.Mount(r.Context())
	if err != nil {
		return nil, err
	}

	// no Expires: the session lives as long as its Redis key, which every action extends
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    session.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	return session, nil
}

func (that *handlers) pageView(session *entity.Session) render.PageView {
	view := render.PageView{
		Phase:         string(session.Phase),
		LastSignature: session.View.LastSignature,
		LastError:     session.View.LastError,
		Notice:        session.View.Notice,
		DevEnv:        that.page.DevEnvEnabled(),
	}

	if view.DevEnv {
		view.Presets = that.presets
	}

	next := entity.PlayerX
	if session.View.CurrentPlayer == 1 {
		next = entity.PlayerO
	}

	game, err := entity.FromView(session.View.Game)
	if err != nil {
		that.logger.Error("failed to read displayed game", "session", session.ID, "error", err)
		game = nil
	}

	if game != nil {
		view.Board = render.Board(&game.Board, game.Outcome, next, nil)
	} else {
		view.Board = render.Board(nil, nil, next, nil)
	}

	keys, err := entity.KeysOf(session)
	if err != nil {
		that.logger.Error("failed to read session keys", "session", session.ID, "error", err)
		return view
	}

	accounts := []struct {
		name  string
		key   solana.PublicKey
		funds uint64
	}{
		{"Player One", keys.PlayerOne.PublicKey(), session.View.PlayerOneFunds},
		{"Player Two", keys.PlayerTwo.PublicKey(), session.View.PlayerTwoFunds},
		{"Game", keys.Game.PublicKey(), session.View.GameFunds},
	}

	for _, account := range accounts {
		address := account.key.String()
		view.Accounts = append(view.Accounts, render.AccountRow{
			Name:     account.name,
			Funds:    render.FormatSOL(account.funds),
			Address:  address,
			Explorer: render.ExplorerLink(that.links.ExplorerURL, that.links.RPCURL, address),
		})
	}

	return view
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperror.ErrSessionNotFound), errors.Is(err, apperror.ErrDevEnvDisabled):
		return http.StatusNotFound
	case errors.Is(err, apperror.ErrUnknownPreset):
		return http.StatusBadRequest
	case errors.Is(err, apperror.ErrConfirmTimeout):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func wantsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json"
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
