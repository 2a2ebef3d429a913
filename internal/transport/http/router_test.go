package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/auth"
	"trivia-board-service/internal/board"
	"trivia-board-service/internal/domain"
	"trivia-board-service/internal/infra/memory"
)

type testAPI struct {
	server  *httptest.Server
	service *app.BoardService
	token   string
}

func newTestService() *app.BoardService {
	questions := memory.NewQuestionStore()
	categories := memory.NewCategoryStore()
	games := memory.NewGameStore()
	catalog := memory.NewCategoryCatalog(app.NewCatalogLoader(categories, questions), time.Minute)
	return app.NewBoardService(questions, categories, games, catalog, app.WithRand(rand.New(rand.NewSource(7))))
}

func newTestAPI(t *testing.T, withAuth bool) *testAPI {
	t.Helper()
	cfg := auth.Config{Disabled: true}
	if withAuth {
		hash, err := bcrypt.GenerateFromPassword([]byte("quizmaster"), bcrypt.MinCost)
		if err != nil {
			t.Fatalf("hash: %v", err)
		}
		cfg = auth.Config{Secret: "router-secret", AdminUser: "host", AdminPasswordHash: string(hash)}
	}
	authn, err := auth.New(cfg)
	if err != nil {
		t.Fatalf("auth: %v", err)
	}
	svc := newTestService()
	server := httptest.NewServer(NewRouter(svc, authn, RouterConfig{PublicURL: "https://trivia.example"}))
	t.Cleanup(server.Close)
	return &testAPI{server: server, service: svc}
}

func (a *testAPI) do(t *testing.T, method, path string, body any) (int, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequest(method, a.server.URL+path, reader)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if a.token != "" {
		req.Header.Set("Authorization", "Bearer "+a.token)
	}
	resp, err := a.server.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp.StatusCode, out
}

func decode[T any](t *testing.T, data []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		t.Fatalf("decode %s: %v", data, err)
	}
	return v
}

// seedBank creates two categories with one question per point value.
func seedBank(t *testing.T, svc *app.BoardService) {
	t.Helper()
	ctx := context.Background()
	for _, name := range []string{"Science", "History"} {
		c, err := svc.CreateCategory(ctx, name, domain.ColorGreen)
		if err != nil {
			t.Fatalf("create category: %v", err)
		}
		for p := domain.MinPoints; p <= domain.MaxPoints; p++ {
			if _, err := svc.CreateQuestion(ctx, c.ID, p, fmt.Sprintf("%s %d", name, p), "answer"); err != nil {
				t.Fatalf("create question: %v", err)
			}
		}
	}
}

func TestGameFlowOverHTTP(t *testing.T) {
	api := newTestAPI(t, false)
	seedBank(t, api.service)

	status, body := api.do(t, http.MethodPost, "/games", map[string]string{
		"name": "Friday", "firstTeamName": "Owls", "secondTeamName": "Foxes",
	})
	if status != http.StatusCreated {
		t.Fatalf("create game: %d %s", status, body)
	}
	game := decode[domain.Game](t, body)
	if len(game.SelectedQuestions) != 20 {
		t.Fatalf("expected 20 cells, got %d", len(game.SelectedQuestions))
	}
	pick := game.SelectedQuestions[0]

	status, body = api.do(t, http.MethodPost, "/questions/"+pick.QuestionID+"/answer", AnswerRequest{
		GameID: game.ID, TeamName: "Owls", Points: pick.PointValue,
	})
	if status != http.StatusOK {
		t.Fatalf("answer: %d %s", status, body)
	}
	answered := decode[AnswerResponse](t, body)
	if answered.Message == "" || answered.Game.FirstTeamScore != pick.PointValue {
		t.Fatalf("unexpected answer response %+v", answered)
	}

	status, body = api.do(t, http.MethodPost, "/questions/"+pick.QuestionID+"/answer", AnswerRequest{
		GameID: game.ID, TeamName: "Foxes", Points: pick.PointValue,
	})
	if status != http.StatusConflict || decode[ErrorBody](t, body).Code != CodeAlreadyAnswered {
		t.Fatalf("expected already answered conflict, got %d %s", status, body)
	}

	status, body = api.do(t, http.MethodGet, "/games/"+game.ID+"/board", nil)
	if status != http.StatusOK {
		t.Fatalf("board: %d %s", status, body)
	}
	b := decode[board.Board](t, body)
	if b.Mode != board.ModeBoundToGame || len(b.Columns) != 2 {
		t.Fatalf("unexpected board mode=%s columns=%d", b.Mode, len(b.Columns))
	}
	if state := b.AnsweredState(); !state[pick.QuestionID] || len(state) != 20 {
		t.Fatalf("unexpected answered state %v", state)
	}

	status, body = api.do(t, http.MethodPost, "/games/"+game.ID+"/adjust", AdjustRequest{TeamName: "Foxes", Delta: 3})
	if status != http.StatusOK || decode[domain.Game](t, body).SecondTeamScore != 3 {
		t.Fatalf("adjust: %d %s", status, body)
	}

	status, body = api.do(t, http.MethodPost, "/games/"+game.ID+"/end", nil)
	if status != http.StatusOK {
		t.Fatalf("end: %d %s", status, body)
	}
	ended := decode[domain.Game](t, body)
	if ended.Status != domain.StatusCompleted || ended.Winner == nil {
		t.Fatalf("expected completed game with winner, got %+v", ended)
	}

	status, body = api.do(t, http.MethodGet, "/games?status=completed", nil)
	if status != http.StatusOK || len(decode[[]domain.Game](t, body)) != 1 {
		t.Fatalf("list completed: %d %s", status, body)
	}

	status, body = api.do(t, http.MethodDelete, "/games/"+game.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("delete: %d %s", status, body)
	}
	deleted := decode[DeleteGameResponse](t, body)
	if deleted.FreedQuestions != 1 {
		t.Fatalf("expected the answered question to be freed, got %d", deleted.FreedQuestions)
	}

	status, _ = api.do(t, http.MethodGet, "/games/"+game.ID, nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected deleted game to be gone, got %d", status)
	}
}

func TestValidationErrorsMapToBadRequest(t *testing.T) {
	api := newTestAPI(t, false)
	seedBank(t, api.service)

	status, body := api.do(t, http.MethodPost, "/games", map[string]string{"name": "No teams"})
	if status != http.StatusBadRequest || decode[ErrorBody](t, body).Code != CodeInvalidInput {
		t.Fatalf("expected invalid input, got %d %s", status, body)
	}

	status, body = api.do(t, http.MethodPost, "/games", map[string]string{
		"name": "Friday", "firstTeamName": "Owls", "secondTeamName": "Foxes",
	})
	if status != http.StatusCreated {
		t.Fatalf("create game: %d %s", status, body)
	}
	game := decode[domain.Game](t, body)
	pick := game.SelectedQuestions[0]

	status, body = api.do(t, http.MethodPost, "/questions/"+pick.QuestionID+"/answer", AnswerRequest{
		GameID: game.ID, TeamName: "Owls", Points: 11,
	})
	if status != http.StatusBadRequest {
		t.Fatalf("expected out of range points to fail, got %d %s", status, body)
	}
	status, body = api.do(t, http.MethodPost, "/questions/"+pick.QuestionID+"/answer", AnswerRequest{
		GameID: game.ID, TeamName: "Badgers", Points: 1,
	})
	if status != http.StatusBadRequest || decode[ErrorBody](t, body).Code != CodeUnknownTeam {
		t.Fatalf("expected unknown team, got %d %s", status, body)
	}

	status, body = api.do(t, http.MethodPost, "/categories", map[string]string{"name": "science", "color": "blue"})
	if status != http.StatusConflict || decode[ErrorBody](t, body).Code != CodeDuplicateCategory {
		t.Fatalf("expected duplicate category, got %d %s", status, body)
	}
}

func TestQuestionActionDispatch(t *testing.T) {
	api := newTestAPI(t, false)
	seedBank(t, api.service)
	ctx := context.Background()

	game, err := api.service.CreateGame(ctx, "Friday", "Owls", "Foxes")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	status, body := api.do(t, http.MethodPost, "/questions/"+game.SelectedQuestions[0].QuestionID+"/skip", nil)
	if status != http.StatusNotFound {
		t.Fatalf("expected unknown action to 404, got %d %s", status, body)
	}

	status, body = api.do(t, http.MethodPost, "/questions/reset-game/"+game.ID, nil)
	if status != http.StatusOK {
		t.Fatalf("reset game: %d %s", status, body)
	}
	if got := decode[ResetResponse](t, body).ModifiedCount; got != 20 {
		t.Fatalf("expected 20 questions released, got %d", got)
	}

	questions, err := api.service.ListQuestions(ctx, "")
	if err != nil {
		t.Fatalf("list questions: %v", err)
	}
	status, body = api.do(t, http.MethodPut, "/questions/"+questions[0].ID, map[string]bool{"isAnswered": true})
	if status != http.StatusOK || !decode[domain.Question](t, body).Answered {
		t.Fatalf("flag question: %d %s", status, body)
	}

	status, body = api.do(t, http.MethodPost, "/questions/reset-all", nil)
	if status != http.StatusOK || decode[ResetResponse](t, body).ModifiedCount != 1 {
		t.Fatalf("reset all: %d %s", status, body)
	}
}

func TestMutatingRoutesRequireAdminToken(t *testing.T) {
	api := newTestAPI(t, true)

	status, body := api.do(t, http.MethodPost, "/categories", map[string]string{"name": "Art", "color": "pink"})
	if status != http.StatusUnauthorized || decode[ErrorBody](t, body).Code != CodeAdminRequired {
		t.Fatalf("expected admin required, got %d %s", status, body)
	}

	status, body = api.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "host", "password": "nope"})
	if status != http.StatusUnauthorized || decode[ErrorBody](t, body).Code != CodeInvalidCredentials {
		t.Fatalf("expected invalid credentials, got %d %s", status, body)
	}

	status, body = api.do(t, http.MethodPost, "/auth/login", map[string]string{"username": "host", "password": "quizmaster"})
	if status != http.StatusOK {
		t.Fatalf("login: %d %s", status, body)
	}
	api.token = decode[loginResponse](t, body).Token

	status, body = api.do(t, http.MethodPost, "/categories", map[string]string{"name": "Art", "color": "pink"})
	if status != http.StatusCreated {
		t.Fatalf("create with token: %d %s", status, body)
	}

	api.token = ""
	status, _ = api.do(t, http.MethodGet, "/categories", nil)
	if status != http.StatusOK {
		t.Fatalf("reads stay public, got %d", status)
	}
}

func TestGameQRCode(t *testing.T) {
	api := newTestAPI(t, false)
	seedBank(t, api.service)
	game, err := api.service.CreateGame(context.Background(), "Friday", "Owls", "Foxes")
	if err != nil {
		t.Fatalf("create game: %v", err)
	}

	resp, err := api.server.Client().Get(api.server.URL + "/games/" + game.ID + "/qr")
	if err != nil {
		t.Fatalf("get qr: %v", err)
	}
	defer resp.Body.Close()
	png, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Content-Type") != "image/png" {
		t.Fatalf("unexpected qr response %d %s", resp.StatusCode, resp.Header.Get("Content-Type"))
	}
	if !bytes.HasPrefix(png, []byte("\x89PNG")) {
		t.Fatalf("expected png data")
	}

	h := &Handler{publicURL: "https://trivia.example/"}
	req := httptest.NewRequest(http.MethodGet, "/games/g1/qr", nil)
	if got := h.scoreboardURL(req, "g1"); got != "https://trivia.example/scoreboard/g1" {
		t.Fatalf("unexpected scoreboard url %s", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	api := newTestAPI(t, false)
	req, _ := http.NewRequest(http.MethodOptions, api.server.URL+"/games", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	resp, err := api.server.Client().Do(req)
	if err != nil {
		t.Fatalf("preflight: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", resp.StatusCode)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "http://localhost:5173" {
		t.Fatalf("unexpected allow origin %q", resp.Header.Get("Access-Control-Allow-Origin"))
	}
}
