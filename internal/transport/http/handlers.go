package http

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/skip2/go-qrcode"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/board"
	"trivia-board-service/internal/domain"
)

const qrSize = 256

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type categoryRequest struct {
	Name  *string       `json:"name"`
	Color *domain.Color `json:"color"`
}

type questionRequest struct {
	CategoryID string `json:"categoryId"`
	Points     int    `json:"points"`
	Question   string `json:"question"`
	Answer     string `json:"answer"`
}

type createGameRequest struct {
	Name           string `json:"name"`
	FirstTeamName  string `json:"firstTeamName"`
	SecondTeamName string `json:"secondTeamName"`
}

// AnswerRequest is the body of POST /questions/{id}/answer.
type AnswerRequest struct {
	GameID   string `json:"gameId"`
	TeamName string `json:"teamName"`
	Points   int    `json:"points"`
}

// AnswerResponse confirms a recorded answer and carries the updated game.
type AnswerResponse struct {
	Message string      `json:"message"`
	Game    domain.Game `json:"game"`
}

// AdjustRequest is the body of POST /games/{id}/adjust.
type AdjustRequest struct {
	TeamName string `json:"teamName"`
	Delta    int    `json:"delta"`
}

// DeleteGameResponse reports how many questions a deleted game returned to the pool.
type DeleteGameResponse struct {
	Message        string `json:"message"`
	FreedQuestions int64  `json:"freedQuestions"`
}

// ResetResponse reports how many questions a reset touched.
type ResetResponse struct {
	Message       string `json:"message"`
	ModifiedCount int64  `json:"modifiedCount"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	JSONResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if !h.auth.Enabled() {
		ErrorResponse(w, http.StatusNotFound, CodeNotFound, "authentication is disabled")
		return
	}
	var req loginRequest
	if err := ParseJSONBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	token, expiresAt, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, loginResponse{Token: token, ExpiresAt: expiresAt})
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, categories)
}

func (h *Handler) createCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := ParseJSONBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	var (
		name  string
		color domain.Color
	)
	if req.Name != nil {
		name = *req.Name
	}
	if req.Color != nil {
		color = *req.Color
	}
	category, err := h.service.CreateCategory(r.Context(), name, color)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, category)
}

func (h *Handler) getCategory(w http.ResponseWriter, r *http.Request) {
	category, err := h.service.GetCategory(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, category)
}

func (h *Handler) updateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := ParseJSONBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	category, err := h.service.UpdateCategory(r.Context(), r.PathValue("id"), req.Name, req.Color)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, category)
}

func (h *Handler) deleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCategory(r.Context(), r.PathValue("id")); err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, messageResponse{Message: "category deleted"})
}

func (h *Handler) listQuestions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.ListQuestions(r.Context(), r.URL.Query().Get("categoryId"))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, questions)
}

func (h *Handler) createQuestion(w http.ResponseWriter, r *http.Request) {
	var req questionRequest
	if err := ParseJSONBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	q, err := h.service.CreateQuestion(r.Context(), req.CategoryID, req.Points, req.Question, req.Answer)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, q)
}

func (h *Handler) getQuestion(w http.ResponseWriter, r *http.Request) {
	q, err := h.service.GetQuestion(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, q)
}

func (h *Handler) updateQuestion(w http.ResponseWriter, r *http.Request) {
	var patch app.QuestionPatch
	if err := ParseJSONBody(r, &patch); err != nil {
		badBody(w, err)
		return
	}
	q, err := h.service.UpdateQuestion(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, q)
}

func (h *Handler) deleteQuestion(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteQuestion(r.Context(), r.PathValue("id")); err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, messageResponse{Message: "question deleted"})
}

// questionAction serves POST /questions/reset-game/{gameId} and POST /questions/{id}/answer.
func (h *Handler) questionAction(w http.ResponseWriter, r *http.Request) {
	first, second := r.PathValue("first"), r.PathValue("second")
	switch {
	case first == "reset-game":
		h.resetGame(w, r, second)
	case second == "answer":
		h.recordAnswer(w, r, first)
	default:
		ErrorResponse(w, http.StatusNotFound, CodeNotFound, "unknown question action")
	}
}

func (h *Handler) recordAnswer(w http.ResponseWriter, r *http.Request, questionID string) {
	var req AnswerRequest
	if err := ParseJSONBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	game, err := h.service.RecordAnswer(r.Context(), req.GameID, questionID, req.TeamName, req.Points)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, AnswerResponse{Message: "answer recorded", Game: game})
}

func (h *Handler) resetGame(w http.ResponseWriter, r *http.Request, gameID string) {
	modified, err := h.service.ResetQuestionsForGame(r.Context(), gameID)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, ResetResponse{Message: "questions reset for game", ModifiedCount: modified})
}

func (h *Handler) resetAll(w http.ResponseWriter, r *http.Request) {
	modified, err := h.service.ResetAllQuestions(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, ResetResponse{Message: "all questions reset", ModifiedCount: modified})
}

func (h *Handler) listGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.service.ListGames(r.Context(), domain.GameStatus(r.URL.Query().Get("status")))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, games)
}

func (h *Handler) createGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := ParseJSONBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	game, err := h.service.CreateGame(r.Context(), req.Name, req.FirstTeamName, req.SecondTeamName)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusCreated, game)
}

func (h *Handler) getGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, game)
}

func (h *Handler) updateGame(w http.ResponseWriter, r *http.Request) {
	var patch app.GamePatch
	if err := ParseJSONBody(r, &patch); err != nil {
		badBody(w, err)
		return
	}
	game, err := h.service.UpdateGame(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, game)
}

func (h *Handler) deleteGame(w http.ResponseWriter, r *http.Request) {
	freed, err := h.service.DeleteGame(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, DeleteGameResponse{Message: "game deleted", FreedQuestions: freed})
}

func (h *Handler) endGame(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.EndGame(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, game)
}

func (h *Handler) adjustScore(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := ParseJSONBody(r, &req); err != nil {
		badBody(w, err)
		return
	}
	game, err := h.service.AdjustScore(r.Context(), r.PathValue("id"), req.TeamName, req.Delta)
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, game)
}

func (h *Handler) gameBoard(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	categories, err := h.service.Categories(r.Context())
	if err != nil {
		WriteError(w, err)
		return
	}
	JSONResponse(w, http.StatusOK, board.Project(categories, &game, nil))
}

// gameQR renders a PNG QR code linking to the public scoreboard of the game.
func (h *Handler) gameQR(w http.ResponseWriter, r *http.Request) {
	game, err := h.service.GetGame(r.Context(), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	png, err := qrcode.Encode(h.scoreboardURL(r, game.ID), qrcode.Medium, qrSize)
	if err != nil {
		WriteError(w, fmt.Errorf("encode qr: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write(png)
}

func (h *Handler) scoreboardURL(r *http.Request, gameID string) string {
	base := strings.TrimRight(h.publicURL, "/")
	if base == "" {
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		base = scheme + "://" + r.Host
	}
	return base + "/scoreboard/" + gameID
}

func badBody(w http.ResponseWriter, err error) {
	ErrorResponse(w, http.StatusBadRequest, CodeInvalidInput, "invalid request body: "+err.Error())
}
