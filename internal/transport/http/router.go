package http

import (
	"net/http"

	"trivia-board-service/internal/app"
	"trivia-board-service/internal/auth"
)

// RouterConfig holds the transport settings that are not owned by the service.
type RouterConfig struct {
	// PublicURL is the externally reachable base of the board front end, used in QR links.
	PublicURL string
}

// Handler serves the board REST API.
type Handler struct {
	service   *app.BoardService
	auth      *auth.Authenticator
	publicURL string
}

func NewHandler(service *app.BoardService, authn *auth.Authenticator, cfg RouterConfig) *Handler {
	return &Handler{service: service, auth: authn, publicURL: cfg.PublicURL}
}

// NewRouter wires every route of the board API.
//
//	GET    /healthz
//	POST   /auth/login
//	GET    /categories                 POST /categories
//	GET    /categories/{id}            PUT  /categories/{id}      DELETE /categories/{id}
//	GET    /questions                  POST /questions
//	GET    /questions/{id}             PUT  /questions/{id}       DELETE /questions/{id}
//	POST   /questions/{id}/answer
//	POST   /questions/reset-game/{gameId}
//	POST   /questions/reset-all
//	GET    /games                      POST /games
//	GET    /games/{id}                 PUT  /games/{id}           DELETE /games/{id}
//	POST   /games/{id}/end             POST /games/{id}/adjust
//	GET    /games/{id}/board           GET  /games/{id}/ws        GET /games/{id}/qr
func NewRouter(service *app.BoardService, authn *auth.Authenticator, cfg RouterConfig) http.Handler {
	h := NewHandler(service, authn, cfg)
	ws := NewWSHandler(service)
	admin := func(next http.HandlerFunc) http.HandlerFunc {
		return RequireAdmin(authn, next)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.health)
	mux.HandleFunc("POST /auth/login", WithLogging(h.login))

	mux.HandleFunc("GET /categories", WithLogging(h.listCategories))
	mux.HandleFunc("POST /categories", WithLogging(admin(h.createCategory)))
	mux.HandleFunc("GET /categories/{id}", WithLogging(h.getCategory))
	mux.HandleFunc("PUT /categories/{id}", WithLogging(admin(h.updateCategory)))
	mux.HandleFunc("DELETE /categories/{id}", WithLogging(admin(h.deleteCategory)))

	mux.HandleFunc("GET /questions", WithLogging(h.listQuestions))
	mux.HandleFunc("POST /questions", WithLogging(admin(h.createQuestion)))
	mux.HandleFunc("GET /questions/{id}", WithLogging(h.getQuestion))
	mux.HandleFunc("PUT /questions/{id}", WithLogging(admin(h.updateQuestion)))
	mux.HandleFunc("DELETE /questions/{id}", WithLogging(admin(h.deleteQuestion)))
	mux.HandleFunc("POST /questions/reset-all", WithLogging(admin(h.resetAll)))
	// reset-game/{gameId} and {id}/answer share one shape, so a single pattern dispatches both.
	mux.HandleFunc("POST /questions/{first}/{second}", WithLogging(admin(h.questionAction)))

	mux.HandleFunc("GET /games", WithLogging(h.listGames))
	mux.HandleFunc("POST /games", WithLogging(admin(h.createGame)))
	mux.HandleFunc("GET /games/{id}", WithLogging(h.getGame))
	mux.HandleFunc("PUT /games/{id}", WithLogging(admin(h.updateGame)))
	mux.HandleFunc("DELETE /games/{id}", WithLogging(admin(h.deleteGame)))
	mux.HandleFunc("POST /games/{id}/end", WithLogging(admin(h.endGame)))
	mux.HandleFunc("POST /games/{id}/adjust", WithLogging(admin(h.adjustScore)))
	mux.HandleFunc("GET /games/{id}/board", WithLogging(h.gameBoard))
	mux.HandleFunc("GET /games/{id}/qr", WithLogging(h.gameQR))
	mux.HandleFunc("GET /games/{id}/ws", ws.ServeWS)

	return CORS(mux)
}
