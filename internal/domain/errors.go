package domain

import "errors"

var (
	// ErrInvalidInput is returned when a request fails validation before any persistence.
	ErrInvalidInput = errors.New("invalid input")
	// ErrGameNotFound is returned when a game id does not exist.
	ErrGameNotFound = errors.New("game not found")
	// ErrQuestionNotFound indicates a question id does not exist.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrCategoryNotFound indicates a category id does not exist.
	ErrCategoryNotFound = errors.New("category not found")
	// ErrDuplicateCategory is returned when a category name is already taken.
	ErrDuplicateCategory = errors.New("category name already exists")
	// ErrGameCompleted is returned when mutating a game that is no longer ongoing.
	ErrGameCompleted = errors.New("game already completed")
	// ErrQuestionNotOnBoard indicates the question was not selected into the game's board.
	ErrQuestionNotOnBoard = errors.New("question is not on this game's board")
	// ErrAlreadyAnswered is returned for a second answer to the same question in the same game.
	ErrAlreadyAnswered = errors.New("question already answered in this game")
	// ErrUnknownTeam indicates a team name that belongs to neither team of the game.
	ErrUnknownTeam = errors.New("team not part of this game")
	// ErrUnauthorized is returned when an admin-only operation lacks valid credentials.
	ErrUnauthorized = errors.New("admin authorization required")
	// ErrInvalidCredentials is returned on a failed admin login.
	ErrInvalidCredentials = errors.New("invalid credentials")
)
