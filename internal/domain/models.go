package domain

import "time"

const (
	// MinPoints and MaxPoints bound a question's point value and the board's point rows.
	MinPoints = 1
	MaxPoints = 10

	// TieWinner is stored as the winner when both teams finish level.
	TieWinner = "tie"
)

// GameStatus is the lifecycle state of a game session.
type GameStatus string

const (
	StatusOngoing   GameStatus = "ongoing"
	StatusCompleted GameStatus = "completed"
)

// Color is the display color of a category.
type Color string

const (
	ColorRed    Color = "red"
	ColorBlue   Color = "blue"
	ColorGreen  Color = "green"
	ColorOrange Color = "orange"
	ColorYellow Color = "yellow"
	ColorPurple Color = "purple"
	ColorPink   Color = "pink"
	ColorGray   Color = "gray"
)

// Colors lists every accepted category color.
var Colors = []Color{ColorRed, ColorBlue, ColorGreen, ColorOrange, ColorYellow, ColorPurple, ColorPink, ColorGray}

// Team identifies one of the two team slots of a game.
type Team int

const (
	FirstTeam Team = iota + 1
	SecondTeam
)

// Question is a single bank entry. CategoryID is the only record of category membership.
type Question struct {
	ID          string    `json:"id"`
	CategoryID  string    `json:"categoryId"`
	Points      int       `json:"points"`
	Text        string    `json:"question"`
	Answer      string    `json:"answer"`
	Answered    bool      `json:"isAnswered"`
	BoundGameID *string   `json:"boundGameId,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// IsBound reports whether the question is currently attached to a game.
func (q Question) IsBound() bool {
	return q.BoundGameID != nil && *q.BoundGameID != ""
}

// Category groups questions under a unique name.
type Category struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	Color     Color     `json:"color"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CategoryWithQuestions is a category with its derived question list populated.
type CategoryWithQuestions struct {
	Category
	Questions []Question `json:"questions"`
}

// SelectedQuestion binds one board cell of a game to a question.
// Question is only populated on reads that resolve the board.
type SelectedQuestion struct {
	CategoryID string    `json:"categoryId"`
	PointValue int       `json:"pointValue"`
	QuestionID string    `json:"questionId"`
	Question   *Question `json:"question,omitempty"`
}

// AnsweredQuestion is one entry of a game's answer log.
type AnsweredQuestion struct {
	QuestionID string    `json:"questionId"`
	TeamName   string    `json:"teamName"`
	Points     int       `json:"points"`
	AnsweredAt time.Time `json:"answeredAt"`
}

// Game is a two-team session over a board selected at creation.
type Game struct {
	ID                string             `json:"id"`
	Name              string             `json:"name"`
	FirstTeamName     string             `json:"firstTeamName"`
	SecondTeamName    string             `json:"secondTeamName"`
	FirstTeamScore    int                `json:"firstTeamScore"`
	SecondTeamScore   int                `json:"secondTeamScore"`
	Status            GameStatus         `json:"status"`
	Winner            *string            `json:"winner,omitempty"`
	SelectedQuestions []SelectedQuestion `json:"selectedQuestions"`
	AnsweredQuestions []AnsweredQuestion `json:"answeredQuestions"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

// TeamByName resolves a team name to its slot.
func (g Game) TeamByName(name string) (Team, bool) {
	switch name {
	case g.FirstTeamName:
		return FirstTeam, true
	case g.SecondTeamName:
		return SecondTeam, true
	}
	return 0, false
}

// TeamName returns the display name of a team slot.
func (g Game) TeamName(team Team) string {
	if team == SecondTeam {
		return g.SecondTeamName
	}
	return g.FirstTeamName
}

// Score returns the current score of a team slot.
func (g Game) Score(team Team) int {
	if team == SecondTeam {
		return g.SecondTeamScore
	}
	return g.FirstTeamScore
}

// Selected returns the board entry for a question, if the question is on this game's board.
func (g Game) Selected(questionID string) (SelectedQuestion, bool) {
	for _, s := range g.SelectedQuestions {
		if s.QuestionID == questionID {
			return s, true
		}
	}
	return SelectedQuestion{}, false
}

// IsAnswered reports whether the answer log of this game contains the question.
func (g Game) IsAnswered(questionID string) bool {
	for _, a := range g.AnsweredQuestions {
		if a.QuestionID == questionID {
			return true
		}
	}
	return false
}

// DecideWinner returns the winning team name, or TieWinner when scores are level.
func (g Game) DecideWinner() string {
	switch {
	case g.FirstTeamScore > g.SecondTeamScore:
		return g.FirstTeamName
	case g.SecondTeamScore > g.FirstTeamScore:
		return g.SecondTeamName
	default:
		return TieWinner
	}
}

// Snapshot is a cached serialized value with the time it was written.
type Snapshot struct {
	Data     []byte    `json:"data"`
	StoredAt time.Time `json:"storedAt"`
}
