package entity

import "time"

// Session is one interactive game: a single engine owned by one browser, connection or terminal.
type Session struct {
	ID        string    `json:"id"`
	Game      *Game     `json:"game"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewSession(id string) *Session {
	return &Session{
		ID:        id,
		Game:      NewGame(),
		UpdatedAt: time.Now().UTC(),
	}
}

// Touch records a state change.
func (that *Session) Touch() {
	that.UpdatedAt = time.Now().UTC()
}
