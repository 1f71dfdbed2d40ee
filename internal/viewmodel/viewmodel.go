package viewmodel

// DifficultyOption is a choice in the difficulty selector.
type DifficultyOption struct {
	Value    string
	Label    string
	Selected bool
}

// HomePage holds data for the landing page.
type HomePage struct {
	Title        string
	Difficulties []DifficultyOption
}

// GamePage holds data for the main game page.
type GamePage struct {
	Title        string
	GameID       string
	ShareURL     string
	IsOwner      bool
	Difficulties []DifficultyOption
	Board        BoardFragment
	Status       StatusFragment
}

// Cell is one rendered board square.
type Cell struct {
	Row     int
	Col     int
	Class   string
	Text    string
	Hidden  bool
	Flagged bool
}

// BoardFragment holds data for the board grid.
type BoardFragment struct {
	GameID string
	Rows   int
	Cols   int
	Cells  [][]Cell
	// Playable is false once the game is over or for spectators.
	Playable bool
}

// StatusFragment holds data for the timer, mine counter and end message.
type StatusFragment struct {
	GameID         string
	Status         string
	Difficulty     string
	ElapsedSeconds int
	MinesLeft      int
	Message        string
	IsOwner        bool
}
