package rest

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/rocketscienceinc/tictactoe-local/internal/entity"
	"github.com/rocketscienceinc/tictactoe-local/internal/view"
)

type pages struct {
	game *template.Template
}

func funcs() template.FuncMap {
	return template.FuncMap{
		"label": func(p entity.Player) string { return view.PlayerLabel(p) },
		"cellClass": func(c view.CellView) string {
			class := "ttt-cell"
			if c.Winning {
				class += " ttt-cell-winning"
			}
			return class
		},
		"cellContent": func(c entity.Cell) string {
			if c == entity.EmptyCell {
				return "empty"
			}
			return string(c)
		},
	}
}

func loadPages() *pages {
	return &pages{
		game: template.Must(template.New("game").Funcs(funcs()).Parse(gameTemplate)),
	}
}

func (that *pages) renderGame(game view.Game) ([]byte, error) {
	var buf bytes.Buffer
	if err := that.game.Execute(&buf, game); err != nil {
		return nil, fmt.Errorf("failed to render game page: %w", err)
	}

	return buf.Bytes(), nil
}

const gameTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8"/>
<title>Tic Tac Toe</title>
<style>
.ttt-board { display: grid; grid-template-columns: repeat(3, 4rem); gap: .25rem; }
.ttt-cell { width: 4rem; height: 4rem; font-size: 2rem; }
.ttt-cell-winning { background: #ffe27a; }
</style>
</head>
<body>
<main class="ttt-container">
<h1 class="ttt-title">Tic Tac Toe</h1>
<div class="ttt-status" id="status">{{.Status}}</div>
<form method="post" action="/play">
<div class="ttt-board" role="grid" aria-label="Tic Tac Toe Board">
{{- range .Cells}}{{range .}}
<button class="{{cellClass .}}" name="cell" value="{{.Row}},{{.Col}}" aria-label="Cell {{cellContent .Value}}"{{if .Disabled}} disabled tabindex="-1"{{end}}><span class="ttt-cell-content ttt-cell-content-{{cellContent .Value}}">{{.Value}}</span></button>
{{- end}}{{end}}
</div>
</form>
<form method="post" action="/restart" class="ttt-controls">
<button class="ttt-btn ttt-btn-restart" type="submit">Restart Game</button>
</form>
<section class="ttt-info">{{label "X"}} vs. {{label "O"}}</section>
</main>
</body>
</html>
`
