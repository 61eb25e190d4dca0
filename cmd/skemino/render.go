package main

import (
	"fmt"
	"io"
	"strings"

	"skemino-client/pkg/board"
	"skemino-client/pkg/deck"
	"skemino-client/pkg/gamestate"
)

// renderBoard writes the board rank 6 first, cells as {code}{owner}
func renderBoard(w io.Writer, b board.Board) {
	for rank := board.Ranks; rank >= 1; rank-- {
		cells := make([]string, 0, len(board.Files))
		for _, file := range board.Files {
			pos := b[board.Cell(fmt.Sprintf("%c%d", file, rank))]
			if !pos.Occupied() {
				cells = append(cells, "  .  ")
				continue
			}

			cells = append(cells, fmt.Sprintf("%4s%s", pos.Card.Code(), ownerMark(pos.Owner)))
		}

		_, _ = fmt.Fprintf(w, "%d %s\n", rank, strings.Join(cells, " "))
	}

	files := make([]string, len(board.Files))
	for i, file := range board.Files {
		files[i] = fmt.Sprintf("  %c  ", file)
	}

	_, _ = fmt.Fprintf(w, "  %s\n", strings.Join(files, " "))
}

func ownerMark(c board.Color) string {
	switch c {
	case board.White:
		return "w"
	case board.Black:
		return "b"
	}

	return " "
}

// renderView writes the whole client view for a terminal
func renderView(w io.Writer, v gamestate.View) {
	g := v.Game
	if g.Status == gamestate.StatusWaiting {
		d := v.Distribution
		_, _ = fmt.Fprintf(w, "[%s] %s (%d/%d, %d%%)\n", d.Phase, d.Message, d.CurrentCard, d.TotalCards, d.AnimationProgress)
		return
	}

	renderBoard(w, g.Board)
	_, _ = fmt.Fprintf(w, "clocks: white %s, black %s\n", clock(g.Clocks[board.White]), clock(g.Clocks[board.Black]))

	if v.CurrentPlayer != nil {
		_, _ = fmt.Fprintf(w, "you play %s, hand: %s\n", v.CurrentPlayer.Color, handString(g.Hands[v.CurrentPlayer.Color]))
	}

	switch {
	case g.Status == gamestate.StatusCompleted && g.Winner == nil:
		_, _ = fmt.Fprintln(w, "game over: draw")
	case g.Status == gamestate.StatusCompleted:
		_, _ = fmt.Fprintf(w, "game over: %s wins\n", *g.Winner)
	case v.IsMyTurn:
		_, _ = fmt.Fprintln(w, "your move (move <card> <cell>)")
	default:
		_, _ = fmt.Fprintf(w, "waiting for %s\n", g.CurrentTurn)
	}

	if v.DrawOffer != nil {
		_, _ = fmt.Fprintf(w, "%s offers a draw (accept / decline)\n", v.DrawOffer.From)
	}
}

func handString(h deck.Hand) string {
	if len(h) == 0 {
		return "-"
	}

	return strings.Join(strings.Split(h.String(), ","), " ")
}

func clock(seconds int) string {
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}
