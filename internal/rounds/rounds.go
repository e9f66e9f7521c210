// Package rounds encodes the league's round structure: which rounds are
// doubles, which positions face each other, and which team picks the machine.
package rounds

import "github.com/salishmushrooms/pinstats/internal/model"

// Type returns the round format. Rounds 1 and 4 are doubles (four players),
// rounds 2 and 3 are singles (two players).
func Type(round int) model.RoundType {
	switch round {
	case 1, 4:
		return model.Doubles
	case 2, 3:
		return model.Singles
	default:
		return model.RoundUnknown
	}
}

// IsOpponent reports whether posB faces posA in the given round. In doubles,
// odd positions (1, 3) are one pairing and even positions (2, 4) the other,
// so two positions are opponents iff their parity differs. In singles any
// other position on the same machine instance is the opponent. A position is
// never its own opponent.
func IsOpponent(round, posA, posB int) bool {
	if posA == posB {
		return false
	}
	if Type(round) == model.Doubles {
		return posA%2 != posB%2
	}
	return true
}

// PickingTeam returns the team that chooses the machine for the given round:
// away picks rounds 1 and 3, home picks rounds 2 and 4. Both the win-rate
// context and pick-frequency accounting depend on this rule; changing it
// requires updating both consumers together.
func PickingTeam(round int, home, away string) string {
	switch round {
	case 2, 4:
		return home
	default:
		return away
	}
}
