package devenv

import (
	"fmt"
	"sort"

	"github.com/rocketscienceinc/onchain-tictactoe/internal/apperror"
	"github.com/rocketscienceinc/onchain-tictactoe/internal/entity"
)

const (
	PresetOWinning = "o-winning"
	PresetDrawing  = "drawing"
)

const (
	x = entity.CellX
	o = entity.CellO
)

var presets = map[string]entity.Game{
	// | X | O |   |
	// |   | O |   |
	// | X |   | X |
	PresetOWinning: {
		Turn: 6,
		Board: entity.Board{
			{x, o, entity.EmptyCell},
			{entity.EmptyCell, o, entity.EmptyCell},
			{x, entity.EmptyCell, x},
		},
		Outcome: entity.Active{},
	},
	PresetDrawing: {
		Turn: 8,
		Board: entity.Board{
			{x, o, x},
			{o, x, o},
			{x, o, x},
		},
		Outcome: entity.Active{},
	},
}

// Preset - returns a copy of the named game state.
func Preset(name string) (*entity.Game, error) {
	preset, ok := presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperror.ErrUnknownPreset, name)
	}

	return &preset, nil
}

// PresetNames - names of all presets, sorted.
func PresetNames() []string {
	names := make([]string, 0, len(presets))
	for name := range presets {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}
