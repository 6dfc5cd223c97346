package waypoint

import (
	"sort"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

var presets = map[string][]r2.Point{
	"square": {
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}, {X: 0, Y: 0},
	},
	"triangle": {
		{X: 0, Y: 0}, {X: 1, Y: 0}, {X: .5, Y: .5}, {X: 0, Y: 0},
	},
}

// Preset returns a copy of the named built-in polyline.
func Preset(name string) ([]r2.Point, error) {
	points, ok := presets[name]
	if !ok {
		return nil, errors.Errorf("unknown waypoint preset %q, expected one of %v", name, PresetNames())
	}
	return append([]r2.Point(nil), points...), nil
}

// PresetNames lists the built-in polylines.
func PresetNames() []string {
	names := lo.Keys(presets)
	sort.Strings(names)
	return names
}
