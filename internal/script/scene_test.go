package script

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindScene(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		expected Scene
	}{
		{
			name: "plain scene subclass",
			source: `from manim import *

class RotatingSquareScene(Scene):
    def construct(self):
        square = Square()
        self.play(Rotate(square))
`,
			expected: Scene{Name: "RotatingSquareScene", Base: "Scene"},
		},
		{
			name: "three dimensional scene subtype",
			source: `from manim import *

class CameraOrbit(ThreeDScene):
    def construct(self):
        pass
`,
			expected: Scene{Name: "CameraOrbit", Base: "ThreeDScene"},
		},
		{
			name:     "qualified base name",
			source:   "class Plot(manim.Scene):\n    pass\n",
			expected: Scene{Name: "Plot", Base: "manim.Scene"},
		},
		{
			name:     "whitespace around name and base",
			source:   "class   Wobble  (  MovingCameraScene  ):\n    pass\n",
			expected: Scene{Name: "Wobble", Base: "MovingCameraScene"},
		},
		{
			name: "first match wins when more than one scene exists",
			source: `class FirstScene(Scene):
    pass

class SecondScene(Scene):
    pass
`,
			expected: Scene{Name: "FirstScene", Base: "Scene"},
		},
		{
			name: "non-scene classes are skipped",
			source: `class Helper:
    pass

class Config(object):
    pass

class TheRealDeal(Scene):
    pass
`,
			expected: Scene{Name: "TheRealDeal", Base: "Scene"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scene, err := FindScene(tt.source)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, scene)
		})
	}
}

func TestFindScene_NoMatch(t *testing.T) {
	tests := []struct {
		name   string
		source string
	}{
		{"empty source", ""},
		{"no class at all", "x = 1\nprint(x)\n"},
		{"class without base", "class Floating:\n    pass\n"},
		{"base not a scene", "class Widget(Panel):\n    pass\n"},
		{"scene mentioned but not a base", "# extends Scene\nclass Foo(Bar):\n    pass\n"},
		{"multiple inheritance", "class Mixed(Scene, Helper):\n    pass\n"},
		{"class keyword inside identifier", "subclass Thing(Scene)\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := FindScene(tt.source)
			assert.ErrorIs(t, err, ErrNoSceneFound)
		})
	}
}

func TestFindScene_Deterministic(t *testing.T) {
	source := `class AlphaScene(Scene):
    pass

class BetaScene(ThreeDScene):
    pass
`

	first, err := FindScene(source)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := FindScene(source)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}
