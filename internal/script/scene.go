package script

import (
	"bufio"
	"errors"
	"strings"
)

// ErrNoSceneFound is returned when script text contains no scene class.
var ErrNoSceneFound = errors.New("script: no scene class found")

// Scene identifies the renderable entry point inside generated script text.
type Scene struct {
	// Name is the declared class name, e.g. "RotatingSquareScene".
	Name string
	// Base is the declared parent, e.g. "Scene" or "ThreeDScene".
	Base string
}

// FindScene scans source line by line and returns the first class declaration
// whose single declared parent is Scene or a qualified name ending in Scene,
// such as ThreeDScene or manim.Scene.
//
// The generator is contracted to emit exactly one such class, so FindScene
// trusts the first textual match and performs no semantic validation. It is a
// pure function of its input: identical source always yields the same result.
func FindScene(source string) (Scene, error) {
	sc := bufio.NewScanner(strings.NewReader(source))
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		if scene, ok := parseClassHeader(sc.Text()); ok {
			return scene, nil
		}
	}
	return Scene{}, ErrNoSceneFound
}

// parseClassHeader recognizes `class <Name> ( <Base> )` where Base is a
// dotted identifier ending in "Scene". Anything else, including multiple
// inheritance, is not an entry point.
func parseClassHeader(line string) (Scene, bool) {
	rest := strings.TrimLeft(line, " \t")

	rest, ok := strings.CutPrefix(rest, "class")
	if !ok {
		return Scene{}, false
	}
	if rest == "" || (rest[0] != ' ' && rest[0] != '\t') {
		return Scene{}, false
	}
	rest = strings.TrimLeft(rest, " \t")

	name, rest := takeIdentifier(rest)
	if name == "" {
		return Scene{}, false
	}
	rest = strings.TrimLeft(rest, " \t")

	rest, ok = strings.CutPrefix(rest, "(")
	if !ok {
		return Scene{}, false
	}
	rest = strings.TrimLeft(rest, " \t")

	base, rest := takeQualifiedName(rest)
	if base == "" || !strings.HasSuffix(base, "Scene") {
		return Scene{}, false
	}
	rest = strings.TrimLeft(rest, " \t")

	if !strings.HasPrefix(rest, ")") {
		return Scene{}, false
	}

	return Scene{Name: name, Base: base}, true
}

// takeIdentifier consumes a run of word characters from the front of s.
func takeIdentifier(s string) (ident, rest string) {
	i := 0
	for i < len(s) && isWordByte(s[i]) {
		i++
	}
	return s[:i], s[i:]
}

// takeQualifiedName consumes a run of word characters and dots.
func takeQualifiedName(s string) (name, rest string) {
	i := 0
	for i < len(s) && (isWordByte(s[i]) || s[i] == '.') {
		i++
	}
	return s[:i], s[i:]
}

func isWordByte(b byte) bool {
	return b == '_' ||
		(b >= 'a' && b <= 'z') ||
		(b >= 'A' && b <= 'Z') ||
		(b >= '0' && b <= '9')
}
