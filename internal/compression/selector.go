package compression

import (
	"strings"
	"unicode/utf8"
)

// Size thresholds, in characters, used by SelectLevel.
const (
	LargeModuleChars = 10000
	SmallModuleChars = 3000
)

// SelectLevel decides the compression level for a module. The rules are
// evaluated in order and the first match wins:
//
//  1. deployment mode forces LevelDeployment
//  2. critical priority or category selects LevelComprehensive
//  3. content longer than LargeModuleChars selects LevelMinimal
//  4. framework or core category selects LevelComprehensive
//  5. high priority selects LevelStandard
//  6. content shorter than SmallModuleChars selects LevelDeployment
//  7. anything else selects LevelStandard
func SelectLevel(m *Module, mode Mode) (Level, error) {
	if m == nil {
		return "", &ArgumentError{Arg: "module", Err: ErrNilModule}
	}
	if mode == "" {
		mode = ModeInstall
	}
	if mode != ModeInstall && mode != ModeDeployment {
		return "", &ArgumentError{Arg: "mode", Err: ErrUnknownMode}
	}

	mod := m.Normalize()
	category := strings.ToLower(mod.Category)
	size := utf8.RuneCountInString(mod.Content)

	switch {
	case mode == ModeDeployment:
		return LevelDeployment, nil
	case mod.Priority == PriorityCritical || category == "critical":
		return LevelComprehensive, nil
	case size > LargeModuleChars:
		return LevelMinimal, nil
	case category == "framework" || category == "core":
		return LevelComprehensive, nil
	case mod.Priority == PriorityHigh:
		return LevelStandard, nil
	case size < SmallModuleChars:
		return LevelDeployment, nil
	default:
		return LevelStandard, nil
	}
}
