package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jwebster45206/drifter/pkg/state"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <snapshot.json>\n", os.Args[0])
		os.Exit(1)
	}

	filename := os.Args[1]
	validator := &SnapshotValidator{}

	if err := validator.validateFile(filename); err != nil {
		fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println("Snapshot is valid!")
}

type SnapshotValidator struct {
	errors []string
}

func (v *SnapshotValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	if !strings.HasSuffix(filepath.Base(filename), ".json") {
		return fmt.Errorf("snapshot file must have .json extension: %s", filepath.Base(filename))
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}
	return v.validateBytes(data)
}

func (v *SnapshotValidator) validateBytes(data []byte) error {
	v.errors = nil

	if !json.Valid(data) {
		return fmt.Errorf("snapshot contains invalid JSON")
	}

	var gs state.GameState
	decoder := json.NewDecoder(bytes.NewReader(data))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&gs); err != nil {
		return fmt.Errorf("snapshot failed strict JSON unmarshaling: %w", err)
	}

	v.validateSnapshot(&gs)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors:\n%s", strings.Join(v.errors, "\n"))
	}
	return nil
}

func (v *SnapshotValidator) validateSnapshot(gs *state.GameState) {
	if err := gs.Validate(); err != nil {
		v.addError("%v", err)
	}

	// every death must be backed by a status update on that day
	for _, c := range gs.Characters {
		if !c.IsDead || c.DeathDay == nil {
			continue
		}
		day := *c.DeathDay
		if day < 1 || day > len(gs.History) {
			continue
		}
		found := false
		for _, u := range gs.History[day-1].StatusUpdates {
			if u.CharacterID == c.ID && u.IsDead {
				found = true
				break
			}
		}
		if !found {
			v.addError("character %q died on day %d but that day has no matching status update", c.Name, day)
		}
	}

	for _, l := range gs.History {
		if l.Choice == nil {
			continue
		}
		if _, ok := l.Choice.Selected(); !ok {
			v.addError("day %d: selected option %d is out of range", l.Day, l.Choice.SelectedOptionIndex)
		}
	}

	if gs.IsComplete() && gs.Ending == nil {
		v.addError("campaign reached day %d without an ending", gs.CurrentDay)
	}
	if gs.Ending != nil && !gs.Ending.Outcome.Valid() {
		v.addError("ending has unknown outcome %q", gs.Ending.Outcome)
	}
}

func (v *SnapshotValidator) addError(format string, args ...interface{}) {
	v.errors = append(v.errors, "  - "+fmt.Sprintf(format, args...))
}
