package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/cwbudde/hum2melody/enhance"
	"github.com/cwbudde/hum2melody/preset"
	"github.com/cwbudde/hum2melody/rhythm"
	"github.com/cwbudde/hum2melody/synth"
	"github.com/cwbudde/hum2melody/theory"
)

type registry struct {
	Categories  map[string][]string `json:"categories"`
	Scales      []theory.Scale      `json:"scales"`
	Roots       []string            `json:"roots"`
	Grids       []string            `json:"grids"`
	Grooves     []rhythm.Groove     `json:"grooves"`
	Modes       []string            `json:"enhancement_modes"`
	Ornaments   []string            `json:"ornaments"`
	Instruments []synth.Profile     `json:"instruments"`
	Default     string              `json:"default_instrument"`
}

func build(pre *preset.Preset) registry {
	return registry{
		Categories:  theory.Categories(),
		Scales:      theory.Scales(),
		Roots:       append([]string(nil), theory.NoteNames[:]...),
		Grids:       rhythm.GridNames(),
		Grooves:     rhythm.Grooves(),
		Modes:       enhance.KindNames(),
		Ornaments:   []string{enhance.Grace.String(), enhance.Trill.String()},
		Instruments: pre.Profiles.Profiles(),
		Default:     pre.Instrument(synth.DefaultInstrument),
	}
}

func write(w io.Writer, r registry) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

func main() {
	presetPath := flag.String("preset", os.Getenv("HUM_PRESET"), "Instrument preset JSON file (optional)")
	flag.Parse()

	pre := preset.NewDefault()
	if *presetPath != "" {
		var err error
		if pre, err = preset.LoadJSON(*presetPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error loading preset %q: %v\n", *presetPath, err)
			os.Exit(1)
		}
	}
	if err := write(os.Stdout, build(pre)); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
