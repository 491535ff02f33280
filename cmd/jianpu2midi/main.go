// Package main is the entry point for jianpu2midi CLI
package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/james-see/jianpu2midi/pkg/api"
	"github.com/james-see/jianpu2midi/pkg/config"
	"github.com/james-see/jianpu2midi/pkg/converter"
	"github.com/james-see/jianpu2midi/pkg/notation"
	"github.com/james-see/jianpu2midi/pkg/tui"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var (
	outputFile   string
	serverPort   int
	ticksPerBeat int
	velocity     int
	clampPitch   bool
	logLevel     string
	jsonOutput   bool

	cfg config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "jianpu2midi",
	Short: "Convert jianpu numbered notation to MIDI",
	Long: `jianpu2midi converts jianpu (numbered musical notation) text files into
multi-track Standard MIDI Files.

A document holds global @directives followed by [track] sections of note
tokens such as 1 2 3- 5^. #4 b7_ 0 and C5 "Kick" for percussion keys.

Examples:
  jianpu2midi convert song.jianpu -o song.mid
  jianpu2midi validate song.jianpu
  jianpu2midi inspect song.mid
  jianpu2midi tui
  jianpu2midi serve --port 8080`,
	Version:           fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var convertCmd = &cobra.Command{
	Use:   "convert <input>",
	Short: "Convert a jianpu file to MIDI",
	Long:  `Converts a jianpu file to a format 1 MIDI file. No output is written if any note is invalid.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runConvert,
}

var validateCmd = &cobra.Command{
	Use:   "validate <input>",
	Short: "Check a jianpu file and list every problem",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

var inspectCmd = &cobra.Command{
	Use:   "inspect <input.mid>",
	Short: "Summarize the tracks of a MIDI file",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Launch interactive terminal UI",
	RunE:  runTUI,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

func init() {
	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.IntVar(&ticksPerBeat, "ticks-per-beat", 0, "Default ticks per beat (24-960), a @ticks_per_beat directive wins")
	flags.IntVar(&velocity, "velocity", 0, "Note-on velocity (1-127)")
	flags.BoolVar(&clampPitch, "clamp-pitch", false, "Clamp out-of-range pitches to 0-127 instead of failing")
	flags.StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	// convert command
	convertCmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output .mid file path")

	// validate and inspect commands
	validateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the report as JSON")
	inspectCmd.Flags().BoolVar(&jsonOutput, "json", false, "Print the summary as JSON")

	// serve command
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "Server port (default from PORT or 8080)")

	// Add commands
	rootCmd.AddCommand(convertCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(tuiCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig reads the environment, then lets explicitly set flags override it
func loadConfig(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("ticks-per-beat") {
		if ticksPerBeat < notation.MinTicksPerBeat || ticksPerBeat > notation.MaxTicksPerBeat {
			return fmt.Errorf("--ticks-per-beat must be between %d and %d", notation.MinTicksPerBeat, notation.MaxTicksPerBeat)
		}
		cfg.Converter.TicksPerBeat = uint16(ticksPerBeat)
	}
	if flags.Changed("velocity") {
		if velocity < 1 || velocity > 127 {
			return errors.New("--velocity must be between 1 and 127")
		}
		cfg.Converter.Velocity = uint8(velocity)
	}
	if flags.Changed("clamp-pitch") && clampPitch {
		cfg.Converter.PitchPolicy = notation.PitchClamp
	}
	if flags.Changed("log-level") {
		level, err := logrus.ParseLevel(logLevel)
		if err != nil {
			return err
		}
		cfg.LogLevel = level
	}
	if flags.Changed("port") {
		cfg.Port = serverPort
	}

	cfg.ConfigureLogging()
	api.Version = version
	return nil
}

func logWarnings(input string, warnings []notation.Warning) {
	for _, w := range warnings {
		logrus.WithFields(logrus.Fields{"file": input, "line": w.Line, "track": w.Track}).Warn(w.Message)
	}
}

func runConvert(cmd *cobra.Command, args []string) error {
	input := args[0]
	output := outputFile
	if output == "" {
		output = converter.OutputPath(input)
	}
	if converter.DetectFormat(input) == converter.FormatMIDI {
		return fmt.Errorf("%s is already a MIDI file", input)
	}

	conv := converter.New(cfg.Converter)
	fmt.Printf("Converting %s -> %s\n", input, output)
	result, err := conv.ConvertFile(input, output)
	if err != nil {
		problems := converter.Problems(err)
		if len(problems) == 1 && problems[0].Category == converter.CategoryOther {
			return err
		}
		for _, p := range problems {
			logrus.WithFields(logrus.Fields{
				"category": p.Category,
				"line":     p.Line,
				"track":    p.Track,
				"token":    p.Token,
			}).Error(p.Message)
		}
		return errors.New("conversion failed, no output written")
	}
	logWarnings(input, result.Warnings)

	for _, t := range result.Tracks {
		on, _, lyrics := t.Counts()
		logrus.WithFields(logrus.Fields{
			"track":      t.Index,
			"name":       t.Metadata.Name,
			"key":        t.Metadata.Key.Describe(),
			"instrument": notation.InstrumentName(t.Metadata.Instrument),
			"notes":      on,
			"lyrics":     lyrics,
		}).Debug("track written")
	}
	fmt.Println("Conversion complete!")
	return nil
}

func runValidate(cmd *cobra.Command, args []string) error {
	input := args[0]
	data, err := os.ReadFile(input)
	if err != nil {
		return err
	}

	report := converter.New(cfg.Converter).Validate(string(data))
	if jsonOutput {
		if err := printJSON(report); err != nil {
			return err
		}
	} else {
		for _, w := range report.Warnings {
			fmt.Printf("warning: %s\n", w)
		}
		for _, p := range report.Problems {
			if p.Token != "" {
				fmt.Printf("error: line %d: %s %q: %s\n", p.Line, p.Category, p.Token, p.Message)
			} else {
				fmt.Printf("error: %s: %s\n", p.Category, p.Message)
			}
		}
	}

	if !report.Valid {
		return fmt.Errorf("%s: %d problems found", input, len(report.Problems))
	}
	if !jsonOutput {
		fmt.Printf("%s is valid: %d tracks, %d notes\n", input, report.Tracks, report.Notes)
	}
	return nil
}

func runInspect(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	summary, err := converter.InspectReader(f)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(summary)
	}

	fmt.Printf("Ticks per beat: %d\n", summary.TicksPerBeat)
	fmt.Printf("Tempo:          %.2f BPM\n", summary.BPM)
	fmt.Printf("Time signature: %s\n", summary.TimeSignature)
	for i, t := range summary.Tracks {
		fmt.Printf("Track %d: %q channel=%d program=%d notes=%d/%d lyrics=%d events=%d end=%d\n",
			i, t.Name, t.Channel, t.Program, t.NoteOns, t.NoteOffs, len(t.Lyrics), t.Events, t.EndTick)
	}
	return nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func runTUI(cmd *cobra.Command, args []string) error {
	return tui.Run(cfg.Converter)
}

func runServe(cmd *cobra.Command, args []string) error {
	fmt.Printf("Starting API server on port %d...\n", cfg.Port)
	return api.StartServer(cfg)
}
