package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	pelletier "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"

	"tkb/internal/envelope"
	"tkb/internal/shape"
)

var shapesValidate string

var shapesCmd = &cobra.Command{
	Use:   "shapes",
	Short: "Print or validate the signature table",
	Long: `Print the effective signature table as TOML, ready to copy into an
override file. With --validate, check an override file instead: the
table must parse and compile, and any keys the schema does not know
are reported.`,
	RunE: runShapes,
}

func init() {
	shapesCmd.Flags().StringVar(&shapesValidate, "validate", "", "Validate an override file instead of printing")
	rootCmd.AddCommand(shapesCmd)
}

// ShapesValidation is the result of checking one override file.
type ShapesValidation struct {
	Path        string   `json:"path"`
	Valid       bool     `json:"valid"`
	Kinds       []string `json:"kinds,omitempty"`
	UnknownKeys []string `json:"unknownKeys,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func runShapes(cmd *cobra.Command, args []string) error {
	if shapesValidate != "" {
		return runShapesValidate(shapesValidate)
	}

	cfg := mustConfig()

	table := shape.DefaultTable()
	if cfg.Shapes.Path != "" {
		loaded, err := shape.Load(cfg.Shapes.Path)
		if err != nil {
			return err
		}
		table = loaded
	}

	// The table is TOML configuration; print it in the form an override
	// file takes, whatever --format says.
	data, err := pelletier.Marshal(table)
	if err != nil {
		return err
	}
	fmt.Print(string(data))
	return nil
}

func runShapesValidate(path string) error {
	result := validateShapes(path)
	if err := printResponse(envelope.NewResponse(result)); err != nil {
		return err
	}
	if !result.Valid {
		os.Exit(1)
	}
	return nil
}

func validateShapes(path string) *ShapesValidation {
	result := &ShapesValidation{Path: path}

	var t shape.Table
	md, err := toml.DecodeFile(path, &t)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	for _, key := range md.Undecoded() {
		result.UnknownKeys = append(result.UnknownKeys, key.String())
	}

	// Load repeats the parse but adds rule compilation, which is where
	// pattern and type errors surface.
	table, err := shape.Load(path)
	if err != nil {
		result.Error = err.Error()
		return result
	}
	result.Valid = true
	result.Kinds = table.KindNames()
	return result
}
