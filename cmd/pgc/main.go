package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/teris-io/cli"

	"github.com/xdp2gen/pgcompile/pkg/config"
	"github.com/xdp2gen/pgcompile/pkg/emit"
	"github.com/xdp2gen/pgcompile/pkg/pipeline"
)

var Description = strings.ReplaceAll(`
pgc compiles a declarative packet-parser description, together with its
compiled IR, into a parser-graph intermediate representation, emitted as
JSON, Graphviz dot, or a back-end source stub selected by the output
file's suffix.
`, "\n", " ")

var PGC = cli.New(Description).
	WithOption(cli.NewOption("input", "The declarative source file to compile").WithType(cli.TypeString)).
	WithOption(cli.NewOption("ll", "The compiled IR file, required for emitters needing recovered semantics").WithType(cli.TypeString)).
	WithOption(cli.NewOption("output", "The output file; suffix selects the emitter (.json, .c, .xdp.h, .dot, .p4)").WithType(cli.TypeString)).
	WithOption(cli.NewOption("include", "Additional include roots for the declarative front end").WithType(cli.TypeString)).
	WithOption(cli.NewOption("resource-path", "Host-language resource directory").WithType(cli.TypeString)).
	WithOption(cli.NewOption("verbose", "Enable diagnostic logging").WithType(cli.TypeBool)).
	WithOption(cli.NewOption("disable-warnings", "Suppress the warnings channel").WithType(cli.TypeBool)).
	WithAction(Handler)

func Handler(args []string, options map[string]string) int {
	input := options["input"]
	output := options["output"]
	if input == "" || output == "" {
		config.Fatalf("--input and --output are required")
		return 1
	}

	_, verbose := options["verbose"]
	_, disableWarnings := options["disable-warnings"]
	cfg := config.New(verbose, disableWarnings)
	log := config.NewLogger(cfg)
	defer log.Sync()

	suffix := outputSuffix(output)
	if suffix == "" {
		config.Fatalf("unrecognized output suffix for %q", output)
		return 1
	}

	declFile, err := os.Open(input)
	if err != nil {
		config.Fatalf("unable to open input file: %s", err)
		return 1
	}
	defer declFile.Close()

	var irSrc io.Reader
	if ll := options["ll"]; ll != "" {
		irFile, err := os.Open(ll)
		if err != nil {
			config.Fatalf("unable to open IR file: %s", err)
			return 1
		}
		defer irFile.Close()
		irSrc = irFile
	} else if suffix == "json" {
		config.Fatalf("--ll is required to emit JSON")
		return 1
	}

	res, err := pipeline.Compile(declFile, irSrc, log)
	if err != nil {
		config.Fatalf("unable to compile: %s", err)
		return 1
	}

	out, err := os.Create(output)
	if err != nil {
		config.Fatalf("unable to open output file: %s", err)
		return 1
	}
	defer out.Close()

	switch suffix {
	case "json":
		doc := emit.Build(res.Graph, res.MetaRecord, filepath.Base(input))
		if err := emit.WriteJSON(out, doc); err != nil {
			config.Fatalf("unable to write JSON output: %s", err)
			return 1
		}
	case "dot":
		if err := emit.WriteDot(out, res.Graph); err != nil {
			config.Fatalf("unable to write dot output: %s", err)
			return 1
		}
	case "c":
		if err := emit.WriteC(out, res.Graph); err != nil {
			config.Fatalf("unable to write C output: %s", err)
			return 1
		}
	case "xdp.h":
		if err := emit.WriteXDP(out, res.Graph); err != nil {
			config.Fatalf("unable to write XDP output: %s", err)
			return 1
		}
	case "p4":
		if err := emit.WriteP4(out, res.Graph); err != nil {
			config.Fatalf("unable to write P4 output: %s", err)
			return 1
		}
	}

	if n := log.Warnings(); n > 0 && verbose {
		log.Infof("compile finished with %d warning(s)", n)
	}

	return 0
}

// outputSuffix classifies output by its recognized suffix (orig §6), the
// longer ".xdp.h" checked before the generic ".h" would ever be (it isn't
// recognized on its own, so no ambiguity arises in practice).
func outputSuffix(path string) string {
	switch {
	case strings.HasSuffix(path, ".xdp.h"):
		return "xdp.h"
	case strings.HasSuffix(path, ".json"):
		return "json"
	case strings.HasSuffix(path, ".dot"):
		return "dot"
	case strings.HasSuffix(path, ".c"):
		return "c"
	case strings.HasSuffix(path, ".p4"):
		return "p4"
	default:
		return ""
	}
}

func main() { os.Exit(PGC.Run(os.Args, os.Stdout)) }
