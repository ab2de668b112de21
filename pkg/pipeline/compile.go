// Package pipeline is the glue orig §4.6's façade sits behind: one
// Compile call sequencing C2 (declarative-source extraction) through C5
// (graph assembly), mirroring the teacher's per-stage
// parse -> lower -> codegen Handler shape (cmd/jack_compiler/main.go) but
// generalized to this spec's five-stage pipeline.
package pipeline

import (
	"fmt"
	"io"

	"github.com/xdp2gen/pgcompile/pkg/astfact"
	"github.com/xdp2gen/pgcompile/pkg/config"
	"github.com/xdp2gen/pgcompile/pkg/declsrc"
	"github.com/xdp2gen/pgcompile/pkg/irsrc"
	"github.com/xdp2gen/pgcompile/pkg/metadata"
	"github.com/xdp2gen/pgcompile/pkg/pgir"
)

// Result is everything an emitter needs: the assembled graph, the
// metadata record it was assembled against (nil if the source declared
// none), and the diagnostics accumulated along the way.
type Result struct {
	Graph      *pgir.Graph
	MetaRecord *metadata.Field
	Diagnostics []config.Diagnostic
}

// Compile reads declSrc (the host declarative source, required) and
// irSrc (the compiled IR, required only when a later stage needs
// recovered semantics — nil is fine for emitters that don't), and runs
// the full C2 -> C5 pipeline.
func Compile(declSrc io.Reader, irSrc io.Reader, log *config.Logger) (*Result, error) {
	declParser := declsrc.NewParser(declSrc)
	records, err := declParser.Parse()
	if err != nil {
		return nil, fmt.Errorf("parsing declarative source: %w", err)
	}

	facts := astfact.Extract(records, log)

	var metaRecord *metadata.Field
	for _, r := range records {
		if r.Kind == declsrc.KindMetadataRecord {
			metaRecord = metadata.FromRecord(r)
			break
		}
	}

	var mod *irsrc.Module
	if irSrc != nil {
		irParser := irsrc.NewParser(irSrc)
		mod, err = irParser.Parse()
		if err != nil {
			return nil, fmt.Errorf("parsing compiled IR: %w", err)
		}
	}

	g, diags := pgir.Assemble(facts, mod, metaRecord, log)
	return &Result{Graph: g, MetaRecord: metaRecord, Diagnostics: diags}, nil
}
