// Package artifact derives the name of every file a pipeline run reads or writes from a
// single base path.
//
// All names are pure functions of the base path: two stages asking for the same Kind always
// get the same path, so stages never need to share a mutable registry of file names.
package artifact

import (
	"path/filepath"

	"github.com/pkg/errors"
)

// Kind identifies one artifact produced or consumed by a stage.
type Kind string

const (
	Reads           Kind = "reads"
	Quals           Kind = "quals"
	ReadsXML        Kind = "reads-xml"
	CleanReport     Kind = "clean-report"
	CleanReads      Kind = "clean-reads"
	CleanQualsRaw   Kind = "clean-quals-raw"
	CleanQuals      Kind = "clean-quals"
	Manifest        Kind = "manifest"
	Alignment       Kind = "alignment"
	BinaryAlignment Kind = "binary-alignment"
	ConsensusTable  Kind = "consensus-table"
	ShortConsensus  Kind = "short-consensus"
	SNPs            Kind = "snps"
	AllORFs         Kind = "all-orfs"
	BestORF         Kind = "best-orf"
	ORFBlast        Kind = "orf-blast"
	Metrics         Kind = "metrics"
	Report          Kind = "report"
	BlastXML        Kind = "blast-xml"
	Annotation      Kind = "annotation"
	SSR             Kind = "ssr"
	Archive         Kind = "archive"

	AssemblyDir          Kind = "assembly-dir"
	AssemblyMAF          Kind = "assembly-maf"
	AssemblyPadded       Kind = "assembly-padded"
	AssemblyUnpadded     Kind = "assembly-unpadded"
	AssemblyUnpaddedQual Kind = "assembly-unpadded-qual"
	AssemblyInfo         Kind = "assembly-info"

	CleanLog  Kind = "clean-log"
	HTMLFiles Kind = "html-files"
	ReportDir Kind = "report-dir"
)

// ErrUnknownKind is returned when a Kind has no naming rule.
var ErrUnknownKind = errors.New("unknown artifact kind")

// suffixes maps every Kind that is named "<base><suffix>".
var suffixes = map[Kind]string{
	Reads:           ".fasta",
	Quals:           ".fasta.qual",
	ReadsXML:        ".xml",
	CleanReport:     ".clean.rpt",
	CleanReads:      ".clean.fasta",
	CleanQualsRaw:   ".fasta.qual.clean",
	CleanQuals:      ".clean.fasta.qual",
	Manifest:        ".manifest",
	Alignment:       ".sam",
	BinaryAlignment: ".bam",
	ConsensusTable:  ".tcs",
	ShortConsensus:  "_out.short.tcs",
	SNPs:            ".SNPs.fasta",
	AllORFs:         ".allORFs.fasta",
	BestORF:         ".BestORF.fasta",
	ORFBlast:        ".ORFblast.html",
	Metrics:         ".Metrics.html",
	Report:          ".Report.html",
	BlastXML:        ".shortlistblast.xml",
	Annotation:      ".b2g.annot",
	SSR:             ".SSR.html",
	Archive:         ".report.7z",
	AssemblyDir:     "_assembly",
}

// Paths resolves artifact names for one run. The zero value is not usable; build it with New.
type Paths struct {
	base string
}

// New returns the resolver for base. base must be absolute.
func New(base string) (Paths, error) {
	if base == "" {
		return Paths{}, errors.New("base path must be set")
	}
	if !filepath.IsAbs(base) {
		return Paths{}, errors.Errorf("base path %q is not absolute", base)
	}
	return Paths{base: filepath.Clean(base)}, nil
}

// Base returns the path stem.
func (p Paths) Base() string { return p.base }

// Dir is the directory every artifact lives in. Tools are run with it as working directory.
func (p Paths) Dir() string { return filepath.Dir(p.base) }

// Name is the last element of the base path. The assembler uses it as its project name.
func (p Paths) Name() string { return filepath.Base(p.base) }

// Path returns the artifact path for kind. It panics on a Kind without a naming rule; use
// Lookup when the kind comes from outside the package.
func (p Paths) Path(kind Kind) string {
	path, err := p.Lookup(kind)
	if err != nil {
		panic(err)
	}
	return path
}

// Lookup returns the artifact path for kind.
func (p Paths) Lookup(kind Kind) (string, error) {
	if suffix, ok := suffixes[kind]; ok {
		return p.base + suffix, nil
	}

	name := p.Name()
	switch kind {
	case AssemblyMAF:
		return filepath.Join(p.results(), name+"_out.maf"), nil
	case AssemblyPadded:
		return filepath.Join(p.results(), name+"_out.padded.fasta"), nil
	case AssemblyUnpadded:
		return filepath.Join(p.results(), name+"_out.unpadded.fasta"), nil
	case AssemblyUnpaddedQual:
		return filepath.Join(p.results(), name+"_out.unpadded.fasta.qual"), nil
	case AssemblyInfo:
		return filepath.Join(p.base+suffixes[AssemblyDir], name+"_d_info", name+"_info_assembly.txt"), nil
	case CleanLog:
		return filepath.Join(p.Dir(), "seqcl_"+name+".fasta.log"), nil
	case HTMLFiles:
		return filepath.Join(p.Dir(), "html_files"), nil
	case ReportDir:
		return filepath.Join(p.Dir(), "Report"), nil
	}

	return "", errors.Wrapf(ErrUnknownKind, "%q", kind)
}

// Prefix is the stem handed to tools that append their own extension, such as the
// annotation tool writing "<prefix>.annot".
func (p Paths) Prefix(ext string) string { return p.base + ext }

func (p Paths) results() string {
	name := p.Name()
	return filepath.Join(p.base+suffixes[AssemblyDir], name+"_d_results")
}

// Kinds lists every Kind with a naming rule, in declaration order.
func Kinds() []Kind {
	return []Kind{
		Reads, Quals, ReadsXML, CleanReport, CleanReads, CleanQualsRaw, CleanQuals, Manifest,
		Alignment, BinaryAlignment, ConsensusTable, ShortConsensus, SNPs, AllORFs, BestORF,
		ORFBlast, Metrics, Report, BlastXML, Annotation, SSR, Archive,
		AssemblyDir, AssemblyMAF, AssemblyPadded, AssemblyUnpadded, AssemblyUnpaddedQual, AssemblyInfo,
		CleanLog, HTMLFiles, ReportDir,
	}
}
