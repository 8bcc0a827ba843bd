// Package config loads the pipeline configuration file and validates the keys every selected
// stage needs before the run starts.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/ini.v1"
)

// ErrConfig marks every configuration problem. They are fatal and reported before any stage
// runs.
var ErrConfig = errors.New("configuration error")

// Section names as they appear in the file.
const (
	SectionPrograms  = "Program paths"
	SectionVariables = "Variables"
	SectionMira      = "Mira Parameters"
)

// FileName is the configuration file looked up when none is given explicitly.
const FileName = "seqpiperc"

type valueType int

const (
	typeText valueType = iota
	typeInt
)

// Key names one configuration entry.
type Key struct {
	Section string
	Name    string

	kind     valueType
	optional bool
}

func (k Key) String() string {
	return fmt.Sprintf("[%s] %s", k.Section, k.Name)
}

// Optional reports whether the key has a documented fallback.
func (k Key) Optional() bool { return k.optional }

func program(name string) Key { return Key{Section: SectionPrograms, Name: name} }

func variable(name string, kind valueType) Key {
	return Key{Section: SectionVariables, Name: name, kind: kind}
}

func mira(name string) Key { return Key{Section: SectionMira, Name: name} }

// Program paths.
var (
	KeyExtractor   = program("sff_extract_path")
	KeySeqClean    = program("seqclean_path")
	KeyUniVecDB    = program("univecdb_path")
	KeyCln2Qual    = program("cln2qual_path")
	KeyMira        = program("mira_path")
	KeyMiraConvert = Key{Section: SectionPrograms, Name: "miraconvert_path", optional: true}
	KeySAMToBAM    = program("sam2bam_path")
	KeyBAMToTCS    = program("bam2tcs_path")
	KeyTCSFilter   = program("tcsfilter_path")
	KeySNPGrabber  = program("snpgrabber_path")
	KeyGetORF      = program("getorf_path")
	KeyORFMaker    = program("orfmaker_path")
	KeyBlast       = program("blast_path")
	KeyBlastDB     = program("blastdb_path")
	KeyMetrics     = program("metrics_path")
	KeyReporter    = program("reporter_path")
	KeyBlast2GO    = program("blast2go_path")
	KeyJava        = Key{Section: SectionPrograms, Name: "java_path", optional: true}
	KeySSRFinder   = program("ssrfinder_path")
	KeyEtandem     = program("etandem_path")
	KeyTemplates   = program("templates_path")
	KeySevenZip    = program("7z_path")
)

// Variables.
var (
	KeyMaxEquality = variable("max_equality", typeInt)
	KeyMinLen      = variable("min_len", typeInt)
	KeySeqCores    = variable("seqcores", typeInt)
	KeyMinQual     = variable("minqual", typeInt)
	KeyMinCov      = variable("mincov", typeInt)
	KeyMinSSRQual  = variable("min_ssr_qual", typeInt)
)

// Mira parameter fragments, copied verbatim into the manifest.
var (
	KeyMiraJob       = mira("mirajob")
	KeyMiraCommon    = mira("miracommon")
	KeyMira454       = mira("mira454")
	KeyMiraReadGroup = mira("mirareadgroup")
	KeyMiraTech      = mira("miratech")
)

// Programs holds executable and data paths.
type Programs struct {
	Extractor   string
	SeqClean    string
	UniVecDB    string
	Cln2Qual    string
	Mira        string
	MiraConvert string
	SAMToBAM    string
	BAMToTCS    string
	TCSFilter   string
	SNPGrabber  string
	GetORF      string
	ORFMaker    string
	Blast       string
	BlastDB     string
	Metrics     string
	Reporter    string
	Blast2GO    string
	Java        string
	SSRFinder   string
	Etandem     string
	Templates   string
	SevenZip    string
}

// Variables holds numeric thresholds shared across stages.
type Variables struct {
	MaxEquality int
	MinLen      int
	SeqCores    int
	MinQual     int
	MinCov      int
	MinSSRQual  int
}

// MiraParameters holds raw manifest fragments.
type MiraParameters struct {
	Job       string
	Common    string
	Tech454   string
	ReadGroup string
	Tech      string
}

// Config is the validated configuration of one run. It is read-only once loaded.
type Config struct {
	Programs  Programs
	Variables Variables
	Mira      MiraParameters

	// Source is the file the values came from.
	Source string

	present map[Key]string
}

type binding struct {
	key  Key
	text *string
	num  *int
}

func (c *Config) bindings() []binding {
	p, v, m := &c.Programs, &c.Variables, &c.Mira
	return []binding{
		{key: KeyExtractor, text: &p.Extractor},
		{key: KeySeqClean, text: &p.SeqClean},
		{key: KeyUniVecDB, text: &p.UniVecDB},
		{key: KeyCln2Qual, text: &p.Cln2Qual},
		{key: KeyMira, text: &p.Mira},
		{key: KeyMiraConvert, text: &p.MiraConvert},
		{key: KeySAMToBAM, text: &p.SAMToBAM},
		{key: KeyBAMToTCS, text: &p.BAMToTCS},
		{key: KeyTCSFilter, text: &p.TCSFilter},
		{key: KeySNPGrabber, text: &p.SNPGrabber},
		{key: KeyGetORF, text: &p.GetORF},
		{key: KeyORFMaker, text: &p.ORFMaker},
		{key: KeyBlast, text: &p.Blast},
		{key: KeyBlastDB, text: &p.BlastDB},
		{key: KeyMetrics, text: &p.Metrics},
		{key: KeyReporter, text: &p.Reporter},
		{key: KeyBlast2GO, text: &p.Blast2GO},
		{key: KeyJava, text: &p.Java},
		{key: KeySSRFinder, text: &p.SSRFinder},
		{key: KeyEtandem, text: &p.Etandem},
		{key: KeyTemplates, text: &p.Templates},
		{key: KeySevenZip, text: &p.SevenZip},
		{key: KeyMaxEquality, num: &v.MaxEquality},
		{key: KeyMinLen, num: &v.MinLen},
		{key: KeySeqCores, num: &v.SeqCores},
		{key: KeyMinQual, num: &v.MinQual},
		{key: KeyMinCov, num: &v.MinCov},
		{key: KeyMinSSRQual, num: &v.MinSSRQual},
		{key: KeyMiraJob, text: &m.Job},
		{key: KeyMiraCommon, text: &m.Common},
		{key: KeyMira454, text: &m.Tech454},
		{key: KeyMiraReadGroup, text: &m.ReadGroup},
		{key: KeyMiraTech, text: &m.Tech},
	}
}

// Load reads path. Key names are case-insensitive and indented continuation lines are folded
// into the previous value. Values that are present but malformed fail here; absent keys are
// only reported by Require.
func Load(path string) (*Config, error) {
	file, err := ini.LoadSources(ini.LoadOptions{
		InsensitiveKeys:            true,
		AllowPythonMultilineValues: true,
		SpaceBeforeInlineComment:   true,
	}, path)
	if err != nil {
		return nil, errors.Wrapf(ErrConfig, "unable to read %s: %v", path, err)
	}

	cfg := &Config{Source: path, present: make(map[Key]string)}
	for _, b := range cfg.bindings() {
		sec, err := file.GetSection(b.key.Section)
		if err != nil || !sec.HasKey(b.key.Name) {
			continue
		}
		raw := strings.TrimSpace(sec.Key(b.key.Name).String())
		if raw == "" {
			continue
		}
		switch {
		case b.num != nil:
			n, err := strconv.Atoi(raw)
			if err != nil {
				return nil, errors.Wrapf(ErrConfig, "%s: %s must be an integer, got %q", path, b.key, raw)
			}
			*b.num = n
		case b.text != nil:
			*b.text = raw
		}
		cfg.present[b.key] = raw
	}

	cfg.applyFallbacks()

	return cfg, nil
}

// applyFallbacks fills the documented optional keys.
func (c *Config) applyFallbacks() {
	if c.Programs.Java == "" {
		c.Programs.Java = "java"
	}
	if c.Programs.MiraConvert == "" && c.Programs.Mira != "" {
		c.Programs.MiraConvert = c.Programs.Mira + "convert"
	}
}

// Has reports whether key was set in the file.
func (c *Config) Has(key Key) bool {
	_, ok := c.present[key]
	return ok
}

// Require checks that every non-optional key is present. The error lists all missing keys
// at once.
func (c *Config) Require(keys ...Key) error {
	seen := make(map[Key]struct{})
	var missing []string
	for _, key := range keys {
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if key.optional || c.Has(key) {
			continue
		}
		missing = append(missing, key.String())
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return errors.Wrapf(ErrConfig, "%s is missing %s", c.Source, strings.Join(missing, ", "))
}

// Resolve picks the configuration file: explicit if given, then FileName in cwd, then
// ~/.config/FileName. The returned path is absolute.
func Resolve(explicit, cwd, home string) (string, error) {
	if explicit != "" {
		abs, err := filepath.Abs(explicit)
		if err != nil {
			return "", errors.Wrapf(ErrConfig, "invalid config path %q: %v", explicit, err)
		}
		if !isFile(abs) {
			return "", errors.Wrapf(ErrConfig, "config file %s does not exist", abs)
		}
		return abs, nil
	}

	var candidates []string
	if cwd != "" {
		candidates = append(candidates, filepath.Join(cwd, FileName))
	}
	if home != "" {
		candidates = append(candidates, filepath.Join(home, ".config", FileName))
	}
	for _, candidate := range candidates {
		if isFile(candidate) {
			return candidate, nil
		}
	}

	return "", errors.Wrapf(ErrConfig, "no config file provided nor found in %s", strings.Join(candidates, " or "))
}

func isFile(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}
