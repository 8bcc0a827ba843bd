// Package stages declares the nine steps of the sequencing pipeline: what each one reads,
// writes and needs from the configuration, and how it drives its external programs.
package stages

import (
	"github.com/askiada/seqpipe/internal/convergence"
	"github.com/askiada/seqpipe/pkg/pipeline"
)

// Stage identifiers.
const (
	Extraction = iota + 1
	Cleaning
	Assembly
	SNPDiscovery
	SNPExtraction
	ORFAnnotation
	FunctionalAnnotation
	SSRDetection
	ReportPackaging
)

// Settings tunes the stages that have engine-side bounds.
type Settings struct {
	// MaxClipIterations bounds the clip search of the extraction stage.
	MaxClipIterations int
}

// DefaultSettings returns the bounds used by the command line tool by default.
func DefaultSettings() Settings {
	return Settings{MaxClipIterations: convergence.DefaultMaxIterations}
}

// NewRegistry returns the registry of all nine stages.
func NewRegistry(settings Settings) (*pipeline.Registry, error) {
	return pipeline.NewRegistry(
		extractionStage(settings),
		cleaningStage(),
		assemblyStage(),
		snpDiscoveryStage(),
		snpExtractionStage(),
		orfAnnotationStage(),
		functionalAnnotationStage(),
		ssrDetectionStage(),
		reportPackagingStage(),
	)
}
