package drawer

import (
	"time"

	"github.com/askiada/seqpipe/pkg/pipeline/measure"
	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

// Drawer is an interface that defines the methods for drawing a pipeline run.
type Drawer interface {
	// AddStage adds a stage to the pipeline drawer.
	AddStage(name string) error
	// AddLink adds a link between two stages.
	AddLink(parentName, childName string) error
	// SetStatus colours the stage according to its outcome.
	SetStatus(name string, status model.StageStatus) error
	// SetDuration sets the duration shown under the stage name.
	SetDuration(name string, elapsed time.Duration) error
	// AddMeasure colours the links by how long the stage they lead to took.
	AddMeasure(measure measure.Measure) error
	// Draw writes the graph.
	Draw() error
}
