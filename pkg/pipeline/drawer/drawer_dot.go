package drawer

import (
	"fmt"
	"io"
	"os"
	"sort"
	"text/template"
	"time"

	"github.com/dominikbraun/graph"
	"github.com/pkg/errors"
	"gopkg.in/go-playground/colors.v1" //nolint

	"github.com/askiada/seqpipe/internal/store"
	"github.com/askiada/seqpipe/pkg/pipeline/measure"
	"github.com/askiada/seqpipe/pkg/pipeline/model"
)

var statusColours = map[model.StageStatus][3]uint8{
	model.StatusPending:   {160, 160, 160},
	model.StatusRunning:   {230, 160, 0},
	model.StatusSucceeded: {0, 150, 60},
	model.StatusFailed:    {220, 0, 0},
}

// DOTDrawer writes the graph of a run in Graphviz DOT format.
type DOTDrawer struct {
	mem      *store.Memory[string, string]
	graph    graph.Graph[string, string]
	fileName string
	out      io.Writer
}

// NewDOTDrawer creates a drawer writing to fileName.
func NewDOTDrawer(fileName string) *DOTDrawer {
	d := newDOTDrawer()
	d.fileName = fileName

	return d
}

// NewDOTWriter creates a drawer writing to w.
func NewDOTWriter(w io.Writer) *DOTDrawer {
	d := newDOTDrawer()
	d.out = w

	return d
}

func newDOTDrawer() *DOTDrawer {
	mem := store.NewMemory[string, string]()

	return &DOTDrawer{
		mem:   mem,
		graph: graph.NewWithStore(graph.StringHash, mem, graph.Directed()),
	}
}

// AddStage adds a stage to the pipeline graph.
func (d *DOTDrawer) AddStage(name string) error {
	err := d.graph.AddVertex(name, graph.VertexAttribute("shape", "box"))
	if err != nil {
		return errors.Wrapf(err, "unable to add vertex %s", name)
	}

	return nil
}

// AddLink adds a link between two stages.
func (d *DOTDrawer) AddLink(parentName, childName string) error {
	err := d.graph.AddEdge(parentName, childName)
	if err != nil {
		return errors.Wrapf(err, "unable to add edge from %s to %s", parentName, childName)
	}

	return nil
}

// SetStatus colours the stage border according to status.
func (d *DOTDrawer) SetStatus(name string, status model.StageStatus) error {
	rgb, ok := statusColours[status]
	if !ok {
		return errors.Errorf("unknown status %q", status)
	}
	colour, err := colors.RGB(rgb[0], rgb[1], rgb[2])
	if err != nil {
		return errors.Wrap(err, "unable to get colour")
	}

	err = d.mem.UpdateVertex(name,
		graph.VertexAttribute("color", colour.ToHEX().String()),
		graph.VertexAttribute("penwidth", "2"),
	)
	if err != nil {
		return errors.Wrap(err, "unable to set status")
	}

	return nil
}

// SetDuration sets the duration shown under the stage name.
func (d *DOTDrawer) SetDuration(name string, elapsed time.Duration) error {
	err := d.mem.UpdateVertex(name, graph.VertexAttribute("xlabel", measure.Round(elapsed).String()))
	if err != nil {
		return errors.Wrap(err, "unable to set duration")
	}

	return nil
}

const maxRGB = 240

// AddMeasure colours every link by the total duration of the stage it leads to, from blue for
// the fastest stage to red for the slowest, and labels it with the mean program run time.
func (d *DOTDrawer) AddMeasure(msr measure.Measure) error {
	metrics := msr.AllMetrics()

	var minValue, maxValue time.Duration
	first := true
	for name, mt := range metrics {
		if name == model.StartStage.Name || name == model.EndStage.Name {
			continue
		}
		total := mt.GetTotalDuration()
		if first || total < minValue {
			minValue = total
		}
		if first || total > maxValue {
			maxValue = total
		}
		first = false
	}

	predecessors, err := d.graph.PredecessorMap()
	if err != nil {
		return errors.Wrap(err, "unable to get predecessors")
	}

	for name, mt := range metrics {
		if name == model.StartStage.Name || name == model.EndStage.Name {
			continue
		}

		fraction := 1.0
		if maxValue > minValue {
			fraction = float64(mt.GetTotalDuration()-minValue) / float64(maxValue-minValue)
		}
		red := uint8(maxRGB * fraction)
		blue := uint8(maxRGB - maxRGB*fraction)
		colour, err := colors.RGB(red, 0, blue)
		if err != nil {
			return errors.Wrap(err, "unable to get colour")
		}

		label := ""
		if avg := mt.AVGDuration(); avg > 0 {
			label = "avg run " + avg.String()
		}

		for parent := range predecessors[name] {
			err := d.graph.UpdateEdge(parent, name,
				graph.EdgeAttribute("color", colour.ToHEX().String()),
				graph.EdgeAttribute("label", label),
				graph.EdgeAttribute("fontcolor", "blue"),
			)
			if err != nil {
				return errors.Wrap(err, "unable to update edge")
			}
		}
	}

	return nil
}

// Draw writes the DOT description of the graph.
func (d *DOTDrawer) Draw() error {
	out := d.out
	if out == nil {
		file, err := os.Create(d.fileName)
		if err != nil {
			return errors.Wrapf(err, "unable to create file %s", d.fileName)
		}
		defer file.Close()
		out = file
	}

	err := dot(d.graph, out)
	if err != nil {
		return errors.Wrapf(err, "unable to write dot graph %s", d.fileName)
	}

	return nil
}

//nolint:lll //this is a template
const dotTemplate = `strict {{.GraphType}} {
	{{range $k, $v := .Attributes}}
		{{$k}}="{{$v}}";
	{{end}}
	{{range $s := .Statements}}
		"{{.Source}}" {{if .Target}}{{$.EdgeOperator}} "{{.Target}}" [ {{range $k, $v := .EdgeAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.EdgeWeight}} ]{{else}}[ {{range $k, $v := .HTMLAttributes}}{{$k}}={{$v}}, {{end}} {{range $k, $v := .SourceAttributes}}{{$k}}="{{$v}}", {{end}} weight={{.SourceWeight}} ]{{end}};
	{{end}}
	}
	`

type description struct {
	GraphType    string
	Attributes   map[string]string
	EdgeOperator string
	Statements   []statement
}

type statement struct {
	Source           string
	Target           string
	SourceAttributes map[string]string
	HTMLAttributes   map[string]string
	EdgeAttributes   map[string]string
	SourceWeight     int
	EdgeWeight       int
}

func dot(g graph.Graph[string, string], wrt io.Writer) error {
	desc, err := generateDOT(g)
	if err != nil {
		return errors.Wrap(err, "failed to generate DOT description")
	}

	return renderDOT(wrt, desc)
}

// generateDOT lists vertices and edges in sorted order so the output is stable.
func generateDOT(gra graph.Graph[string, string]) (description, error) {
	desc := description{
		GraphType:    "graph",
		Attributes:   map[string]string{"rankdir": "LR"},
		EdgeOperator: "--",
		Statements:   make([]statement, 0),
	}

	if gra.Traits().IsDirected {
		desc.GraphType = "digraph"
		desc.EdgeOperator = "->"
	}

	adjacencyMap, err := gra.AdjacencyMap()
	if err != nil {
		return desc, errors.Wrap(err, "unable to get adjacency map")
	}

	vertices := make([]string, 0, len(adjacencyMap))
	for vertex := range adjacencyMap {
		vertices = append(vertices, vertex)
	}
	sort.Strings(vertices)

	for _, vertex := range vertices {
		_, sourceProperties, err := gra.VertexWithProperties(vertex)
		if err != nil {
			return desc, errors.Wrap(err, "unable to get vertex properties")
		}

		attributes := make(map[string]string, len(sourceProperties.Attributes))
		htmlAttributes := make(map[string]string)
		for k, v := range sourceProperties.Attributes {
			if k == "xlabel" {
				htmlAttributes["label"] = fmt.Sprintf(`<%s <BR /> <FONT POINT-SIZE="12">%s</FONT>>`, vertex, v)
				continue
			}
			attributes[k] = v
		}

		desc.Statements = append(desc.Statements, statement{
			Source:           vertex,
			SourceWeight:     sourceProperties.Weight,
			SourceAttributes: attributes,
			HTMLAttributes:   htmlAttributes,
		})

		targets := make([]string, 0, len(adjacencyMap[vertex]))
		for target := range adjacencyMap[vertex] {
			targets = append(targets, target)
		}
		sort.Strings(targets)

		for _, target := range targets {
			edge := adjacencyMap[vertex][target]
			desc.Statements = append(desc.Statements, statement{
				Source:         vertex,
				Target:         target,
				EdgeWeight:     edge.Properties.Weight,
				EdgeAttributes: edge.Properties.Attributes,
			})
		}
	}

	return desc, nil
}

func renderDOT(wrt io.Writer, desc description) error {
	tpl, err := template.New("dotTemplate").Parse(dotTemplate)
	if err != nil {
		return errors.Wrap(err, "failed to parse template")
	}

	err = tpl.Execute(wrt, desc)
	if err != nil {
		return errors.Wrap(err, "unable to execute template")
	}

	return nil
}

var _ Drawer = (*DOTDrawer)(nil)
