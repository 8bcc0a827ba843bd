package pipeline

import (
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

const (
	// MinStageID and MaxStageID bound every stage identifier.
	MinStageID = 1
	MaxStageID = 9
)

// Request is a set of selected stage IDs. Duplicates collapse and the input order is
// irrelevant: IDs always returns them in ascending order.
type Request struct {
	ids map[int]struct{}
}

// NewRequest builds a request from explicit IDs.
func NewRequest(ids ...int) (Request, error) {
	req := Request{ids: make(map[int]struct{}, len(ids))}
	for _, id := range ids {
		if id < MinStageID || id > MaxStageID {
			return Request{}, errors.Wrapf(ErrUnknownStage, "%d is outside %d-%d", id, MinStageID, MaxStageID)
		}
		req.ids[id] = struct{}{}
	}
	if len(req.ids) == 0 {
		return Request{}, ErrEmptyRequest
	}

	return req, nil
}

// ParseRequest reads a selection string such as "1 2 3", "123" or "4,5,6". Every digit from 1
// to 9 selects that stage; any other character is ignored.
func ParseRequest(selection string) (Request, error) {
	ids := make([]int, 0, len(selection))
	for _, r := range selection {
		if r >= '0'+MinStageID && r <= '0'+MaxStageID {
			ids = append(ids, int(r-'0'))
		}
	}
	req, err := NewRequest(ids...)
	if err != nil {
		return Request{}, errors.Wrapf(err, "unable to parse selection %q", selection)
	}

	return req, nil
}

// All selects every stage.
func All() Request {
	req := Request{ids: make(map[int]struct{}, MaxStageID)}
	for id := MinStageID; id <= MaxStageID; id++ {
		req.ids[id] = struct{}{}
	}

	return req
}

// Has reports whether id is selected.
func (r Request) Has(id int) bool {
	_, ok := r.ids[id]
	return ok
}

// Len is the number of distinct selected stages.
func (r Request) Len() int { return len(r.ids) }

// IDs returns the selected stages in ascending order.
func (r Request) IDs() []int {
	ids := make([]int, 0, len(r.ids))
	for id := range r.ids {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	return ids
}

func (r Request) String() string {
	ids := r.IDs()
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = strconv.Itoa(id)
	}

	return strings.Join(parts, ",")
}
