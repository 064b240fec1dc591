// Package forgetest provides an in-memory forge.API fake for tests.
package forgetest

import (
	"context"
	"fmt"
	"sync"

	"mercator-hq/ganymede/pkg/forge"
)

// Call records one write operation issued against the fake.
type Call struct {
	// Op is the operation name (EditResource, CreateNote, ...).
	Op string

	// ProjectID and IID identify the target resource where relevant.
	ProjectID int64
	IID       int

	// Project is the path-or-id destination of a CreateIssue call.
	Project string

	// Edit, Note, Issue, MergeOpts hold the payload of the matching
	// operation; the others are nil.
	Edit      *forge.EditRequest
	Note      *forge.NoteRequest
	Issue     *forge.IssueRequest
	MergeOpts *forge.MergeOptions

	// Target is the move destination or deleted branch name.
	Target string
}

// Fake is an in-memory forge.API. Reads serve from the configured
// fixtures; writes are recorded and succeed unless Err is set.
type Fake struct {
	mu sync.Mutex

	// Resources served by ListResources and GetResource.
	Resources []*forge.Resource

	// Members served by GroupMembers, keyed by group id.
	Members map[int64][]forge.User

	// Err, when set, is returned by every operation.
	Err error

	// Created is the resource returned by CreateIssue.
	Created *forge.Resource

	calls []Call
}

// New returns an empty fake.
func New() *Fake {
	return &Fake{Members: make(map[int64][]forge.User)}
}

// Calls returns a copy of the recorded write operations.
func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallsTo returns the recorded calls for one operation name.
func (f *Fake) CallsTo(op string) []Call {
	var out []Call
	for _, c := range f.Calls() {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

func (f *Fake) record(c Call) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, c)
}

func (f *Fake) ListResources(ctx context.Context, rt forge.ResourceType, st forge.SourceType, sourceID int64) ([]*forge.Resource, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	var out []*forge.Resource
	for _, r := range f.Resources {
		if r.Type == rt {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *Fake) GetResource(ctx context.Context, rt forge.ResourceType, st forge.SourceType, sourceID int64, iid int) (*forge.Resource, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	for _, r := range f.Resources {
		if r.Type == rt && r.IID == iid {
			return r, nil
		}
	}
	return nil, &forge.NotFoundError{Path: fmt.Sprintf("%s/%d", rt, iid)}
}

func (f *Fake) EditResource(ctx context.Context, rt forge.ResourceType, projectID int64, iid int, edit *forge.EditRequest) error {
	if f.Err != nil {
		return f.Err
	}
	f.record(Call{Op: "EditResource", ProjectID: projectID, IID: iid, Edit: edit})
	return nil
}

func (f *Fake) CreateNote(ctx context.Context, rt forge.ResourceType, projectID int64, iid int, note *forge.NoteRequest) error {
	if f.Err != nil {
		return f.Err
	}
	f.record(Call{Op: "CreateNote", ProjectID: projectID, IID: iid, Note: note})
	return nil
}

func (f *Fake) CreateIssue(ctx context.Context, project string, req *forge.IssueRequest) (*forge.Resource, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	f.record(Call{Op: "CreateIssue", Project: project, Issue: req})
	if f.Created != nil {
		return f.Created, nil
	}
	return &forge.Resource{ID: 1, IID: 1, Type: forge.ResourceTypeIssue, Title: req.Title}, nil
}

func (f *Fake) MoveIssue(ctx context.Context, projectID int64, iid int, targetProject string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record(Call{Op: "MoveIssue", ProjectID: projectID, IID: iid, Target: targetProject})
	return nil
}

func (f *Fake) DeleteBranch(ctx context.Context, projectID int64, name string) error {
	if f.Err != nil {
		return f.Err
	}
	f.record(Call{Op: "DeleteBranch", ProjectID: projectID, Target: name})
	return nil
}

func (f *Fake) MergeMergeRequest(ctx context.Context, projectID int64, iid int, opts *forge.MergeOptions) error {
	if f.Err != nil {
		return f.Err
	}
	f.record(Call{Op: "MergeMergeRequest", ProjectID: projectID, IID: iid, MergeOpts: opts})
	return nil
}

func (f *Fake) CancelMerge(ctx context.Context, projectID int64, iid int) error {
	if f.Err != nil {
		return f.Err
	}
	f.record(Call{Op: "CancelMerge", ProjectID: projectID, IID: iid})
	return nil
}

func (f *Fake) GroupMembers(ctx context.Context, groupID int64) ([]forge.User, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Members[groupID], nil
}
