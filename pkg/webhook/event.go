package webhook

import "encoding/json"

// event is the envelope shared by all webhook payloads.
type event struct {
	ObjectKind       string          `json:"object_kind"`
	Project          eventProject    `json:"project"`
	ObjectAttributes json.RawMessage `json:"object_attributes"`

	// Issue and MergeRequest carry the noteable of a note event.
	Issue        *eventResource `json:"issue"`
	MergeRequest *eventResource `json:"merge_request"`
}

type eventProject struct {
	ID                int64  `json:"id"`
	PathWithNamespace string `json:"path_with_namespace"`
}

type eventResource struct {
	IID int `json:"iid"`
}

// noteAttributes is the object_attributes block of a note event.
type noteAttributes struct {
	Note         string `json:"note"`
	NoteableType string `json:"noteable_type"`
}

// resourceAttributes is the object_attributes block of an issue or
// merge request event.
type resourceAttributes struct {
	IID int `json:"iid"`
}
