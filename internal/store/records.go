package store

import (
	"encoding/json"

	"persondiscovery/internal/services"
)

// PersonStatus is one annotator's verdict about one person in one shot.
type PersonStatus string

const (
	SpeakingFace PersonStatus = "speakingFace"
	NoFace       PersonStatus = "noFace"
	DontKnow     PersonStatus = "dontKnow"
)

// Valid reports whether s is a known status.
func (s PersonStatus) Valid() bool {
	switch s {
	case SpeakingFace, NoFace, DontKnow:
		return true
	}
	return false
}

// BoundingBox is relative to frame width and height.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// SubmissionItem is pushed by the submission front-end. A withdrawal carries
// DeletedBy and references the withdrawn original layers.
type SubmissionItem struct {
	EvidenceID string `json:"id_evidence"`
	LabelID    string `json:"id_label"`
	Team       string `json:"team,omitempty"`
	User       string `json:"user,omitempty"`
	Name       string `json:"name,omitempty"`
	DeletedBy  string `json:"deletedBy,omitempty"`
}

// IsWithdrawal reports whether the item tombstones an earlier submission.
func (i SubmissionItem) IsWithdrawal() bool { return i.DeletedBy != "" }

// SubmissionPair announces a freshly duplicated evidence/label copy pair.
type SubmissionPair struct {
	Evidence string `json:"evidence"`
	Label    string `json:"label"`
}

// EvidenceTask asks a human to check one hypothesized identity claim.
type EvidenceTask struct {
	SubmissionID string  `json:"id_submission,omitempty"`
	PersonName   string  `json:"person_name"`
	Source       string  `json:"source"`
	MediumID     string  `json:"id_medium"`
	ShotID       string  `json:"id_shot"`
	Start        float64 `json:"start"`
	End          float64 `json:"end"`
}

// EvidenceVerdict is the human answer to an EvidenceTask.
type EvidenceVerdict struct {
	IsEvidence  bool         `json:"is_evidence"`
	PersonName  string       `json:"person_name,omitempty"`
	Time        float64      `json:"time,omitempty"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
}

// ItemLog records who answered a task.
type ItemLog struct {
	User string `json:"user"`
}

// EvidenceResult is an item of the evidence output queue.
type EvidenceResult struct {
	Input  EvidenceTask    `json:"input"`
	Output EvidenceVerdict `json:"output"`
	Log    ItemLog         `json:"log"`
}

// LabelTask asks a human to label who speaks and is visible in a shot.
type LabelTask struct {
	ShotID      string   `json:"id_shot"`
	MediumID    string   `json:"id_medium"`
	Start       float64  `json:"start"`
	End         float64  `json:"end"`
	Hypothesis  []string `json:"hypothesis"`
	Others      []string `json:"others"`
	AnnotatedBy []string `json:"annotated_by"`
}

// LabelVerdict is the human answer to a LabelTask.
type LabelVerdict struct {
	Known   map[string]PersonStatus `json:"known"`
	Unknown bool                    `json:"unknown"`
}

// LabelResult is an item of the label output queue.
type LabelResult struct {
	Input  LabelTask    `json:"input"`
	Output LabelVerdict `json:"output"`
	Log    ItemLog      `json:"log"`
}

// LabelHypothesis is the data of a label layer annotation.
type LabelHypothesis struct {
	PersonName string  `json:"person_name"`
	Confidence float64 `json:"confidence"`
}

// EvidenceHypothesis is the data of an evidence layer annotation.
type EvidenceHypothesis struct {
	PersonName string `json:"person_name"`
	Source     string `json:"source"`
}

// MugshotRef locates a face in a frame.
type MugshotRef struct {
	Time        float64     `json:"time"`
	BoundingBox BoundingBox `json:"bounding_box"`
}

// EvidenceRecord is the data of an evidence ground-truth annotation.
type EvidenceRecord struct {
	PersonName          string      `json:"person_name"`
	Source              string      `json:"source"`
	IsEvidence          bool        `json:"is_evidence"`
	CorrectedPersonName string      `json:"corrected_person_name,omitempty"`
	Mugshot             *MugshotRef `json:"mugshot,omitempty"`
}

// Resolution converts the record into a mapping value.
func (r EvidenceRecord) Resolution() Resolution {
	if r.IsEvidence {
		return Corrected(r.CorrectedPersonName)
	}
	return Rejected()
}

// VerdictRecord is the data of a per-annotator label ground-truth annotation.
// Hypothesis lists the names offered with the task the annotator answered.
type VerdictRecord struct {
	Known      map[string]PersonStatus `json:"known"`
	Unknown    bool                    `json:"unknown"`
	Annotator  string                  `json:"annotator"`
	Hypothesis []string                `json:"hypothesis"`
}

// UnknownRecord is the data of an unknown-speaker annotation.
type UnknownRecord struct {
	Hypothesis []string `json:"hypothesis"`
}

// MugshotRecord is the data of a mugshot annotation.
type MugshotRecord struct {
	PNG      string `json:"png"`
	Strip    string `json:"PNG"`
	Number   int    `json:"number"`
	MediumID string `json:"id_medium,omitempty"`
}

// DecodeData unmarshals annotation or queue item payloads, tagging failures
// as validation errors.
func DecodeData[T any](raw json.RawMessage) (T, error) {
	var value T
	if len(raw) == 0 {
		return value, nil
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return value, services.Wrap(services.ErrValidation, "store", "decode data", "", err)
	}
	return value, nil
}

// EncodeData marshals a payload for an annotation or queue item.
func EncodeData(value any) (json.RawMessage, error) {
	payload, err := json.Marshal(value)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "encode data", "", err)
	}
	return payload, nil
}
