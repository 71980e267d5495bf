package store

import (
	"bytes"
	"encoding/json"
	"fmt"

	"persondiscovery/internal/services"
)

// DataType tags what a layer's annotations and description mean.
type DataType string

const (
	DataSubmissionShot      DataType = "mediaeval.persondiscovery.shot"
	DataLabel               DataType = "mediaeval.persondiscovery.label"
	DataEvidence            DataType = "mediaeval.persondiscovery.evidence"
	DataEvidenceGroundTruth DataType = "mediaeval.persondiscovery.evidence.all"
	DataMugshot             DataType = "mediaeval.persondiscovery.mugshot"
	DataConsensus           DataType = "mediaeval.persondiscovery.label.consensus"
	DataUnknown             DataType = "mediaeval.persondiscovery.label.unknown"
	DataLabelAll            DataType = "mediaeval.persondiscovery.label.all"
	DataLeaderboard         DataType = "mediaeval.persondiscovery.leaderboard"
)

// Fragment types recorded on layers.
const (
	FragmentShot   = "mediaeval.persondiscovery.shot"
	FragmentShotID = "mediaeval.persondiscovery._id_shot"
	FragmentPerson = "mediaeval.persondiscovery._person_name"
	FragmentNone   = ""
)

// Description is the typed workflow metadata attached to a layer. Each data
// type has exactly one description variant.
type Description interface {
	DataType() DataType
}

// SubmissionStatus is the lifecycle of an original label submission.
type SubmissionStatus string

const (
	StatusWorkInProgress SubmissionStatus = "workInProgress"
	StatusComplete       SubmissionStatus = "complete"
	StatusDeleted        SubmissionStatus = "deleted"
)

// ShotDescription describes the submission-shot reference layer.
type ShotDescription struct {
	Source string `json:"source,omitempty"`
}

func (ShotDescription) DataType() DataType { return DataSubmissionShot }

// LabelDescription is carried by team label layers and their copies.
type LabelDescription struct {
	TeamID     string                `json:"id_team,omitempty"`
	Status     SubmissionStatus      `json:"status,omitempty"`
	EvidenceID string                `json:"id_evidence,omitempty"`
	Mapping    map[string]Resolution `json:"mapping,omitempty"`
	Copy       string                `json:"copy,omitempty"`
	Deleted    *SubmissionItem       `json:"deleted,omitempty"`
}

func (LabelDescription) DataType() DataType { return DataLabel }

// IsCopy reports whether the layer is a derived copy.
func (d LabelDescription) IsCopy() bool { return d.Copy != "" }

// IsOriginalComplete reports whether the layer is an original submission
// eligible for scoring.
func (d LabelDescription) IsOriginalComplete() bool {
	return d.Copy == "" && d.Status == StatusComplete
}

// EvidenceDescription is carried by team evidence layers and their copies.
type EvidenceDescription struct {
	TeamID              string           `json:"id_team,omitempty"`
	Status              SubmissionStatus `json:"status,omitempty"`
	LabelID             string           `json:"id_label,omitempty"`
	Copy                string           `json:"copy,omitempty"`
	Deleted             *SubmissionItem  `json:"deleted,omitempty"`
	AnnotationsComplete bool             `json:"annotationsComplete,omitempty"`
}

func (EvidenceDescription) DataType() DataType { return DataEvidence }

// MugshotDescription tracks how many crops each mugshot was built from.
type MugshotDescription struct {
	Mugshots map[string]int `json:"mugshots,omitempty"`
}

func (MugshotDescription) DataType() DataType { return DataMugshot }

// RankingEntry is one row of a published leaderboard. Masked entries carry "?".
type RankingEntry struct {
	Team string `json:"team"`
	Run  string `json:"run"`
	MAP  string `json:"map"`
}

// Ranking holds both leaderboard views.
type Ranking struct {
	Primary  []RankingEntry `json:"primary"`
	Combined []RankingEntry `json:"combined"`
}

// LeaderboardDescription is the per-team published leaderboard.
type LeaderboardDescription struct {
	Date    string  `json:"date,omitempty"`
	Ranking Ranking `json:"ranking"`
	Queries int     `json:"queries"`
	Shots   int     `json:"shots"`
}

func (LeaderboardDescription) DataType() DataType { return DataLeaderboard }

// GroundTruthDescription is the (empty) description of the shared
// ground-truth layers: evidence, consensus, unknown, and per-annotator verdicts.
type GroundTruthDescription struct {
	Kind DataType `json:"-"`
}

func (d GroundTruthDescription) DataType() DataType { return d.Kind }

// RawDescription holds the description of a layer with an unrecognized data type.
type RawDescription struct {
	Kind DataType
	Raw  json.RawMessage
}

func (d RawDescription) DataType() DataType { return d.Kind }

func (d RawDescription) MarshalJSON() ([]byte, error) {
	if len(d.Raw) == 0 {
		return []byte("{}"), nil
	}
	return d.Raw, nil
}

// EmptyDescription returns the zero description for a data type.
func EmptyDescription(dataType DataType) Description {
	switch dataType {
	case DataSubmissionShot:
		return ShotDescription{}
	case DataLabel:
		return LabelDescription{}
	case DataEvidence:
		return EvidenceDescription{}
	case DataMugshot:
		return MugshotDescription{}
	case DataLeaderboard:
		return LeaderboardDescription{}
	case DataEvidenceGroundTruth, DataConsensus, DataUnknown, DataLabelAll:
		return GroundTruthDescription{Kind: dataType}
	default:
		return RawDescription{Kind: dataType}
	}
}

// DecodeDescription parses a stored description for the given data type.
// Absent fields decode to zero values; fields of the wrong JSON type are
// rejected with services.ErrValidation.
func DecodeDescription(dataType DataType, raw []byte) (Description, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return EmptyDescription(dataType), nil
	}
	var (
		desc Description
		err  error
	)
	switch dataType {
	case DataSubmissionShot:
		var d ShotDescription
		err = json.Unmarshal(raw, &d)
		desc = d
	case DataLabel:
		var d LabelDescription
		err = json.Unmarshal(raw, &d)
		for name, resolution := range d.Mapping {
			if !resolution.Checked() {
				delete(d.Mapping, name)
			}
		}
		desc = d
	case DataEvidence:
		var d EvidenceDescription
		err = json.Unmarshal(raw, &d)
		desc = d
	case DataMugshot:
		var d MugshotDescription
		err = json.Unmarshal(raw, &d)
		desc = d
	case DataLeaderboard:
		var d LeaderboardDescription
		err = json.Unmarshal(raw, &d)
		desc = d
	case DataEvidenceGroundTruth, DataConsensus, DataUnknown, DataLabelAll:
		if !json.Valid(raw) {
			err = fmt.Errorf("invalid json")
		}
		desc = GroundTruthDescription{Kind: dataType}
	default:
		if !json.Valid(raw) {
			err = fmt.Errorf("invalid json")
		}
		desc = RawDescription{Kind: dataType, Raw: append(json.RawMessage(nil), raw...)}
	}
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "decode description", string(dataType), err)
	}
	return desc, nil
}

// EncodeDescription serializes a description for storage.
func EncodeDescription(desc Description) ([]byte, error) {
	if desc == nil {
		return []byte("{}"), nil
	}
	payload, err := json.Marshal(desc)
	if err != nil {
		return nil, services.Wrap(services.ErrValidation, "store", "encode description", string(desc.DataType()), err)
	}
	return payload, nil
}
