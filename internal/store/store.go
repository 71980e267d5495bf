package store

import (
	"context"
	"encoding/json"
)

// Permission is the access level a principal holds on a layer.
type Permission int

const (
	PermissionNone  Permission = 0
	PermissionRead  Permission = 1
	PermissionWrite Permission = 2
	PermissionAdmin Permission = 3
)

func (p Permission) String() string {
	switch p {
	case PermissionRead:
		return "READ"
	case PermissionWrite:
		return "WRITE"
	case PermissionAdmin:
		return "ADMIN"
	default:
		return "NONE"
	}
}

// PrincipalKind distinguishes users from groups.
type PrincipalKind string

const (
	PrincipalUser  PrincipalKind = "user"
	PrincipalGroup PrincipalKind = "group"
)

// Principal is a user or group permissions are granted to.
type Principal struct {
	ID   string
	Name string
	Kind PrincipalKind
}

// Corpus groups media and layers.
type Corpus struct {
	ID   string
	Name string
}

// Medium is a video.
type Medium struct {
	ID       string
	CorpusID string
	Name     string
	URL      string
}

// Layer is a named set of annotations with typed workflow metadata.
type Layer struct {
	ID           string
	CorpusID     string
	Name         string
	FragmentType string
	DataType     DataType
	Description  Description
}

// Label returns the label description, or the zero value when the layer
// holds something else.
func (l Layer) Label() LabelDescription {
	d, _ := l.Description.(LabelDescription)
	return d
}

// Evidence returns the evidence description.
func (l Layer) Evidence() EvidenceDescription {
	d, _ := l.Description.(EvidenceDescription)
	return d
}

// Mugshot returns the mugshot description.
func (l Layer) Mugshot() MugshotDescription {
	d, _ := l.Description.(MugshotDescription)
	return d
}

// Annotation attaches data to a fragment of a medium.
type Annotation struct {
	ID       string
	LayerID  string
	MediumID string
	Fragment Fragment
	Data     json.RawMessage
}

// AnnotationFilter narrows an annotation listing. LayerID is required; empty
// fields are ignored.
type AnnotationFilter struct {
	LayerID  string
	MediumID string
	Fragment string
	// NoMedium selects only annotations attached to no medium. It is
	// ignored when MediumID is set.
	NoMedium bool
}

// Queue is a named work queue.
type Queue struct {
	ID   string
	Name string
}

// CorpusStore manages corpora.
type CorpusStore interface {
	CreateCorpus(ctx context.Context, name string) (Corpus, error)
	Corpora(ctx context.Context) ([]Corpus, error)
}

// MediaStore manages media.
type MediaStore interface {
	CreateMedium(ctx context.Context, corpusID, name, url string) (Medium, error)
	Media(ctx context.Context, corpusID string) ([]Medium, error)
	Medium(ctx context.Context, id string) (Lookup[Medium], error)
}

// LayerStore manages layers and their descriptions.
type LayerStore interface {
	CreateLayer(ctx context.Context, layer Layer) (Layer, error)
	Layer(ctx context.Context, id string) (Lookup[Layer], error)
	// Layers lists live layers of a corpus, optionally restricted to a data type.
	Layers(ctx context.Context, corpusID string, dataType DataType) ([]Layer, error)
	UpdateLayerDescription(ctx context.Context, id string, desc Description) error
	DeleteLayer(ctx context.Context, id string) error
}

// AnnotationStore manages annotations.
type AnnotationStore interface {
	// CreateAnnotations stores copies of the given annotations under layerID
	// with fresh identities, ignoring any ID or LayerID they carry.
	CreateAnnotations(ctx context.Context, layerID string, annotations []Annotation) ([]Annotation, error)
	Annotations(ctx context.Context, filter AnnotationFilter) ([]Annotation, error)
	DeleteAnnotation(ctx context.Context, id string) error
}

// QueueStore manages work queues held by the store.
type QueueStore interface {
	CreateQueue(ctx context.Context, name string) (Queue, error)
	Queues(ctx context.Context) ([]Queue, error)
	QueueLength(ctx context.Context, queueID string) (int, error)
	QueueItems(ctx context.Context, queueID string) ([]json.RawMessage, error)
	Enqueue(ctx context.Context, queueID string, items ...json.RawMessage) error
	// Dequeue pops the oldest item or returns services.ErrQueueEmpty.
	Dequeue(ctx context.Context, queueID string) (json.RawMessage, error)
}

// PrincipalStore manages users, groups, and layer permissions.
type PrincipalStore interface {
	CreatePrincipal(ctx context.Context, name string, kind PrincipalKind) (Principal, error)
	Principals(ctx context.Context, kind PrincipalKind) ([]Principal, error)
	SetLayerPermission(ctx context.Context, layerID string, principal Principal, permission Permission) error
	LayerPermissions(ctx context.Context, layerID string) (map[string]Permission, error)
}

// Store is the complete annotation store.
type Store interface {
	CorpusStore
	MediaStore
	LayerStore
	AnnotationStore
	QueueStore
	PrincipalStore
	Close() error
}
