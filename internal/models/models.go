package models

import (
	"time"

	"github.com/gofrs/uuid"
)

type User struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	Password  string    `json:"-"`
	CreatedAt time.Time `json:"created_at"`
}

// Credentials is the login/register request body.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Resource is a metadata record. Optional columns are nil when NULL;
// dates are rendered as YYYY-MM-DD.
type Resource struct {
	ID              int64     `json:"id"`
	Name            string    `json:"name"`
	Author          *string   `json:"author"`
	Annotation      *string   `json:"annotation"`
	Kind            *string   `json:"kind"`
	Purpose         *string   `json:"purpose"`
	OpenDate        *string   `json:"open_date"`
	ExpiryDate      *string   `json:"expiry_date"`
	UsageConditions *string   `json:"usage_conditions"`
	URL             *string   `json:"url"`
	CreatedAt       time.Time `json:"created_at"`
}

// ResourceField names an updatable resource column.
type ResourceField string

const (
	FieldName            ResourceField = "name"
	FieldAuthor          ResourceField = "author"
	FieldAnnotation      ResourceField = "annotation"
	FieldKind            ResourceField = "kind"
	FieldPurpose         ResourceField = "purpose"
	FieldOpenDate        ResourceField = "open_date"
	FieldExpiryDate      ResourceField = "expiry_date"
	FieldUsageConditions ResourceField = "usage_conditions"
	FieldURL             ResourceField = "url"
)

// UpdatableFields is the closed set of fields a partial update may touch, in column order.
var UpdatableFields = []ResourceField{
	FieldName,
	FieldAuthor,
	FieldAnnotation,
	FieldKind,
	FieldPurpose,
	FieldOpenDate,
	FieldExpiryDate,
	FieldUsageConditions,
	FieldURL,
}

// ResourcePatch maps a field to its new value. A present key with a nil value sets NULL.
type ResourcePatch map[ResourceField]*string

// NewResource is the input of a create: everything but the server-generated columns.
type NewResource struct {
	Name            string
	Author          *string
	Annotation      *string
	Kind            *string
	Purpose         *string
	OpenDate        *string
	ExpiryDate      *string
	UsageConditions *string
	URL             *string
}

// Value returns the field value of r for f, for building inserts from a field list.
func (r NewResource) Value(f ResourceField) *string {
	switch f {
	case FieldName:
		return &r.Name
	case FieldAuthor:
		return r.Author
	case FieldAnnotation:
		return r.Annotation
	case FieldKind:
		return r.Kind
	case FieldPurpose:
		return r.Purpose
	case FieldOpenDate:
		return r.OpenDate
	case FieldExpiryDate:
		return r.ExpiryDate
	case FieldUsageConditions:
		return r.UsageConditions
	case FieldURL:
		return r.URL
	}

	return nil
}

// Action is a CRUD operation name reported to the metrics sink.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// UsageEvent is one successful CRUD call. ResourceID is zero for reads.
type UsageEvent struct {
	Action     Action    `json:"action"`
	User       string    `json:"user"`
	ResourceID int64     `json:"resource_id,omitempty"`
	At         time.Time `json:"at"`
}
