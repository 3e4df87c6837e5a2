package inventory

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// Payload is a submission as sent by a probe. Pointer fields distinguish
// "not supplied" (nil) from a supplied zero value; a JSON null decodes to nil
// and therefore leaves the stored value untouched.
type Payload struct {
	Serial     string         `json:"serial" validate:"required"`
	Host       *string        `json:"host,omitempty"`
	CPU        *string        `json:"cpu,omitempty"`
	Mainboard  *string        `json:"mainboard,omitempty"`
	Resolution *string        `json:"resolution,omitempty"`
	Notes      *string        `json:"notes,omitempty"`
	RAM        *RAMPayload    `json:"ram,omitempty"`
	GPUs       *[]string      `json:"gpus,omitempty"`
	Disks      *[]DiskPayload `json:"disks,omitempty"`
}

// RAMPayload updates the RAM totals. Sticks are replaced only when present.
type RAMPayload struct {
	TotalSizeGB *int64          `json:"total_size_gb,omitempty"`
	Slots       *string         `json:"slots,omitempty"`
	Sticks      *[]StickPayload `json:"sticks,omitempty"`
}

type StickPayload struct {
	SizeGB int64  `json:"size_gb"`
	Type   string `json:"type"`
	Model  string `json:"model"`
}

// DiskPayload carries the size as "<number>G" the way the probe reports it.
type DiskPayload struct {
	Size   string `json:"size"`
	Model  string `json:"model"`
	Serial string `json:"serial"`
	Path   string `json:"path"`
}

// NotesUpdate is the body of a notes-only update.
type NotesUpdate struct {
	PCID  string `json:"pc_id" validate:"required"`
	Notes string `json:"notes"`
}

// NewTag is the body of a tag creation.
type NewTag struct {
	Name  string `json:"name" validate:"required,max=64"`
	Color string `json:"color" validate:"max=32"`
}

// Normalize trims the name and fills in the default color.
func (t *NewTag) Normalize() {
	t.Name = strings.TrimSpace(t.Name)
	if t.Color == "" {
		t.Color = DefaultTagColor
	}
}

// TagAssignment is the body of a pc-tag association.
type TagAssignment struct {
	TagID int64 `json:"tag_id" validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" {
			return f.Name
		}
		return tag
	})
	return v
}

// Validate checks a request body against its struct tags and returns a
// single message naming the first offending field, e.g. "serial is required".
func Validate(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		fe := verrs[0]
		return fmt.Errorf("%s %s", fe.Field(), validationMessage(fe))
	}
	return err
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	}
	return "is invalid"
}
