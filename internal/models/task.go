package models

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/gofrs/uuid"
)

type Task struct {
	ID          uuid.UUID  `json:"id"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      Status     `json:"status"`
	Priority    Priority   `json:"priority"`
	DueDate     *time.Time `json:"dueDate"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	Tags        []string   `json:"tags"`
}

// CreateTaskRequest is the client-supplied part of a new task. The id and
// timestamps are assigned when the task is stored.
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"notblank"`
	Description string     `json:"description" validate:"notblank"`
	Status      Status     `json:"status" validate:"required"`
	Priority    Priority   `json:"priority" validate:"required"`
	DueDate     *time.Time `json:"dueDate"`
	Tags        []string   `json:"tags" validate:"omitempty,dive,notblank"`

	// enum values from the JSON body that named no variant, by field
	enumErrs map[string]string
}

// UnmarshalJSON decodes status and priority leniently so that an unknown
// enum value is reported by Validate together with every other field.
func (r *CreateTaskRequest) UnmarshalJSON(data []byte) error {
	type plain CreateTaskRequest
	aux := struct {
		*plain
		Status   *string `json:"status"`
		Priority *string `json:"priority"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.enumErrs = nil
	if aux.Status != nil {
		status, err := ParseStatus(*aux.Status)
		r.enumErrs = recordEnumErr(r.enumErrs, err)
		r.Status = status
	}
	if aux.Priority != nil {
		priority, err := ParsePriority(*aux.Priority)
		r.enumErrs = recordEnumErr(r.enumErrs, err)
		r.Priority = priority
	}
	return nil
}

// UpdateTaskRequest carries a partial update of the task's own columns. Nil
// fields are left untouched. Tags are changed only through AddTag and
// RemoveTag; a tags key in the body is ignored.
type UpdateTaskRequest struct {
	Title       *string    `json:"title" validate:"omitnil,notblank"`
	Description *string    `json:"description" validate:"omitnil,notblank"`
	Status      *Status    `json:"status" validate:"omitnil,required"`
	Priority    *Priority  `json:"priority" validate:"omitnil,required"`
	DueDate     *time.Time `json:"dueDate"`

	enumErrs map[string]string
}

func (r *UpdateTaskRequest) UnmarshalJSON(data []byte) error {
	type plain UpdateTaskRequest
	aux := struct {
		*plain
		Status   *string `json:"status"`
		Priority *string `json:"priority"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	r.enumErrs = nil
	r.Status, r.Priority = nil, nil
	if aux.Status != nil {
		status, err := ParseStatus(*aux.Status)
		r.enumErrs = recordEnumErr(r.enumErrs, err)
		if err == nil {
			r.Status = &status
		}
	}
	if aux.Priority != nil {
		priority, err := ParsePriority(*aux.Priority)
		r.enumErrs = recordEnumErr(r.enumErrs, err)
		if err == nil {
			r.Priority = &priority
		}
	}
	return nil
}

func recordEnumErr(errs map[string]string, err error) map[string]string {
	var enumErr *ParseEnumError
	if !errors.As(err, &enumErr) {
		return errs
	}
	if errs == nil {
		errs = make(map[string]string)
	}
	errs[enumErr.Field] = enumErr.Error()
	return errs
}

// ListQuery holds the optional filter and sort criteria for listing tasks.
// Enum filters are typed so that they always match the stored text.
type ListQuery struct {
	Status        *Status
	Priority      *Priority
	Title         *string
	Tag           *string
	DueBefore     *time.Time
	DueAfter      *time.Time
	CreatedBefore *time.Time
	CreatedAfter  *time.Time
	SortBy        string
	SortOrder     string
}

type TagRequest struct {
	Tag string `json:"tag" validate:"notblank"`
}
