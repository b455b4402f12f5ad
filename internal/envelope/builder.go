package envelope

import (
	"errors"

	"tkb/internal/cache"
	tkberrors "tkb/internal/errors"
)

// NewResponse creates an envelope around a data payload.
func NewResponse(data any) *Response {
	return &Response{
		SchemaVersion: CurrentSchemaVersion,
		Data:          data,
	}
}

// WithFreshness populates metadata from cache freshness state.
func (r *Response) WithFreshness(fr cache.Freshness) *Response {
	r.Meta = &Meta{
		Generation: fr.Generation,
		SnapshotID: fr.SnapshotID,
		AsOf:       fr.AsOf,
		AgeSeconds: fr.AgeSeconds,
		Stale:      fr.Stale,
		Degraded:   fr.Degraded,
	}
	return r
}

// WithTruncation records that a list payload was cut to shown of total
// entries. A no-op when nothing was cut.
func (r *Response) WithTruncation(shown, total int) *Response {
	if shown >= total {
		return r
	}
	if r.Meta == nil {
		r.Meta = &Meta{}
	}
	r.Meta.Truncation = &Truncation{
		IsTruncated: true,
		Shown:       shown,
		Total:       total,
	}
	return r
}

// AddWarning attaches a coded warning.
func (r *Response) AddWarning(code, msg string) *Response {
	r.Warnings = append(r.Warnings, Warning{Code: code, Message: msg})
	return r
}

// NewErrorResponse creates an envelope for a failed tool call. Structured
// errors keep their code in the message; anything else is reported as
// INTERNAL_ERROR.
func NewErrorResponse(err error) *Response {
	resp := &Response{SchemaVersion: CurrentSchemaVersion}
	if err == nil {
		return resp
	}
	var te *tkberrors.TkbError
	if !errors.As(err, &te) {
		te = tkberrors.NewInternalError(err)
	}
	msg := te.Error()
	resp.Error = &msg
	return resp
}
