package history

import (
	"github.com/entireio/histedit/cmd/histedit/cli/validation"
)

// Overrides holds the metadata changes requested for the target commit.
// A nil field keeps the original value.
type Overrides struct {
	AuthorName      *string `json:"author_name,omitempty" validate:"omitnil,gitident"`
	AuthorEmail     *string `json:"author_email,omitempty" validate:"omitnil,gitident,email"`
	AuthorTime      *int64  `json:"author_date,omitempty" validate:"omitnil,gte=0"`
	AuthorOffset    *int    `json:"author_offset,omitempty" validate:"omitnil,gte=-720,lte=840"`
	CommitterName   *string `json:"committer_name,omitempty" validate:"omitnil,gitident"`
	CommitterEmail  *string `json:"committer_email,omitempty" validate:"omitnil,gitident,email"`
	CommitterTime   *int64  `json:"committer_date,omitempty" validate:"omitnil,gte=0"`
	CommitterOffset *int    `json:"committer_offset,omitempty" validate:"omitnil,gte=-720,lte=840"`
	Message         *string `json:"message,omitempty"`
}

// IsEmpty reports whether no field is set.
func (o Overrides) IsEmpty() bool {
	return o.AuthorName == nil && o.AuthorEmail == nil && o.AuthorTime == nil && o.AuthorOffset == nil &&
		o.CommitterName == nil && o.CommitterEmail == nil && o.CommitterTime == nil && o.CommitterOffset == nil &&
		o.Message == nil
}

// Validate checks every set field. The first failure is returned as an
// *InvalidSignatureError.
func (o Overrides) Validate() error {
	fields, err := validation.Struct(o)
	if err != nil {
		return err
	}
	if len(fields) == 0 {
		return nil
	}
	f := fields[0]
	return &InvalidSignatureError{Field: f.Field, Value: f.Value, Reason: f.Reason()}
}

// Apply returns the author, committer and message of c with the overrides applied.
func (o Overrides) Apply(c *Commit) (author, committer Signature, message string) {
	author = applySignature(c.Author, o.AuthorName, o.AuthorEmail, o.AuthorTime, o.AuthorOffset)
	committer = applySignature(c.Committer, o.CommitterName, o.CommitterEmail, o.CommitterTime, o.CommitterOffset)
	message = c.Message
	if o.Message != nil {
		message = *o.Message
	}
	return author, committer, message
}

func applySignature(orig Signature, name, email *string, when *int64, offset *int) Signature {
	sig := orig
	if name != nil {
		sig.Name = *name
	}
	if email != nil {
		sig.Email = *email
	}
	if when != nil {
		sig.When = *when
	}
	if offset != nil {
		sig.OffsetMinutes = *offset
	}
	return sig
}
