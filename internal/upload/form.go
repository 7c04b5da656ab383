package upload

import "context"

// Policy decides when a form's images are complete.
type Policy int

const (
	// AtLeastOne is satisfied by any uploaded field.
	AtLeastOne Policy = iota
	// All needs every field uploaded.
	All
)

func (p Policy) String() string {
	if p == All {
		return "all"
	}
	return "at-least-one"
}

// Form is a fixed set of independent image fields.
type Form struct {
	policy Policy
	fields []*Field
}

// NewForm returns a form of n empty fields.
func NewForm(up Uploader, n int, policy Policy, opts ...Option) *Form {
	if n < 1 {
		n = 1
	}
	f := &Form{policy: policy, fields: make([]*Field, n)}
	for i := range f.fields {
		f.fields[i] = NewField(up, opts...)
	}
	return f
}

// NewAdoptionForm returns the three-slot form of adoption posts.
func NewAdoptionForm(up Uploader, opts ...Option) *Form { return NewForm(up, 3, AtLeastOne, opts...) }

// NewMissingForm returns the single-slot form of missing-pet reports.
func NewMissingForm(up Uploader, opts ...Option) *Form { return NewForm(up, 1, All, opts...) }

// Len returns the number of fields.
func (f *Form) Len() int { return len(f.fields) }

// Field returns field i.
func (f *Form) Field(i int) *Field { return f.fields[i] }

// Policy returns the completeness policy.
func (f *Form) Policy() Policy { return f.policy }

// Ready reports whether the uploaded fields satisfy the policy.
func (f *Form) Ready() bool {
	n := 0
	for _, fl := range f.fields {
		if fl.Remote() != "" {
			n++
		}
	}
	if f.policy == All {
		return n == len(f.fields)
	}
	return n > 0
}

// Images returns the remote reference of every field, "" for fields that
// are not uploaded.
func (f *Form) Images() []string {
	out := make([]string, len(f.fields))
	for i, fl := range f.fields {
		out[i] = fl.Remote()
	}
	return out
}

// Choose selects data into field i and uploads it in the background. The
// returned channel yields the outcome once: the selection error, the upload
// error, or nil.
func (f *Form) Choose(ctx context.Context, i int, name string, data []byte) <-chan error {
	out := make(chan error, 1)
	fl := f.fields[i]
	if err := fl.Select(name, data); err != nil {
		out <- err
		close(out)
		return out
	}
	go func() {
		defer close(out)
		_, err := fl.Upload(ctx)
		out <- err
	}()
	return out
}
