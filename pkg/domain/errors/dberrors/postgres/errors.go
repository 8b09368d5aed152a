package postgres

import (
	"fmt"

	"github.com/poselab/dispatchd/pkg/domain"
)

// requested data is missing.
type Missing struct {
	Table    string
	Identity string
}

var _ error = Missing{}

func (m Missing) Error() string {
	return fmt.Sprintf("%s is not found in %s", m.Identity, m.Table)
}
func (m Missing) Unwrap() error {
	return domain.ErrMissing
}

// requested data collides with an existing record.
type Conflict struct {
	Table    string
	Identity string
}

var _ error = Conflict{}

func (c Conflict) Error() string {
	return fmt.Sprintf("%s conflicts with an existing record in %s", c.Identity, c.Table)
}
func (c Conflict) Unwrap() error {
	return domain.ErrConflict
}
