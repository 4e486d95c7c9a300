package users

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// User is one entry of the Conecta2 directory. Values are never mutated once
// published; a refresh replaces the whole collection.
type User struct {
	ID        int64  `json:"id" validate:"gte=0"`
	Name      string `json:"name" validate:"required"`
	Age       int    `json:"age" validate:"gte=0"`
	Interests string `json:"interests"`
}

// State is an ordered snapshot of the directory in server response order.
type State []User

var validate = validator.New()

// Validate checks the data model rules.
func (u User) Validate() error {
	if err := validate.Struct(u); err != nil {
		return fmt.Errorf("%w: %v", ErrValidation, err)
	}
	return nil
}
