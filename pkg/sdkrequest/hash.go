package sdkrequest

import (
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/inngest/inngestsdk/pkg/enums"
)

var ErrEmptyStepName = errors.New("step names must not be empty")

// UnhashedOp is an op which has been declared by the function but not yet
// assigned an ID.
type UnhashedOp struct {
	Name string
	Op   enums.Opcode
	Opts map[string]any
	// Pos is the number of ops with the same name and opcode declared before
	// this one.
	Pos uint
}

// Hash returns the op's ID.  The ID derives from the name, opcode and
// position only, so changing a step's body never changes its ID.
func (u UnhashedOp) Hash() (string, error) {
	if u.Name == "" {
		return "", ErrEmptyStepName
	}
	input := fmt.Sprintf("%s:%s:%d", u.Name, u.Op.String(), u.Pos)
	sum := sha1.Sum([]byte(input))
	return hex.EncodeToString(sum[:]), nil
}

func (u UnhashedOp) MustHash() string {
	h, err := u.Hash()
	if err != nil {
		panic(fmt.Errorf("error hashing op: %w", err))
	}
	return h
}
