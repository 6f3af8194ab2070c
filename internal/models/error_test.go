package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBadRequestError(t *testing.T) {
	err := fmt.Errorf("assign role: %w", NewBadRequest("role does not exist"))

	assert.ErrorIs(t, err, ErrBadRequest)
	assert.Equal(t, "assign role: bad request: role does not exist", err.Error())

	var public *BadRequestError
	assert.True(t, errors.As(err, &public))
	assert.Equal(t, "role does not exist", public.Message)

	assert.False(t, errors.As(fmt.Errorf("%w: users_role_id_fkey", ErrBadRequest), &public))
}
