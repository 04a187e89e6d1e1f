package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorIncludesInternal(t *testing.T) {
	err := Wrap(stdErrors.New("boom"), "failed")
	require.EqualError(t, err, "failed: boom")
	require.Equal(t, http.StatusInternalServerError, err.StatusCode)
}

func TestCopiesLeaveOriginalUntouched(t *testing.T) {
	base := New("TEST", "test", http.StatusBadRequest)
	with := base.WithInternal(stdErrors.New("oops"))
	require.NotSame(t, base, with)
	require.Nil(t, base.Internal)
	require.NotNil(t, with.Internal)

	custom := ErrBadRequest.WithMessage("bad id")
	require.Equal(t, "Invalid request", ErrBadRequest.Message)
	require.Equal(t, "bad id", custom.Message)
}

func TestIsMatchesByCode(t *testing.T) {
	custom := New(ErrNotFound.Code, "Route /x not found", http.StatusNotFound)
	require.ErrorIs(t, fmt.Errorf("wrap: %w", custom), ErrNotFound)
	require.NotErrorIs(t, custom, ErrUnauthorized)
	require.True(t, stdErrors.Is(NewBadRequest("nope"), ErrBadRequest))
}

func TestFromError(t *testing.T) {
	require.Nil(t, FromError(nil))
	require.Same(t, ErrNotFound, FromError(ErrNotFound))
	require.Equal(t, ErrNotFound.Code, FromError(fmt.Errorf("service: %w", ErrNotFound)).Code)

	out := FromError(stdErrors.New("raw"))
	require.Equal(t, ErrInternalServer.Code, out.Code)
	require.EqualError(t, out.Internal, "raw")
}

func TestFieldErrors(t *testing.T) {
	fields := FieldErrors{}
	require.NoError(t, fields.Err())

	fields.Add("name", "name is required")
	fields.Add("name", "name must be unique")
	fields.Add("status", "status does not exist")

	err := fields.Err()
	require.True(t, IsValidation(err))
	require.False(t, IsValidation(ErrNotFound))

	appErr := FromError(err)
	require.Equal(t, http.StatusUnprocessableEntity, appErr.StatusCode)
	require.Len(t, appErr.Fields["name"], 2)
	require.EqualError(t, appErr, "The given data was invalid: name: name is required, name must be unique; status: status does not exist")

	fields.Add("name", "mutated")
	require.Len(t, appErr.Fields["name"], 2)
}

func TestNewStorageHidesInternal(t *testing.T) {
	err := NewStorage(stdErrors.New("open /var/uploads/x.png: permission denied"))
	require.Equal(t, ErrStorage.Message, err.Message)
	require.NotNil(t, err.Internal)
}
