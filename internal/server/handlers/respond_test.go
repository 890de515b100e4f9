package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/mamadbah2/meditrack/internal/domain/models"
)

func TestClassify(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{models.Required("reason"), http.StatusBadRequest, "reason is required"},
		{fmt.Errorf("prescription already billed: %w", models.ErrDuplicate), http.StatusBadRequest, "prescription already billed"},
		{fmt.Errorf("request not found: %w", models.ErrNotFound), http.StatusNotFound, "request not found"},
		{fmt.Errorf("no usage data for kaolack: %w", models.ErrAreaNotFound), http.StatusNotFound, "no usage data for kaolack"},
		{fmt.Errorf("request already taken: %w", models.ErrConflict), http.StatusConflict, "request already taken"},
		{fmt.Errorf("invalid credentials: %w", models.ErrUnauthorized), http.StatusUnauthorized, "invalid credentials"},
		{fmt.Errorf("cases of another vet: %w", models.ErrForbidden), http.StatusForbidden, "cases of another vet"},
		{errors.New("connection reset"), http.StatusInternalServerError, serverErrorMessage},
	}

	for _, tc := range cases {
		status, message := classify(tc.err)
		assert.Equal(t, tc.status, status, tc.err.Error())
		assert.Equal(t, tc.message, message)
	}
}
