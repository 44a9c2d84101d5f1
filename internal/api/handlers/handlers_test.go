package handlers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"github.com/johnmangawang-git/mci-delivery-tracker/internal/services"
)

func respond(err error) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	respondError(c, err)
	return w
}

func TestRespondErrorMapsValidation(t *testing.T) {
	w := respond(&services.ValidationError{Field: "drNumber", Reason: "is required"})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Contains(t, w.Body.String(), "drNumber")
}

func TestRespondErrorMapsNotFound(t *testing.T) {
	w := respond(&services.NotFoundError{Entity: "delivery", Key: "DR-9999"})
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Contains(t, w.Body.String(), "DR-9999")
}

func TestRespondErrorMapsPartialCompletion(t *testing.T) {
	w := respond(&services.PartialCompletionError{
		DRNumber:   "DR-1001",
		ProofSaved: true,
		Err:        errors.New("store unreachable"),
	})
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.Contains(t, w.Body.String(), `"proofSaved":true`)
}

func TestRespondErrorMapsWrappedErrors(t *testing.T) {
	wrapped := errors.Wrap(&services.NotFoundError{Entity: "delivery", Key: "DR-1"}, "set status")
	w := respond(wrapped)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestRespondErrorDefaultsToInternal(t *testing.T) {
	w := respond(errors.New("boom"))
	require.Equal(t, http.StatusInternalServerError, w.Code)
}
