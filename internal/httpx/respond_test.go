package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-marketplace/internal/market"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{market.Invalid("bad"), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", market.ErrUnauthenticated), http.StatusUnauthorized},
		{market.ErrForbidden, http.StatusForbidden},
		{market.ErrNotFound, http.StatusNotFound},
		{market.ErrConflict, http.StatusConflict},
		{errors.New("conn reset"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, errorStatus(c.err), c.err.Error())
	}
}

func TestFailHidesStoreErrors(t *testing.T) {
	log, hook := test.NewNullLogger()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)

	fail(rec, req, log, errors.New("dial tcp 10.0.0.5:5432: refused"), "failed to load cart")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "failed to load cart", body["error"])
	require.Len(t, hook.Entries, 1)
	assert.Contains(t, hook.LastEntry().Data["error"].(error).Error(), "refused")
}

func TestFailUsesDomainMessage(t *testing.T) {
	log, _ := test.NewNullLogger()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/reviews", nil)

	fail(rec, req, log, market.Invalid("rating must be between 1 and 5"), "failed to create review")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.JSONEq(t, `{"error":"rating must be between 1 and 5"}`, rec.Body.String())
}
