package httpx

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/helmdesk/helmdesk/internal/shared"
)

type bindTarget struct {
	Name  string `json:"name" validate:"required,max=8"`
	Email string `json:"email" validate:"omitempty,email"`
}

func bindBody(body string) (bindTarget, error) {
	var target bindTarget
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	err := Bind(req, &target)
	return target, err
}

func TestBind(t *testing.T) {
	got, err := bindBody(`{"name":"ok"}`)
	require.NoError(t, err)
	assert.Equal(t, "ok", got.Name)

	_, err = bindBody(`{"name":""}`)
	assert.Equal(t, shared.KindValidation, shared.KindOf(err))
	assert.Equal(t, "name is required", shared.UserSafeMessage(err))

	_, err = bindBody(`{"name":"much-too-long"}`)
	assert.Equal(t, "name is too long", shared.UserSafeMessage(err))

	_, err = bindBody(`{"name":"ok","email":"nope"}`)
	assert.Equal(t, "email is not a valid email", shared.UserSafeMessage(err))

	_, err = bindBody(`{`)
	assert.Equal(t, "invalid request body", shared.UserSafeMessage(err))
}
