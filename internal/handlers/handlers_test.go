package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/avelarde/chatline/internal/chat"
	"github.com/avelarde/chatline/internal/wire"
)

func TestUsersEndpoint(t *testing.T) {
	hub := chat.NewHub()
	app := fiber.New()
	Register(app, hub, "")

	res, err := app.Test(httptest.NewRequest(http.MethodGet, "/users", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)

	var users []wire.Profile
	require.NoError(t, json.NewDecoder(res.Body).Decode(&users))
	require.Empty(t, users)

	hub.Announce("abc", "alice")
	hub.Announce("def", "bob")

	res, err = app.Test(httptest.NewRequest(http.MethodGet, "/users", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.NoError(t, json.NewDecoder(res.Body).Decode(&users))
	require.Equal(t, []wire.Profile{
		{ID: "abc", Name: "alice"},
		{ID: "def", Name: "bob"},
	}, users)
}
