package postman_test

import (
	"context"
	"testing"

	"github.com/postman-push/go-postman-api"
	"github.com/postman-push/go-postman-api/server"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	s := server.New()
	defer s.Close()

	topicID, err := s.CreateProducer("user", []byte("pass"))
	require.NoError(t, err)

	m := postman.New(
		postman.WithHostURL(s.GetHostURL()),
		postman.WithTransport(postman.InsecureTransport()),
	)
	defer m.Close()

	// Before login there is no session.
	require.False(t, m.NewClient().CheckSession(context.Background()))

	c, err := m.NewClientWithLogin(context.Background(), "user", []byte("pass"))
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.CheckSession(context.Background()))

	id, err := c.GetCurrentID(context.Background())
	require.NoError(t, err)
	require.Equal(t, topicID, id)

	// Logging out drops the session.
	require.NoError(t, c.Logout(context.Background()))
	require.False(t, c.CheckSession(context.Background()))
	require.Error(t, c.RefreshSession(context.Background()))
}

func TestAuth_BadPassword(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateProducer("user", []byte("pass"))
	require.NoError(t, err)

	m := postman.New(
		postman.WithHostURL(s.GetHostURL()),
		postman.WithTransport(postman.InsecureTransport()),
	)
	defer m.Close()

	_, err = m.NewClientWithLogin(context.Background(), "user", []byte("wrong"))

	apiErr := new(postman.APIError)
	require.ErrorAs(t, err, apiErr)
	require.Equal(t, 401, apiErr.Status)
}

func TestAuth_RegisterTwice(t *testing.T) {
	s := server.New()
	defer s.Close()

	m := postman.New(
		postman.WithHostURL(s.GetHostURL()),
		postman.WithTransport(postman.InsecureTransport()),
	)
	defer m.Close()

	_, err := m.NewClientWithRegister(context.Background(), "user", []byte("pass"))
	require.NoError(t, err)

	_, err = m.NewClientWithRegister(context.Background(), "user", []byte("pass"))

	apiErr := new(postman.APIError)
	require.ErrorAs(t, err, apiErr)
	require.Equal(t, postman.AlreadyExists, apiErr.Code)
}

func TestAuth_Refresh(t *testing.T) {
	s := server.New()
	defer s.Close()

	m, c, _ := newTestClient(t, s)
	defer m.Close()

	// Expiring sessions invalidates the access token only.
	s.ExpireSessions()

	require.False(t, c.CheckSession(context.Background()))
	require.NoError(t, c.RefreshSession(context.Background()))
	require.True(t, c.CheckSession(context.Background()))

	// Revoking sessions invalidates the refresh token too.
	s.RevokeSessions()

	require.False(t, c.CheckSession(context.Background()))
	require.Error(t, c.RefreshSession(context.Background()))
}
