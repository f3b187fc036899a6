package sending

import (
	"context"
	"errors"
	"net"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ignite/mail-dispatcher/internal/domain"
)

func TestSMTPAuthenticateUnreachable(t *testing.T) {
	// Grab a free port and release it so nothing is listening there.
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := NewSMTPChannel()
	err = ch.Authenticate(ctx, domain.Credentials{Server: "127.0.0.1", Port: port, Username: "u", Secret: "p"})

	var authErr *domain.ChannelAuthenticationError
	require.True(t, errors.As(err, &authErr), "got %v", err)
	assert.Equal(t, domain.ChannelSMTP, authErr.Channel)
	assert.Equal(t, net.JoinHostPort("127.0.0.1", strconv.Itoa(port)), authErr.Server)
}

func TestSMTPAuthenticateEmptyServer(t *testing.T) {
	err := NewSMTPChannel().Authenticate(context.Background(), domain.Credentials{})
	var authErr *domain.ChannelAuthenticationError
	assert.True(t, errors.As(err, &authErr))
}

func TestSMTPSendBeforeAuthenticate(t *testing.T) {
	ch := NewSMTPChannel()
	_, err := ch.Send(context.Background(), &domain.OutboundMessage{From: "s@y.com", To: "a@x.com"})
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.NoError(t, ch.Close())
}

func TestBuildMsg(t *testing.T) {
	m, err := buildMsg(&domain.OutboundMessage{From: "s@y.com", To: "a@x.com", Subject: "Hi", Body: "Hello"})
	require.NoError(t, err)
	require.Len(t, m.GetToString(), 1)
	assert.Contains(t, m.GetToString()[0], "a@x.com")
	assert.NotEmpty(t, m.GetMessageID())

	_, err = buildMsg(&domain.OutboundMessage{From: "not an address", To: "a@x.com"})
	assert.Error(t, err)

	_, err = buildMsg(&domain.OutboundMessage{From: "s@y.com", To: ""})
	assert.Error(t, err)
}
