package email

import (
	"bufio"
	"context"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/smallbiznis/venuebook/internal/notification/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBuildMessageEncodesSubject(t *testing.T) {
	date := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	msg := string(BuildMessage("bookings@venue.example", "olena@example.com", "Бронювання BK-2025-0001", "рядок 1\nрядок 2", date))

	assert.Contains(t, msg, "From: bookings@venue.example\r\n")
	assert.Contains(t, msg, "To: olena@example.com\r\n")
	assert.Contains(t, msg, "Subject: =?utf-8?q?")
	assert.Contains(t, msg, "Date: Sun, 01 Jun 2025 10:00:00 +0000\r\n")
	assert.Contains(t, msg, "\r\n\r\nрядок 1\r\nрядок 2\r\n")
}

// fakeSMTP speaks just enough SMTP to accept one message.
func fakeSMTP(t *testing.T) (string, <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	got := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		r := bufio.NewReader(conn)
		write := func(s string) { _, _ = conn.Write([]byte(s + "\r\n")) }

		write("220 fake ESMTP")
		var data strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					got <- data.String()
					write("250 queued")
					continue
				}
				data.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				write("250 fake")
			case strings.HasPrefix(cmd, "DATA"):
				inData = true
				write("354 go ahead")
			case strings.HasPrefix(cmd, "QUIT"):
				write("221 bye")
				return
			default:
				write("250 ok")
			}
		}
	}()
	return ln.Addr().String(), got
}

func TestSendDeliversToServer(t *testing.T) {
	addr, got := fakeSMTP(t)
	host, port, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	tr := NewSMTP(Config{Host: host, Port: portNum, From: "VenueBook <bookings@venue.example>"}, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, tr.Send(ctx, "olena@example.com", domain.Payload{Subject: "Test", Text: "Привіт"}))

	select {
	case msg := <-got:
		assert.Contains(t, msg, "To: olena@example.com")
		assert.Contains(t, msg, "Привіт")
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestSendRejectsBadAddress(t *testing.T) {
	tr := NewSMTP(Config{Host: "localhost", Port: 25, From: "bookings@venue.example"}, zap.NewNop())
	err := tr.Send(context.Background(), "not an address", domain.Payload{Text: "x"})
	require.ErrorIs(t, err, ErrInvalidAddress)
}
