// Package server implements the TCP surface of plughub. Each request
// frame is parsed, routed to the plugin that owns the command and the
// plugin response is sent back behind a two digit protocol code.
package server

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	anetserver "github.com/andrei-cloud/anet/server"
	"github.com/rs/zerolog/log"

	"github.com/andrei-cloud/plughub/internal/errorcodes"
	"github.com/andrei-cloud/plughub/internal/message"
	"github.com/andrei-cloud/plughub/internal/plugins"
)

// logAdapter implements anet.Logger using zerolog.
type logAdapter struct{}

func (l logAdapter) Print(v ...any) {
	log.Info().Msg(fmt.Sprint(v...))
}

func (l logAdapter) Printf(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Infof(format string, v ...any) {
	log.Info().Msgf(format, v...)
}

func (l logAdapter) Warnf(format string, v ...any) {
	log.Warn().Msgf(format, v...)
}

func (l logAdapter) Errorf(format string, v ...any) {
	log.Error().Msgf(format, v...)
}

// invokerBox wraps the invoker so the atomic holder always stores one
// concrete type.
type invokerBox struct {
	inv plugins.Invoker
}

// Server wraps the anet TCP server and the plugin dispatch logic.
type Server struct {
	address       string
	srv           *anetserver.Server
	invokerHolder atomic.Value // stores *invokerBox
	activeConns   int32
}

// NewServer configures and returns the plughub server instance.
func NewServer(address string, inv plugins.Invoker) (*Server, error) {
	cfg := &anetserver.ServerConfig{
		MaxConns:        100,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		IdleTimeout:     0 * time.Second, // disable idle connection closure.
		ShutdownTimeout: 5 * time.Second,
		Logger:          logAdapter{},
	}

	s := &Server{address: address}
	s.invokerHolder.Store(&invokerBox{inv: inv})
	handler := anetserver.HandlerFunc(s.handle)
	srv, err := anetserver.NewServer(address, handler, cfg)
	if err != nil {
		return nil, fmt.Errorf("server setup failed: %w", err)
	}
	s.srv = srv

	return s, nil
}

// Start begins listening for connections.
func (s *Server) Start() error {
	log.Info().Str("address", s.address).Msg("server started")
	return s.srv.Start()
}

// Stop gracefully shuts down the server.
func (s *Server) Stop() error {
	return s.srv.Stop()
}

// SetInvoker swaps in a new command invoker atomically. Requests in
// flight finish against the old one; its shutdown stays with the caller.
func (s *Server) SetInvoker(inv plugins.Invoker) {
	s.invokerHolder.Store(&invokerBox{inv: inv})
}

func (s *Server) invoker() plugins.Invoker {
	box, ok := s.invokerHolder.Load().(*invokerBox)
	if !ok {
		return nil
	}

	return box.inv
}

// formatData returns ascii string if all bytes are printable, else hex string.
func formatData(data []byte) string {
	for _, b := range data {
		if b < 32 || b > 126 {
			return hex.EncodeToString(data)
		}
	}
	return string(data)
}

// handle processes one request frame. Protocol failures are answered on
// the wire with an error code instead of dropping the connection.
func (s *Server) handle(conn *anetserver.ServerConn, data []byte) ([]byte, error) {
	client := conn.Conn.RemoteAddr().String()
	atomic.AddInt32(&s.activeConns, 1)
	defer atomic.AddInt32(&s.activeConns, -1)

	start := time.Now()
	log.Debug().
		Str("event", "handle_start").
		Str("client_ip", client).
		Msg("starting request handling")

	reqStr := formatData(data)
	log.Info().
		Str("event", "request_received").
		Str("client_ip", client).
		Str("request", reqStr).
		Int("active_connections", int(atomic.LoadInt32(&s.activeConns))).
		Msg("received request")

	frame, err := message.Parse(data)
	if err != nil {
		log.Warn().
			Str("event", "malformed_request").
			Str("client_ip", client).
			Err(err).
			Msg("rejecting malformed request")

		return s.respond(client, errorcodes.Err01, nil), nil
	}

	inv := s.invoker()
	if inv == nil {
		log.Error().
			Str("event", "registry_unavailable").
			Str("client_ip", client).
			Str("command", frame.Command).
			Msg("no plugin runtime attached")

		return s.respond(client, errorcodes.Err04, nil), nil
	}

	resp, execErr := inv.InvokeCommand(context.Background(), frame.Command, frame.Payload)
	if execErr != nil {
		if errors.Is(execErr, plugins.ErrUnknownCommand) {
			log.Warn().
				Str("event", "unknown_command").
				Str("client_ip", client).
				Str("command", frame.Command).
				Msg("command not recognized, responding with error code")

			return s.respond(client, errorcodes.Err02, nil), nil
		}

		log.Error().
			Str("event", "plugin_execution_error").
			Str("client_ip", client).
			Str("command", frame.Command).
			Err(execErr).
			Msg("plugin execution failed")

		return s.respond(client, errorcodes.Err03, nil), nil
	}

	out := s.respond(client, errorcodes.Err00, resp)

	total := time.Since(start)
	log.Debug().
		Str("event", "handle_done").
		Str("request", reqStr).
		Str("command", frame.Command).
		Str("duration", total.String()).
		Msg("completed request handling")

	return out, nil
}

// respond renders the response frame and records the response_sent event.
func (s *Server) respond(client string, pe errorcodes.ProtocolError, body []byte) []byte {
	out := message.Encode(pe.Code, body)

	log.Info().
		Str("event", "response_sent").
		Str("client_ip", client).
		Str("code", pe.Code).
		Str("response", formatData(out)).
		Int("active_connections", int(atomic.LoadInt32(&s.activeConns))).
		Msg("sent response")

	return out
}
