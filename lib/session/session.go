// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"strings"

	"github.com/bureau-foundation/cdrbill/lib/audit"
	"github.com/bureau-foundation/cdrbill/lib/billing"
	"github.com/bureau-foundation/cdrbill/lib/lineproto"
	"github.com/bureau-foundation/cdrbill/lib/netutil"
	"github.com/bureau-foundation/cdrbill/lib/report"
	"github.com/bureau-foundation/cdrbill/lib/workspace"
)

// Identities registers and authenticates accounts.
type Identities interface {
	// Register returns identity.ErrDuplicateIdentity for a taken email.
	Register(ctx context.Context, email, password string) error
	Authenticate(ctx context.Context, email, password string) (bool, error)
}

// Workspaces resolves an authenticated identity's output directory.
type Workspaces interface {
	Resolve(identity string) (*workspace.Workspace, error)
}

// Processor runs the billing passes for one job.
type Processor interface {
	Process(ctx context.Context, job billing.Job, notify billing.Notifier) (billing.Outcome, error)
}

// Reports searches and streams generated reports.
type Reports interface {
	SearchCustomer(out report.Sender, path string, subscriber int64) (report.Outcome, error)
	SearchOperator(out report.Sender, path, pattern string) (report.Outcome, error)
	Display(out report.Sender, kind report.Kind, path string) (report.Outcome, error)
}

// Dependencies are the collaborators shared by every session of a
// server.
type Dependencies struct {
	Identities Identities
	Workspaces Workspaces
	Processor  Processor
	Reports    Reports

	// Source is the CDR file every processing run reads.
	Source string

	// Conn configures the line protocol of each connection.
	Conn lineproto.Options

	// Audit receives session events. Nil discards them.
	Audit audit.Sink

	Logger *slog.Logger
}

// Serve runs a session over conn until it ends. Its signature matches
// service.ConnHandler.
func (d *Dependencies) Serve(ctx context.Context, conn net.Conn) {
	remote := conn.RemoteAddr().String()
	session := New(d, lineproto.NewConn(conn, d.Conn), remote)
	if err := session.Run(ctx); err != nil {
		if netutil.IsExpectedCloseError(err) || errors.Is(err, context.Canceled) {
			session.logger.Debug("connection closed by peer", "error", err)
			return
		}
		session.logger.Warn("session ended with error", "error", err)
	}
}

// Session is the per-connection state. It is used by one goroutine.
type Session struct {
	deps   *Dependencies
	conn   *lineproto.Conn
	remote string
	sink   audit.Sink
	logger *slog.Logger

	state State

	// identity is the canonical email of the logged-in account, or
	// empty.
	identity  string
	workspace *workspace.Workspace

	// reportsCurrent is set by a successful processing run and
	// cleared on logout.
	reportsCurrent bool
}

// New creates a session in StateMain.
func New(deps *Dependencies, conn *lineproto.Conn, remote string) *Session {
	sink := deps.Audit
	if sink == nil {
		sink = audit.Discard
	}
	return &Session{
		deps:   deps,
		conn:   conn,
		remote: remote,
		sink:   sink,
		logger: deps.logger().With("remote", remote),
		state:  StateMain,
	}
}

// State returns the current state.
func (s *Session) State() State { return s.state }

// Identity returns the logged-in identity, or empty.
func (s *Session) Identity() string { return s.identity }

// handler performs one step of a state and returns the next state.
type handler func(s *Session, ctx context.Context) (State, error)

var handlers = map[State]handler{
	StateMain:                 (*Session).main,
	StateSecond:               (*Session).second,
	StateBilling:              (*Session).billing,
	StateCustomerBilling:      (*Session).customerBilling,
	StateInteroperatorBilling: (*Session).interoperatorBilling,
}

// Run drives the state machine until the session closes. End of
// stream is a normal end and returns nil.
func (s *Session) Run(ctx context.Context) error {
	s.sink.Record(audit.Connection(s.remote, "connect"))
	defer s.sink.Record(audit.Connection(s.remote, "disconnect"))
	s.logger.Info("session started")

	for s.state != StateClosed {
		if err := ctx.Err(); err != nil {
			return err
		}
		next, err := handlers[s.state](s, ctx)
		if err != nil {
			if errors.Is(err, lineproto.ErrEndOfStream) {
				s.logger.Info("session ended by peer", "state", s.state.String())
				return nil
			}
			return err
		}
		if next != s.state {
			s.logger.Debug("state transition", "from", s.state.String(), "to", next.String())
		}
		s.state = next
	}
	s.logger.Info("session closed")
	return nil
}

// choose sends m and returns the trimmed reply.
func (s *Session) choose(m menu) (string, error) {
	for _, line := range []string{m.title, m.options[0], m.options[1], m.options[2], choicePrompt} {
		if err := s.conn.SendLine(line); err != nil {
			return "", err
		}
	}
	reply, err := s.conn.ReceiveLine()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

// ask sends prompt and returns the reply.
func (s *Session) ask(prompt string) (string, error) {
	if err := s.conn.SendLine(prompt); err != nil {
		return "", err
	}
	return s.conn.ReceiveLine()
}

// menuChoice audits a menu selection by the current actor.
func (s *Session) menuChoice(m menu, choice string) {
	s.sink.Record(audit.Menu(s.remote, s.identity, m.name, choice))
}

// invalid re-prompts the current state.
func (s *Session) invalid(m menu, choice string) (State, error) {
	s.logger.Debug("invalid menu choice", "menu", m.name, "choice", choice)
	return s.state, s.conn.SendLine(invalidChoiceMessage)
}

func (d *Dependencies) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return d.Logger
}
