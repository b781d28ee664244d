// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import (
	"context"
	"errors"
	"strings"

	"github.com/bureau-foundation/cdrbill/lib/audit"
	"github.com/bureau-foundation/cdrbill/lib/billing"
	"github.com/bureau-foundation/cdrbill/lib/cdr"
	"github.com/bureau-foundation/cdrbill/lib/identity"
	"github.com/bureau-foundation/cdrbill/lib/report"
)

func (s *Session) main(ctx context.Context) (State, error) {
	choice, err := s.choose(mainMenu)
	if err != nil {
		return s.state, err
	}
	switch choice {
	case "1":
		s.menuChoice(mainMenu, "Signup")
		return StateMain, s.signup(ctx)
	case "2":
		s.menuChoice(mainMenu, "Login")
		return s.login(ctx)
	case "3":
		s.menuChoice(mainMenu, "Exit")
		return StateClosed, s.conn.SendLine(goodbyeMessage)
	default:
		return s.invalid(mainMenu, choice)
	}
}

func (s *Session) signup(ctx context.Context) error {
	email, err := s.ask(emailPrompt)
	if err != nil {
		return err
	}
	if !identity.ValidEmail(email) {
		s.sink.Record(audit.Auth(s.remote, "", "signup", false, "invalid email"))
		return s.conn.SendLine(invalidEmailMessage)
	}
	email = identity.Canonical(email)

	password, err := s.ask(signupPasswordPrompt)
	if err != nil {
		return err
	}
	if !identity.ValidPassword(password) {
		s.sink.Record(audit.Auth(s.remote, email, "signup", false, "invalid password"))
		return s.conn.SendLine(invalidPasswordMessage)
	}

	err = s.deps.Identities.Register(ctx, email, password)
	switch {
	case err == nil:
		s.sink.Record(audit.Auth(s.remote, email, "signup", true, ""))
		return s.conn.SendLine(signupSuccessMessage)
	case errors.Is(err, identity.ErrDuplicateIdentity):
		s.sink.Record(audit.Auth(s.remote, email, "signup", false, "duplicate"))
		return s.conn.SendLine(duplicateMessage)
	default:
		s.logger.Error("registering identity failed", "email", email, "error", err)
		s.sink.Record(audit.Auth(s.remote, email, "signup", false, "error"))
		return s.conn.SendLine(signupErrorMessage)
	}
}

func (s *Session) login(ctx context.Context) (State, error) {
	email, err := s.ask(emailPrompt)
	if err != nil {
		return StateMain, err
	}
	if !identity.ValidEmail(email) {
		s.sink.Record(audit.Auth(s.remote, "", "login", false, "invalid email"))
		return StateMain, s.conn.SendLine(invalidEmailMessage)
	}
	email = identity.Canonical(email)

	password, err := s.ask(loginPasswordPrompt)
	if err != nil {
		return StateMain, err
	}

	ok, err := s.deps.Identities.Authenticate(ctx, email, password)
	if err != nil {
		s.logger.Error("authenticating identity failed", "email", email, "error", err)
		ok = false
	}
	if !ok {
		s.sink.Record(audit.Auth(s.remote, email, "login", false, ""))
		return StateMain, s.conn.SendLine(loginFailedMessage)
	}

	resolved, err := s.deps.Workspaces.Resolve(email)
	if err != nil {
		s.logger.Error("resolving workspace failed", "email", email, "error", err)
		s.sink.Record(audit.Auth(s.remote, email, "login", false, "workspace unavailable"))
		return StateMain, s.conn.SendLine(workspaceErrorMessage)
	}

	s.identity = email
	s.workspace = resolved
	s.reportsCurrent = false
	s.logger = s.logger.With("user", email)
	s.sink.Record(audit.Auth(s.remote, email, "login", true, ""))
	return StateSecond, s.conn.SendLine(loginSuccessMessage)
}

func (s *Session) second(ctx context.Context) (State, error) {
	choice, err := s.choose(secondMenu)
	if err != nil {
		return s.state, err
	}
	switch choice {
	case "1":
		s.menuChoice(secondMenu, "Process CDR Data")
		return StateSecond, s.process(ctx)
	case "2":
		s.menuChoice(secondMenu, "Print and Search")
		if !s.reportsAvailable() {
			s.logger.Warn("billing requested before processing")
			return StateSecond, s.conn.SendLine(processFirstMessage)
		}
		return StateBilling, nil
	case "3":
		s.menuChoice(secondMenu, "Logout")
		s.sink.Record(audit.Auth(s.remote, s.identity, "logout", true, ""))
		s.logout()
		return StateMain, nil
	default:
		return s.invalid(secondMenu, choice)
	}
}

// reportsAvailable is the guard on entry to the print and search menu.
func (s *Session) reportsAvailable() bool {
	return s.reportsCurrent && s.workspace != nil && s.workspace.ReportsExist()
}

func (s *Session) logout() {
	s.logger.Info("logged out")
	s.logger = s.deps.logger().With("remote", s.remote)
	s.identity = ""
	s.workspace = nil
	s.reportsCurrent = false
}

// process runs both billing passes into the workspace. Runs for the
// same identity from different sessions are serialized.
func (s *Session) process(ctx context.Context) error {
	if !s.workspace.TryLock() {
		if err := s.conn.SendLine(processingBusyMessage); err != nil {
			return err
		}
		s.workspace.Lock()
	}
	defer s.workspace.Unlock()

	job := billing.Job{
		Source:         s.deps.Source,
		CustomerReport: s.workspace.CustomerReport(),
		OperatorReport: s.workspace.OperatorReport(),
		Manifest:       s.workspace.Manifest(),
	}
	outcome, err := s.deps.Processor.Process(ctx, job, s.conn.SendLine)
	if err != nil {
		return err
	}

	if passErr := outcome.Err(); passErr != nil {
		s.reportsCurrent = false
		s.sink.Record(audit.Process(s.remote, s.identity, false, passErr.Error()))
		return s.conn.SendLine(processingFailedMessage)
	}
	s.reportsCurrent = true
	s.logger.Info("processing completed",
		"customers", outcome.Customer.Result.Aggregates,
		"operators", outcome.Operator.Result.Aggregates,
		"skipped_customer_lines", outcome.Customer.Result.Stats.Skipped,
		"skipped_operator_lines", outcome.Operator.Result.Stats.Skipped,
	)
	s.sink.Record(audit.Process(s.remote, s.identity, true, ""))
	return nil
}

func (s *Session) billing(ctx context.Context) (State, error) {
	choice, err := s.choose(billingMenu)
	if err != nil {
		return s.state, err
	}
	switch choice {
	case "1":
		s.menuChoice(billingMenu, "Customer Billing")
		return StateCustomerBilling, nil
	case "2":
		s.menuChoice(billingMenu, "Interoperator Billing")
		return StateInteroperatorBilling, nil
	case "3":
		s.menuChoice(billingMenu, "Back")
		return StateSecond, nil
	default:
		return s.invalid(billingMenu, choice)
	}
}

func (s *Session) customerBilling(ctx context.Context) (State, error) {
	choice, err := s.choose(customerMenu)
	if err != nil {
		return s.state, err
	}
	switch choice {
	case "1":
		s.menuChoice(customerMenu, "Search by MSISDN")
		if err := s.searchCustomer(); err != nil {
			return s.state, err
		}
		return s.finish()
	case "2":
		s.menuChoice(customerMenu, "Print CB.txt")
		if err := s.display(report.Customer, s.workspace.CustomerReport()); err != nil {
			return s.state, err
		}
		return s.finish()
	case "3":
		s.menuChoice(customerMenu, "Back")
		return StateBilling, nil
	default:
		return s.invalid(customerMenu, choice)
	}
}

func (s *Session) interoperatorBilling(ctx context.Context) (State, error) {
	choice, err := s.choose(interoperatorMenu)
	if err != nil {
		return s.state, err
	}
	switch choice {
	case "1":
		s.menuChoice(interoperatorMenu, "Search by Operator")
		if err := s.searchOperator(); err != nil {
			return s.state, err
		}
		return s.finish()
	case "2":
		s.menuChoice(interoperatorMenu, "Print IOSB.txt")
		if err := s.display(report.Operator, s.workspace.OperatorReport()); err != nil {
			return s.state, err
		}
		return s.finish()
	case "3":
		s.menuChoice(interoperatorMenu, "Back")
		return StateBilling, nil
	default:
		return s.invalid(interoperatorMenu, choice)
	}
}

func (s *Session) searchCustomer() error {
	reply, err := s.ask(msisdnPrompt)
	if err != nil {
		return err
	}
	subscriber := cdr.LeadingInteger(strings.TrimSpace(reply))
	if subscriber <= 0 {
		s.logger.Debug("invalid MSISDN", "input", reply)
		return s.conn.SendLine(invalidMSISDNMessage)
	}
	outcome, err := s.deps.Reports.SearchCustomer(s.conn, s.workspace.CustomerReport(), subscriber)
	s.sink.Record(audit.Search(s.remote, s.identity, "msisdn", reply, outcome == report.Found))
	return err
}

func (s *Session) searchOperator() error {
	reply, err := s.ask(operatorPrompt)
	if err != nil {
		return err
	}
	pattern := strings.TrimSpace(reply)
	if pattern == "" {
		return s.conn.SendLine(invalidOperatorMessage)
	}
	outcome, err := s.deps.Reports.SearchOperator(s.conn, s.workspace.OperatorReport(), pattern)
	s.sink.Record(audit.Search(s.remote, s.identity, "operator", pattern, outcome == report.Found))
	return err
}

func (s *Session) display(kind report.Kind, path string) error {
	outcome, err := s.deps.Reports.Display(s.conn, kind, path)
	s.sink.Record(audit.File(s.remote, s.identity, kind.FileName(), err == nil && outcome == report.Found))
	return err
}

// finish ends the session after a search or display.
func (s *Session) finish() (State, error) {
	return StateClosed, s.conn.SendLine(operationDoneMessage)
}
