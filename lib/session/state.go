// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package session

import "fmt"

// State is a menu state of a session.
type State int

const (
	// StateMain offers signup, login, and exit.
	StateMain State = iota

	// StateSecond is the authenticated menu: process, print and
	// search, logout.
	StateSecond

	// StateBilling chooses between the customer and interoperator
	// reports.
	StateBilling

	// StateCustomerBilling searches or displays the customer report.
	StateCustomerBilling

	// StateInteroperatorBilling searches or displays the operator
	// report.
	StateInteroperatorBilling

	// StateClosed ends the session.
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateMain:
		return "MAIN"
	case StateSecond:
		return "SECOND"
	case StateBilling:
		return "BILLING"
	case StateCustomerBilling:
		return "CUST_BILL"
	case StateInteroperatorBilling:
		return "INTER_BILL"
	case StateClosed:
		return "CLOSED"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// menu is the fixed text of one state's prompt.
type menu struct {
	name    string // audit label
	title   string
	options [3]string
}

const choicePrompt = "Enter choice (1-3):"

var (
	mainMenu = menu{
		name:    "MAIN MENU",
		title:   "-- MAIN MENU --",
		options: [3]string{"1) Signup", "2) Login", "3) Exit"},
	}
	secondMenu = menu{
		name:    "SECONDARY MENU",
		title:   "-- SECONDARY MENU --",
		options: [3]string{"1) Process the CDR data", "2) Print and search", "3) Logout"},
	}
	billingMenu = menu{
		name:    "BILLING MENU",
		title:   "-- PRINT & SEARCH MENU --",
		options: [3]string{"1) Customer Billing", "2) Interoperator Billing", "3) Back"},
	}
	customerMenu = menu{
		name:    "CUSTOMER BILLING",
		title:   "-- CUSTOMER BILLING --",
		options: [3]string{"1) Search by msisdn no", "2) Print file content of CB.txt", "3) Back"},
	}
	interoperatorMenu = menu{
		name:    "INTEROP BILLING",
		title:   "-- INTEROP BILLING --",
		options: [3]string{"1) Search by operator name", "2) Print file content of IOSB.txt", "3) Back"},
	}
)

// Peer-visible messages.
const (
	invalidChoiceMessage    = "Invalid choice. Try again."
	emailPrompt             = "Enter email:"
	invalidEmailMessage     = "Invalid email format. Returning to main menu."
	signupPasswordPrompt    = "Enter password (min 6 chars, must include: uppercase, lowercase, digit, special char):"
	invalidPasswordMessage  = "Invalid password. Must be at least 6 characters with uppercase, lowercase, digit, and special character. Returning to main menu."
	signupSuccessMessage    = "Signup successful! Please login."
	duplicateMessage        = "Email already registered. Please login or use a different email."
	signupErrorMessage      = "Error creating account. Please try again."
	loginPasswordPrompt     = "Enter password:"
	loginSuccessMessage     = "Login successful. Welcome!"
	loginFailedMessage      = "Invalid credentials. Returning to main menu."
	workspaceErrorMessage   = "Error preparing your workspace. Returning to main menu."
	goodbyeMessage          = "Goodbye. Closing connection."
	processFirstMessage     = "ERROR: Please process the CDR data first (Option 1) before accessing billing."
	msisdnPrompt            = "Enter MSISDN to search:"
	invalidMSISDNMessage    = "Invalid MSISDN. Please enter a valid number."
	operatorPrompt          = "Enter operator name to search:"
	invalidOperatorMessage  = "Invalid operator name. Please enter a valid name."
	operationDoneMessage    = "Operation completed. Disconnecting..."
	processingBusyMessage   = "Processing CDR data: waiting for another run of this account to finish..."
	processingFailedMessage = "Processing did not complete. Reports are not available until a run succeeds."
)
