// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package client is the interactive side of the billing protocol.
//
// [Client] prints every line the server sends and answers the ones that
// ask for input. A line asks for input when it contains one of the
// prompt triggers ("Enter choice", "Enter email", "Enter password",
// "Enter MSISDN", "Enter operator name", "Press Enter"). Password
// prompts are answered without echo, and the password is held in a
// locked [secret.Buffer] until it is written to the connection.
//
// File transfers announced by the server are saved into the download
// directory under the base name the server gives, with progress
// reported in 10% steps. Server text is stripped of terminal escape
// sequences before it is printed.
package client
