// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// cdr-client connects to a cdr-server and runs an interactive billing
// session on the terminal. Files the server transfers are saved to the
// download directory.
package main
