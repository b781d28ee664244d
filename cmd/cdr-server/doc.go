// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// cdr-server is the CDR billing server.
//
// "cdr-server serve" accepts line-protocol connections and runs one
// billing session per connection: signup and login against the SQLite
// credential store, processing of the shared CDR source into per-user
// customer and interoperator reports, and search and display over
// those reports.
//
// "cdr-server manifest <workspace>" prints the manifest of the last
// successful processing run in a workspace and checks that the
// reports still match their recorded digests.
//
// "cdr-server unarchive --identity <file> <archive>" writes an
// archived report generation to stdout, decrypting it with the age
// identities in the given file when it is encrypted.
package main
