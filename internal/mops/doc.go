// Package mops resolves financial and annual-report PDFs from the TWSE
// document portal.
//
// A lookup runs in up to three requests:
//
//  1. GET the listing page for a company, Minguo year and report type.
//  2. POST the readfile2 parameters of the first matching anchor.
//  3. If the POST answered with HTML rather than PDF bytes, GET the PDF
//     linked from that intermediate page.
//
// The result is an Outcome: a document stream, a not-found reason or a
// failure reason. Resolve never returns a Go error.
package mops
