// Package task defines the unit of work for a download run and the rules
// for building and ordering a batch of them from a user selection.
package task
