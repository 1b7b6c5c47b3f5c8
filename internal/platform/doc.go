// Package platform implements the SCMI resource providers on top of a board
// description and a set of hardware back-ends.
//
// Every agent-supplied index goes through nospec before it selects an
// agent or a resource. Agents outside the board own nothing.
package platform
