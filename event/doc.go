// Package event runs a node as a single worker. Inbound requests, call continuations and
// timeouts are all Actions handed to one Scheduler, which runs them one after the other. The
// node's routing table and storage are only ever touched from that worker and need no locks,
// and with a mock clock a whole network of nodes can be stepped deterministically.
package event
