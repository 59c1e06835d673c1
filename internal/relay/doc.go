// Package relay implements the connection registry and broadcast relay at the
// heart of the message server.
//
// A Registry tracks the live connection handles, a Log keeps every accepted
// message in a single global order, and a Relay ties the two together: each
// inbound message is appended to the Log and then offered to every connection
// in the Registry, the sender included. Delivery is best effort. The outcome of
// each attempt is reported as a SendResult that callers may count but never
// act on.
package relay
