// Package doorbell emulates the SMC doorbell of an SCMI platform on a host.
//
// An agent posts its SMT slot image in a request frame; the server copies it
// into the agent's channel on a tee.Router, rings it as the SMC entry would
// and answers with the updated slot image. All dispatches are serialized by
// the router. With agent identities configured, a TLS peer may only act as
// the agent its certificate names.
package doorbell
