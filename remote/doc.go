// Package remote implements the client-side proxy hierarchy for instrument
// drivers executing in a separate worker. An Instrument performs a one-time
// introspection handshake through its Manager and mirrors the remote
// capability surface as local Method, Parameter and Function proxies; every
// later operation is forwarded through the Manager's blocking ask or
// fire-and-forget write primitive.
//
// Proxies own no remote state: every field beyond identity and owner is
// copied once from a connect-time descriptor and never revalidated against
// the live remote object.
package remote
