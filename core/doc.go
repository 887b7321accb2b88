// Package core provides the foundational domain types and interfaces used by
// InstruMesh. It defines the core abstractions for:
//
//   - Capabilities (named remote operations: methods, parameters, functions)
//   - Capability classes (the driver type being proxied, with its server
//     naming rules, shared-kwarg declaration and instance registry)
//   - Server identities and the Manager cache keyed by them
//   - The Manager contract (connect / ask / write / delete / restart / alive)
//   - Keyword-argument partitioning between worker selection and remote
//     construction
//
// The package intentionally keeps implementation concerns (worker hosting,
// wire transports, concrete drivers) out of scope, exposing small interfaces
// so custom Manager backends can be plugged in without touching the proxy
// layer.
package core
