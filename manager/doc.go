// Package manager contains concrete Manager implementations. The Manager
// contract itself lives in the core package; depend on core.Manager in your
// code and select an implementation (like the in-process manager below) at
// wiring time.
//
// InProc hosts drivers behind a single command-loop goroutine per server
// identity, mirroring the one-worker-per-identity process model without
// leaving the client process. It is the reference implementation used by the
// examples and tests; production deployments supply a Manager speaking to a
// real worker process over whatever transport they choose.
package manager
