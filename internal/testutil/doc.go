// Package testutil provides shared test helpers: a scriptable FakeManager
// with call recording for exercising the proxy layer without a worker.
package testutil
