// Package testing provides in-memory collaborators, mocks and builders for
// unit and end-to-end tests.
//
// The fakes share a [CallLog] so a test can assert the order in which the
// orchestrators drove them:
//
//	f := testing.NewFakes()
//	// ... run an orchestrator against f.Backend, f.DNS, f.Prober ...
//	assert.Less(t, f.Log.Index("dns.unregister"), f.Log.Index("backend.delete demo"))
//
// FakeBackend reports CREATE_COMPLETE as soon as a stack is submitted and
// derives its outputs from the submitted stack body, so a full create, deploy
// and delete cycle runs without any real infrastructure.
package testing
