package procmanager

import "fmt"

// HandlerStub describes how to spawn one kind of Handler subprocess: the
// binary, its fixed arguments, and the settings a registering Handler of
// this kind receives in its params reply.
type HandlerStub struct {
	Kind     string
	Binary   string
	Args     []string
	Settings map[string]string
}

// Command returns the argv for spawning one instance of the stub, per the
// subprocess CLI convention: <handler-binary> <zmq-request-url>
// <one-off-registration-token> [--uuid <renderer-uuid>].
func (s HandlerStub) Command(requestURL, spawnToken string, extra ...string) (string, []string) {
	argv := append([]string{}, s.Args...)
	argv = append(argv, requestURL, spawnToken)
	argv = append(argv, extra...)
	return s.Binary, argv
}

// Registry indexes HandlerStubs by kind (the scheme/tag a URI manager
// dispatches on, or a fixed kind for single-instance Handlers like the
// sensor Handler).
type Registry struct {
	stubs map[string]HandlerStub
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{stubs: make(map[string]HandlerStub)}
}

// Register adds or replaces the stub for kind.
func (r *Registry) Register(stub HandlerStub) {
	r.stubs[stub.Kind] = stub
}

// Lookup returns the stub registered for kind.
func (r *Registry) Lookup(kind string) (HandlerStub, error) {
	stub, ok := r.stubs[kind]
	if !ok {
		return HandlerStub{}, fmt.Errorf("procmanager: no handler stub registered for kind %q", kind)
	}
	return stub, nil
}
