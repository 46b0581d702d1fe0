/*
Package procmanager supervises Handler subprocesses on behalf of a
Manager: spawning them per pkg/handler's subprocess CLI convention,
authenticating their registration via pkg/token, sweeping for erroneous
states, and escalating through SIGTERM/SIGKILL to stop them.

# Lifecycle

StartInstance spawns one instance of a registered HandlerStub, issuing it
a one-off spawn token. HandleRegister consumes that token on the
subprocess's first request, in exchange for a fresh rotating token and
its configured settings; CheckToken and RecordCheckin back every other
authenticated verb a Bus handler dispatches.

# Sweep and restart

RunSweepLoop ticks every SubprocessCheckInterval, failing any record that
has exited without registering, has gone unregistered past
RegistrationTimeout, or has gone quiet past CheckinTimeout. A failed
record is stopped and respawned after RestartDelay; once failures exceed
FailedLimit the Manager reinitializes its whole tracked set instead,
pausing RestartSleep before resuming.

# URI dispatch

URIManager wraps a Manager for Handlers started per-URI: it parses the
incoming URI's scheme to pick a HandlerStub and starts at most one
Handler per distinct URI.
*/
package procmanager
