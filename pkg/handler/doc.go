/*
Package handler implements the Handler side of the RPC bus: the common
registration and liveness flow every subprocess handler embeds (Base),
and the refresh-rate-driven read loop shared by the two required
Pull-handler kinds (PullHandler, FilePullHandler, HTTPPullHandler).

# Registration

A Handler is spawned by its Manager with a one-off spawn token. Base.Register
exchanges it for a rotating token and a bootstrap settings dictionary,
failing if no reply arrives within RegistrationTimeout. Every subsequent
request is stamped with the current rotating token by Base.Send.

# Liveness

Base.RunCheckinLoop pings the Manager every SubprocessCheckinInterval.
Handlers with their own regular traffic (a Pull-handler mid-schedule)
don't strictly need it, but running it unconditionally costs one extra
ping during idle stretches and guarantees the liveness signal never goes
quiet.

# Pull-handlers

PullHandler reads immediately on Run, then on a schedule: RefreshRate
after a successful read, or a window that doubles (capped at
RefreshRate) after each consecutive failure, starting from DefaultWindow.
Every successful read is reported to the Manager as a subscription_update
request carrying the source URI and the fetched text; a failed read is not
reported.

FilePullHandler and HTTPPullHandler are the two concrete Reader
implementations: local file contents, and an HTTP GET bounded by
HTTPPullTimeout.
*/
package handler
