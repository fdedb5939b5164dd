// Package environment decides once per process whether the service runs on a
// persistent local filesystem or on an ephemeral cloud filesystem, and derives
// the working and final directories from that decision.
//
// Local mode keeps finished files in a user-visible folder (the Desktop by
// default) and scratch files under a hidden directory next to the project.
// Cloud mode keeps everything under /tmp/media-toolkit, which may disappear
// between invocations, so directories are created on demand.
package environment
