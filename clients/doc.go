// Package clients provides the production implementations of the
// pipeline's external client interfaces: the HR system's REST API (which
// also relays interview invitations to candidates), an OpenAI-compatible
// completion endpoint, and a filesystem document store.
package clients
