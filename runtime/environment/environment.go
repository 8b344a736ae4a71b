// Package environment defines the isolated tool-execution contract: where a
// tool call actually runs (in-process, sandboxed subprocess, remote worker)
// and how it obtains the credentials it needs without those credentials
// passing through the model's context.
package environment

import (
	"context"
	"errors"
)

// CredentialSource names where a credential originates.
type CredentialSource string

const (
	SourceVault    CredentialSource = "vault"
	SourceAWS      CredentialSource = "aws"
	SourceKeystore CredentialSource = "keystore"
	SourceJWT      CredentialSource = "jwt"
)

// InjectionMode names how a resolved credential reaches the tool process.
type InjectionMode string

const (
	InjectEnvVar InjectionMode = "env_var"
	InjectFile   InjectionMode = "file"
	InjectHeader InjectionMode = "header"
)

// CredentialRef names a credential a tool needs without carrying its value.
// The value is resolved just-in-time by a CredentialResolver and injected
// per Injection, never included in the model-visible tool input/output.
type CredentialRef struct {
	Name      string
	Source    CredentialSource
	Injection InjectionMode
}

// ErrUnsupportedSource is returned by a CredentialResolver implementation
// that does not know how to resolve the given CredentialRef.Source.
var ErrUnsupportedSource = errors.New("environment: unsupported credential source")

// CredentialResolver resolves a CredentialRef to its live value at
// tool-execution time.
type CredentialResolver interface {
	Resolve(ctx context.Context, ref CredentialRef) (value string, err error)
}

// Environment executes a tool call in isolation from the orchestrating
// process: implementations may run the call in-process (the default,
// no isolation), in a sandboxed subprocess (features/environment/plugin),
// or route it to a remote worker. Isolation level is an implementation
// concern; the contract is only "run this call and give me the result".
type Environment interface {
	// Execute runs a single tool call with the given resolved credentials
	// injected per their InjectionMode, and returns the tool's raw output.
	Execute(ctx context.Context, toolName string, input []byte, creds []ResolvedCredential) (output []byte, err error)
}

// ResolvedCredential pairs a CredentialRef with its resolved value, ready
// for an Environment to inject.
type ResolvedCredential struct {
	Ref   CredentialRef
	Value string
}
