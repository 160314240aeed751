package testutil

// FixedTokenGenerator always returns the same run token.
//
// Production run tokens are random; fixing the token makes harness traces
// byte-identical across runs, which golden comparison requires.
//
// Stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a generator for the given token.
//
// The token is typically set in the scenario YAML:
//
//	run_token: "run-00000000-0000-0000-0000-000000000001"
//
// If token is empty, Generate() returns "test-run-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-run-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed run token.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
