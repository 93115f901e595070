// Package credentials resolves the Nexus username and password.
//
// A Provider yields Credentials from one source: the environment (Env) or an
// interactive prompt (Prompt). Chain tries providers in order; the result is
// resolved once per run and passed down explicitly.
package credentials
